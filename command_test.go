package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
		wantErr bool
	}{
		{
			name:    "with params",
			payload: `{"command":"set_theme","params":{"mode":"dark","level":2}}`,
			want:    Command{Name: "set_theme", Params: Params{"mode": "dark", "level": float64(2)}},
		},
		{name: "params omitted", payload: `{"command":"ping"}`, want: Command{Name: "ping", Params: Params{}}},
		{name: "params null", payload: `{"command":"ping","params":null}`, want: Command{Name: "ping", Params: Params{}}},
		{name: "extra fields ignored", payload: `{"command":"ping","id":4}`, want: Command{Name: "ping", Params: Params{}}},
		{
			name:    "case-variant key does not shadow command",
			payload: `{"command":"a","Command":"b","PARAMS":{"x":1}}`,
			want:    Command{Name: "a", Params: Params{}},
		},
		{name: "not json", payload: "not json", wantErr: true},
		{name: "capitalized command key", payload: `{"Command":"x"}`, wantErr: true},
		{name: "upper-case keys", payload: `{"COMMAND":"set_theme","PARAMS":{"mode":"dark"}}`, wantErr: true},
		{name: "null command", payload: `{"command":null}`, wantErr: true},
		{name: "top-level null", payload: `null`, wantErr: true},
		{name: "empty", payload: "", wantErr: true},
		{name: "missing command", payload: `{"params":{}}`, wantErr: true},
		{name: "empty command", payload: `{"command":""}`, wantErr: true},
		{name: "numeric command", payload: `{"command":1}`, wantErr: true},
		{name: "string params", payload: `{"command":"x","params":"y"}`, wantErr: true},
		{name: "array params", payload: `{"command":"x","params":[]}`, wantErr: true},
		{name: "top-level array", payload: `[]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.payload))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeCommandDefaultsParams(t *testing.T) {
	data, err := EncodeCommand(Command{Name: "focus_window"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"focus_window","params":{}}`, string(data))
}

func TestEncodeCommandRejectsUnencodableParams(t *testing.T) {
	_, err := EncodeCommand(Command{Name: "bad", Params: Params{"fn": func() {}}})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestEncodeAck(t *testing.T) {
	data, err := encodeAck("set_theme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","command":"set_theme"}`, string(data))
}
