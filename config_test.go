package bridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmdbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "address: ws://127.0.0.1:9000\n"))
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9000", cfg.Address)
	assert.Equal(t, DefaultReconnectDelay, cfg.ReconnectDelay)
	assert.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
	assert.Equal(t, DefaultRelayChannel, cfg.Relay.Channel)
	assert.False(t, cfg.Relay.Enabled())
}

func TestLoadConfigParsesDurationsAndRelay(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
address: wss://control.local:8443/bridge
reconnect_delay: 750ms
dial_timeout: 3s
write_timeout: 2s
relay:
  address: localhost:6379
  channel: voice
`))
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, 3*time.Second, cfg.DialTimeout)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
	assert.True(t, cfg.Relay.Enabled())
	assert.Equal(t, "voice", cfg.Relay.Channel)
	assert.Len(t, cfg.ClientOptions(), 3)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "address: [",
		"bad scheme":      "address: http://localhost:8997\n",
		"zero delay":      "reconnect_delay: 0s\n",
		"missing channel": "relay:\n  address: localhost:6379\n  channel: \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigClientOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReconnectDelay = time.Second
	cfg.WriteTimeout = 50 * time.Millisecond

	options := defaultOptions()
	for _, opt := range cfg.ClientOptions() {
		opt(&options)
	}
	assert.Equal(t, time.Second, options.ReconnectDelay)
	dialer, ok := options.Dialer.(*WebsocketDialer)
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, dialer.WriteTimeout)
}
