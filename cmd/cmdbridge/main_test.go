package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	bridge "github.com/TheAlpha16/cmdbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (bridge.Config, error) {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))

	var f flags
	f.configPath, _ = cmd.Flags().GetString("config")
	f.address, _ = cmd.Flags().GetString("address")
	f.reconnectDelay, _ = cmd.Flags().GetDuration("reconnect-delay")
	f.relayAddress, _ = cmd.Flags().GetString("relay-address")
	f.relayChannel, _ = cmd.Flags().GetString("relay-channel")
	return resolveConfig(cmd, f)
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, bridge.DefaultAddress, cfg.Address)
	assert.Equal(t, bridge.DefaultReconnectDelay, cfg.ReconnectDelay)
	assert.False(t, cfg.Relay.Enabled())
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: ws://127.0.0.1:9100\nreconnect_delay: 2s\n"), 0o600))

	cfg, err := parse(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9100", cfg.Address)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)

	cfg, err = parse(t, "--config", path, "--reconnect-delay", "300ms", "--relay-address", "localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9100", cfg.Address)
	assert.Equal(t, 300*time.Millisecond, cfg.ReconnectDelay)
	assert.True(t, cfg.Relay.Enabled())
	assert.Equal(t, bridge.DefaultRelayChannel, cfg.Relay.Channel)
}

func TestResolveConfigRejectsBadAddress(t *testing.T) {
	_, err := parse(t, "--address", "localhost:8997")
	assert.ErrorIs(t, err, bridge.ErrInvalidConfig)
}
