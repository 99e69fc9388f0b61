package bridge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the client and relay settings.
type Config struct {
	Address        string        `yaml:"address"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	Relay          RelayConfig   `yaml:"relay"`
}

// RelayConfig enables the Valkey relay when Address is set.
type RelayConfig struct {
	Address string `yaml:"address"`
	Channel string `yaml:"channel"`
}

func (r RelayConfig) Enabled() bool { return r.Address != "" }

func DefaultConfig() Config {
	return Config{
		Address:        DefaultAddress,
		ReconnectDelay: DefaultReconnectDelay,
		DialTimeout:    DefaultDialTimeout,
		WriteTimeout:   defaultWriteTimeout,
		Relay: RelayConfig{
			Channel: DefaultRelayChannel,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Durations use Go
// syntax ("5s", "250ms").
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validateAddress(c.Address); err != nil {
		return fmt.Errorf("%w: address: %v", ErrInvalidConfig, err)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: reconnect_delay must be positive", ErrInvalidConfig)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: dial_timeout must be positive", ErrInvalidConfig)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write_timeout must be positive", ErrInvalidConfig)
	}
	if c.Relay.Enabled() && c.Relay.Channel == "" {
		return fmt.Errorf("%w: relay.channel is required when relay.address is set", ErrInvalidConfig)
	}
	return nil
}

// ClientOptions converts the timing settings into client options.
func (c Config) ClientOptions() []Option {
	return []Option{
		WithReconnectDelay(c.ReconnectDelay),
		WithDialTimeout(c.DialTimeout),
		WithDialer(&WebsocketDialer{WriteTimeout: c.WriteTimeout}),
	}
}
