// Command cmdbridge connects to a local control process, answers its
// built-in commands and optionally relays commands from a Valkey
// channel.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	bridge "github.com/TheAlpha16/cmdbridge"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type flags struct {
	configPath     string
	address        string
	reconnectDelay time.Duration
	relayAddress   string
	relayChannel   string
	debug          bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "cmdbridge",
		Short:        "Keep a command bridge to the local control process",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}

			logger, err := newLogger(f.debug)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&f.address, "address", bridge.DefaultAddress, "websocket address of the control process")
	cmd.Flags().DurationVar(&f.reconnectDelay, "reconnect-delay", bridge.DefaultReconnectDelay, "delay before reconnecting after a lost connection")
	cmd.Flags().StringVar(&f.relayAddress, "relay-address", "", "Valkey address to relay commands from (disabled when empty)")
	cmd.Flags().StringVar(&f.relayChannel, "relay-channel", bridge.DefaultRelayChannel, "Valkey channel to relay commands from")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "enable debug logging")

	return cmd
}

// resolveConfig loads the config file, if any, then applies the flags
// that were set explicitly.
func resolveConfig(cmd *cobra.Command, f flags) (bridge.Config, error) {
	cfg := bridge.DefaultConfig()
	if f.configPath != "" {
		loaded, err := bridge.LoadConfig(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("address") || f.configPath == "" {
		cfg.Address = f.address
	}
	if changed("reconnect-delay") {
		cfg.ReconnectDelay = f.reconnectDelay
	}
	if changed("relay-address") {
		cfg.Relay.Address = f.relayAddress
	}
	if changed("relay-channel") {
		cfg.Relay.Channel = f.relayChannel
	}

	return cfg, cfg.Validate()
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func run(ctx context.Context, cfg bridge.Config, logger *zap.Logger) error {
	opts := append(cfg.ClientOptions(),
		bridge.WithLogger(logger),
		bridge.WithOnError(func(ctx context.Context, cmd bridge.Command, err error) {
			logger.Error("Command failed", zap.String("command", string(cmd.Name)), zap.Error(err))
		}),
	)
	client := bridge.NewClient(cfg.Address, opts...)
	registerBuiltins(client, logger)

	client.Connect()
	defer client.Disconnect()

	relayDone := make(chan error, 1)
	if cfg.Relay.Enabled() {
		valkeyClient, err := bridge.NewValkeyClient(cfg.Relay.Address)
		if err != nil {
			return fmt.Errorf("connect relay: %w", err)
		}
		defer valkeyClient.Close()

		relay := bridge.NewRelay(valkeyClient, cfg.Relay.Channel, client, bridge.WithRelayLogger(logger))
		go func() { relayDone <- relay.Run(ctx) }()
		logger.Info("Relay started", zap.String("relay_address", cfg.Relay.Address), zap.String("channel", cfg.Relay.Channel))
	} else {
		close(relayDone)
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	return <-relayDone
}

func registerBuiltins(client *bridge.Client, logger *zap.Logger) {
	client.Register("ping", func(ctx context.Context, params bridge.Params) error {
		client.Send("pong", bridge.Params{"time": time.Now().UTC().Format(time.RFC3339Nano)})
		return nil
	})
	client.Register("echo", func(ctx context.Context, params bridge.Params) error {
		client.Send("echo", params)
		return nil
	})
	client.Register("log", func(ctx context.Context, params bridge.Params) error {
		logger.Info("Peer log", zap.Any("params", params))
		return nil
	})
}
