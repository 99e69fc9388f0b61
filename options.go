package bridge

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	// DefaultAddress is the loopback endpoint of the control process.
	DefaultAddress        = "ws://localhost:8997"
	DefaultReconnectDelay = 5 * time.Second
	DefaultDialTimeout    = 10 * time.Second
)

// ErrorHandler is a user-provided callback for dispatch failures. cmd
// carries the command name and params when they were decoded.
type ErrorHandler func(ctx context.Context, cmd Command, err error)
type Option func(*Options)

type Options struct {
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	Dialer         Dialer
	Clock          clockwork.Clock
	Logger         *zap.Logger
	OnError        ErrorHandler
}

func defaultOptions() Options {
	return Options{
		ReconnectDelay: DefaultReconnectDelay,
		DialTimeout:    DefaultDialTimeout,
		Dialer:         &WebsocketDialer{},
		Clock:          clockwork.NewRealClock(),
		Logger:         zap.NewNop(),
		OnError: func(ctx context.Context, cmd Command, err error) {
			// Default: no-op
		},
	}
}

// WithReconnectDelay sets the fixed delay between an unexpected close
// and the next connection attempt.
func WithReconnectDelay(delay time.Duration) Option {
	return func(o *Options) {
		if delay > 0 {
			o.ReconnectDelay = delay
		}
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.DialTimeout = timeout
		}
	}
}

func WithDialer(dialer Dialer) Option {
	return func(o *Options) {
		if dialer != nil {
			o.Dialer = dialer
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(o *Options) {
		if c != nil {
			o.Clock = c
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

func WithOnError(handler ErrorHandler) Option {
	return func(o *Options) {
		if handler != nil {
			o.OnError = handler
		}
	}
}
