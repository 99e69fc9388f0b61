package bridge

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"
)

const (
	DefaultRelayChannel = "cmdbridge:commands"

	relayMinRetryDelay = 100 * time.Millisecond
	relayMaxRetryDelay = 30 * time.Second
)

// Sender is the outbound half of a Client.
type Sender interface {
	Send(name CommandName, params Params)
}

type receiver interface {
	Receive(ctx context.Context, subscribe valkey.Completed, fn func(msg valkey.PubSubMessage)) error
}

// Relay forwards commands published on a Valkey channel to the control
// peer through a Sender. Messages that arrive while the bridge is
// disconnected are dropped by the Sender.
type Relay struct {
	receiver  receiver
	subscribe valkey.Completed
	channel   string
	sender    Sender
	options   RelayOptions
	logger    *zap.Logger
}

type RelayOption func(*RelayOptions)

type RelayOptions struct {
	Clock   clockwork.Clock
	Logger  *zap.Logger
	OnError ErrorHandler
}

func defaultRelayOptions() RelayOptions {
	return RelayOptions{
		Clock:   clockwork.NewRealClock(),
		Logger:  zap.NewNop(),
		OnError: func(ctx context.Context, cmd Command, err error) {},
	}
}

func WithRelayClock(c clockwork.Clock) RelayOption {
	return func(o *RelayOptions) {
		if c != nil {
			o.Clock = c
		}
	}
}

func WithRelayLogger(logger *zap.Logger) RelayOption {
	return func(o *RelayOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithRelayOnError is called for every message that fails to decode.
func WithRelayOnError(handler ErrorHandler) RelayOption {
	return func(o *RelayOptions) {
		if handler != nil {
			o.OnError = handler
		}
	}
}

// NewRelay builds a relay that forwards commands published on channel.
func NewRelay(client valkey.Client, channel string, sender Sender, opts ...RelayOption) *Relay {
	return newRelay(client, client.B().Subscribe().Channel(channel).Build(), channel, sender, opts...)
}

func newRelay(rcv receiver, subscribe valkey.Completed, channel string, sender Sender, opts ...RelayOption) *Relay {
	options := defaultRelayOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Relay{
		receiver:  rcv,
		subscribe: subscribe,
		channel:   channel,
		sender:    sender,
		options:   options,
		logger:    options.Logger.With(zap.String("channel", channel)),
	}
}

// Run subscribes and forwards messages until ctx is cancelled. Lost
// subscriptions are retried with backoff.
func (r *Relay) Run(ctx context.Context) error {
	retryDelay := relayMinRetryDelay

	for {
		if ctx.Err() != nil {
			return nil
		}

		// Blocks until the subscription breaks or ctx is cancelled.
		err := r.receiver.Receive(ctx, r.subscribe, r.handleMessage)
		if ctx.Err() != nil {
			return nil
		}

		if err != nil {
			r.logger.Warn("Relay subscription lost", zap.Error(err), zap.Duration("retry_in", retryDelay))
			if !r.sleep(ctx, retryDelay) {
				return nil
			}
			retryDelay *= 2
			if retryDelay > relayMaxRetryDelay {
				retryDelay = relayMaxRetryDelay
			}
			continue
		}

		retryDelay = relayMinRetryDelay
		if !r.sleep(ctx, relayMinRetryDelay) {
			return nil
		}
	}
}

func (r *Relay) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-r.options.Clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Relay) handleMessage(msg valkey.PubSubMessage) {
	if msg.Channel != r.channel {
		return
	}

	command, err := DecodeCommand([]byte(msg.Message))
	if err != nil {
		r.logger.Debug("Dropping relay message", zap.Error(err))
		r.options.OnError(context.Background(), Command{}, err)
		return
	}

	r.sender.Send(command.Name, command.Params)
}

// NewValkeyClient creates a valkey client for address. The first
// option, if given, is used as the base configuration.
func NewValkeyClient(address string, options ...valkey.ClientOption) (valkey.Client, error) {
	var clientOption valkey.ClientOption
	if len(options) > 0 {
		clientOption = options[0]
	}
	if len(clientOption.InitAddress) == 0 {
		clientOption.InitAddress = []string{address}
	}

	return valkey.NewClient(clientOption)
}
