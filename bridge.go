// Package bridge keeps a persistent websocket link to an external
// control process, dispatches the commands it sends to registered
// handlers, and acknowledges each successful dispatch.
//
// The client reconnects on its own after every unexpected close, at a
// fixed delay, until Disconnect is called.
package bridge

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// State is the lifecycle state of the client's connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Client is a reconnecting command bridge client. It is safe for
// concurrent use. None of its methods return errors: transport
// failures turn into reconnects and bad input is dropped.
type Client struct {
	address  string
	options  Options
	logger   *zap.Logger
	registry *Registry

	mu    sync.Mutex
	state State
	conn  Conn
	// generation identifies the current connection attempt. Events
	// from older attempts are ignored.
	generation  uint64
	cancelDial  context.CancelFunc
	cancelConn  context.CancelFunc
	reconnect   clockwork.Timer
	reconnectID uint64
	// stopped is set by Disconnect and cleared by Connect.
	stopped bool
}

// NewClient creates a client for address. An empty address selects
// DefaultAddress. The client stays idle until Connect is called.
func NewClient(address string, opts ...Option) *Client {
	if address == "" {
		address = DefaultAddress
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		address:  address,
		options:  options,
		logger:   options.Logger.With(zap.String("address", address)),
		registry: NewRegistry(),
	}
}

// Address returns the address the client connects to.
func (c *Client) Address() string { return c.address }

// Register binds handler to name, replacing any earlier handler.
func (c *Client) Register(name CommandName, handler Handler) {
	c.registry.Register(name, handler)
}

// Unregister removes the handler for name, if any.
func (c *Client) Unregister(name CommandName) {
	c.registry.Unregister(name)
}

// IsConnected is true between a successful open and the next close,
// error or Disconnect.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send transmits a command to the peer if the connection is open.
// Otherwise the command is dropped. Nothing is queued.
func (c *Client) Send(name CommandName, params Params) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Debug("Dropping send while not connected", zap.String("command", string(name)))
		return
	}

	data, err := EncodeCommand(Command{Name: name, Params: params})
	if err != nil {
		c.logger.Warn("Failed to encode command", zap.String("command", string(name)), zap.Error(err))
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		c.logger.Debug("Send failed", zap.String("command", string(name)), zap.Error(err))
	}
}

// Connect starts a connection attempt and returns without waiting for
// it. It does nothing while a connection is open or being opened. A
// pending reconnect is replaced by the immediate attempt.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = false
	c.connectLocked()
}

// Disconnect cancels any pending reconnect, closes the connection and
// stops all further reconnects until Connect is called again. It is
// safe to call at any time.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	c.generation++
	c.stopReconnectLocked()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.cancelConn != nil {
		c.cancelConn()
		c.cancelConn = nil
	}
	conn := c.conn
	c.conn = nil
	wasState := c.state
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Debug("Close failed", zap.Error(err))
		}
	}
	if wasState != StateDisconnected {
		c.logger.Info("Disconnected")
	}
}

func (c *Client) connectLocked() {
	if c.state != StateDisconnected {
		return
	}
	c.stopReconnectLocked()

	if err := validateAddress(c.address); err != nil {
		c.logger.Warn("Cannot connect", zap.Error(err))
		c.scheduleReconnectLocked()
		return
	}

	c.generation++
	generation := c.generation
	ctx, cancel := context.WithTimeout(context.Background(), c.options.DialTimeout)
	c.cancelDial = cancel
	c.state = StateConnecting

	go c.dial(ctx, generation)
}

func (c *Client) dial(ctx context.Context, generation uint64) {
	c.logger.Debug("Dialing")
	conn, err := c.options.Dialer.Dial(ctx, c.address)

	c.mu.Lock()
	if generation != c.generation {
		// Disconnect ran while dialing.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	c.cancelDial()
	c.cancelDial = nil

	if err != nil {
		c.state = StateDisconnected
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.logger.Info("Connection attempt failed", zap.Error(err))
		return
	}

	connCtx, cancelConn := context.WithCancel(context.Background())
	c.conn = conn
	c.cancelConn = cancelConn
	c.state = StateConnected
	c.stopReconnectLocked()
	c.mu.Unlock()

	c.logger.Info("Connected", zap.Any("commands", c.registry.Names()))
	c.readLoop(connCtx, conn, generation)
}

// readLoop dispatches messages in arrival order until the connection
// fails or is closed.
func (c *Client) readLoop(ctx context.Context, conn Conn, generation uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosed(conn, generation, err)
			return
		}
		c.dispatch(ctx, conn, data)
	}
}

func (c *Client) handleClosed(conn Conn, generation uint64, err error) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}
	if c.cancelConn != nil {
		c.cancelConn()
		c.cancelConn = nil
	}
	c.conn = nil
	c.state = StateDisconnected
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	conn.Close()
	c.logger.Info("Connection closed", zap.Error(err))
}

func (c *Client) dispatch(ctx context.Context, conn Conn, data []byte) {
	command, err := DecodeCommand(data)
	if err != nil {
		c.logger.Debug("Dropping inbound payload", zap.Error(err))
		return
	}

	handler, ok := c.registry.Lookup(command.Name)
	if !ok {
		c.logger.Debug("No handler for command", zap.String("command", string(command.Name)))
		return
	}

	if err := c.invoke(ctx, handler, command); err != nil {
		c.logger.Warn("Handler failed",
			zap.String("command", string(command.Name)),
			zap.Error(err))
		c.options.OnError(ctx, command, err)
		return
	}

	ack, err := encodeAck(command.Name)
	if err != nil {
		c.logger.Warn("Failed to encode ack", zap.String("command", string(command.Name)), zap.Error(err))
		return
	}
	if err := conn.WriteMessage(ack); err != nil {
		c.logger.Debug("Ack failed", zap.String("command", string(command.Name)), zap.Error(err))
	}
}

func (c *Client) invoke(ctx context.Context, handler Handler, command Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanicked, r)
		}
	}()
	return handler(ctx, command.Params)
}

// scheduleReconnectLocked arms the reconnect timer unless one is
// already pending or the client was stopped.
func (c *Client) scheduleReconnectLocked() {
	if c.stopped || c.reconnect != nil {
		return
	}
	c.reconnectID++
	id := c.reconnectID
	c.reconnect = c.options.Clock.AfterFunc(c.options.ReconnectDelay, func() {
		c.fireReconnect(id)
	})
	c.logger.Info("Reconnect scheduled", zap.Duration("delay", c.options.ReconnectDelay))
}

func (c *Client) fireReconnect(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reconnect == nil || id != c.reconnectID {
		return
	}
	c.reconnect = nil
	if c.stopped {
		return
	}
	c.connectLocked()
}

func (c *Client) stopReconnectLocked() {
	if c.reconnect == nil {
		return
	}
	c.reconnect.Stop()
	c.reconnect = nil
}

func validateAddress(address string) error {
	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidAddress, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidAddress)
	}
	return nil
}
