package bridge

import "context"

// Dialer opens connections to the control peer.
type Dialer interface {
	// Dial connects to address. It should give up when ctx is done.
	Dial(ctx context.Context, address string) (Conn, error)
}

// Conn is one open duplex text connection.
type Conn interface {
	// ReadMessage blocks until the next text message arrives or the
	// connection fails. After Close it returns an error.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one text message. Safe for concurrent use.
	WriteMessage(data []byte) error

	// Close releases the connection. Calling it more than once is safe.
	Close() error
}
