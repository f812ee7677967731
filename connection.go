package respkv

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pior/respkv/resp"
)

var (
	ErrConnectionClosed = errors.New("respkv: connection closed")
)

// Connection is a single RESP stream. Each Execute writes one command and reads
// exactly one reply; calls are serialized.
//
// Any transport or framing failure closes the connection: the position in the
// stream is unknown afterwards.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	mu     sync.Mutex
	closed bool
}

// NewConnection wraps an established net.Conn.
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
}

// Execute sends cmd and returns the reply.
//
// Error replies from the server are returned as a Reply (see resp.Reply.Err),
// not as an error. Returned errors are *resp.ConnectionError or *resp.ProtocolError,
// both of which close the connection, or a context error if ctx is already done.
func (c *Connection) Execute(ctx context.Context, cmd *resp.Command) (*resp.Reply, error) {
	// Check if context is already cancelled
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	// Set deadline based on context, clear it if the context has none
	var deadline time.Time
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.closeLocked()
		return nil, &resp.ConnectionError{Op: "write", Addr: c.remoteAddr(), Err: err}
	}

	if err := resp.WriteCommand(c.writer, cmd); err != nil {
		if errors.Is(err, resp.ErrEmptyCommand) {
			return nil, err
		}
		c.closeLocked()
		return nil, &resp.ConnectionError{Op: "write", Addr: c.remoteAddr(), Err: err}
	}

	reply, err := resp.ReadReply(c.reader)
	if err != nil {
		c.closeLocked()
		var perr *resp.ProtocolError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &resp.ConnectionError{Op: "read", Addr: c.remoteAddr(), Err: err}
	}

	return reply, nil
}

// IsClosed returns whether the connection is closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// closeLocked closes the underlying conn (must be called with lock held)
func (c *Connection) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}

func (c *Connection) remoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
