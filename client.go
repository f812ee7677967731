package respkv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pior/respkv/resp"
)

// DefaultPort is the port used when none is given.
const DefaultPort = 6379

var (
	ErrClientClosed = errors.New("respkv: client closed")

	// ErrConnectionBroken is returned after a transport or framing failure.
	// The client does not reconnect on its own; call Connect to dial again.
	ErrConnectionBroken = errors.New("respkv: connection broken")

	ErrUnexpectedReply = errors.New("respkv: unexpected reply")
)

// Config holds optional client settings. The zero value is ready to use.
type Config struct {
	// Dialer is the net.Dialer used to open the connection.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Timeout bounds dials and exchanges whose context has no deadline.
	// If zero, such operations wait indefinitely.
	Timeout time.Duration

	// Logger receives connection lifecycle events.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// NewCircuitBreaker creates the circuit breaker guarding exchanges.
	// Called once, when the client is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) CircuitBreaker

	// for testing purposes only
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

type connState uint8

const (
	stateDisconnected connState = iota
	stateConnected
	stateBroken
	stateClosed
)

// Client talks to one server over one connection.
//
// The connection is opened by Connect or lazily by the first operation.
// Exchanges are strictly request/reply and are serialized on the single
// connection; use one Client per goroutine for parallel work.
type Client struct {
	host string
	port int
	addr string

	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	timeout time.Duration
	logger  *slog.Logger
	breaker CircuitBreaker

	mu      sync.Mutex
	conn    *Connection
	state   connState
	lastErr error

	stats *clientStatsCollector
}

// New creates a disconnected client for host:port.
// A port <= 0 selects DefaultPort.
func New(host string, port int, config Config) *Client {
	if port <= 0 {
		port = DefaultPort
	}

	dial := config.dial
	if dial == nil {
		dialer := config.Dialer
		if dialer == nil {
			dialer = &net.Dialer{}
		}
		dial = dialer.DialContext
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var breaker CircuitBreaker
	if config.NewCircuitBreaker != nil {
		breaker = config.NewCircuitBreaker(addr)
	}

	return &Client{
		host:    host,
		port:    port,
		addr:    addr,
		dial:    dial,
		timeout: config.Timeout,
		logger:  logger.With("addr", addr),
		breaker: breaker,
		stats:   newClientStatsCollector(),
	}
}

// NewFromAddr creates a disconnected client from "host:port" or "host".
func NewFromAddr(addr string, config Config) (*Client, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		var aerr *net.AddrError
		if errors.As(err, &aerr) && aerr.Err == "missing port in address" {
			return New(addr, DefaultPort, config), nil
		}
		return nil, fmt.Errorf("respkv: invalid address %q: %w", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("respkv: invalid port in address %q", addr)
	}
	return New(host, port, config), nil
}

// Addr returns the server address as host:port.
func (c *Client) Addr() string {
	return c.addr
}

// IsConnected reports whether the client holds an open connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

// Connect opens the connection. It is a no-op when already connected.
// On a broken client it dials a fresh connection.
//
// Dial failures are returned as *resp.ConnectionError with Op "dial".
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := c.withDefaultTimeout(ctx)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateClosed:
		return ErrClientClosed
	case stateConnected:
		return nil
	}
	return c.dialLocked(ctx)
}

// ensureConnectedLocked dials on first use. It never redials a broken client.
func (c *Client) ensureConnectedLocked(ctx context.Context) error {
	switch c.state {
	case stateConnected:
		return nil
	case stateClosed:
		return ErrClientClosed
	case stateBroken:
		return fmt.Errorf("%w: %w", ErrConnectionBroken, c.lastErr)
	default:
		return c.dialLocked(ctx)
	}
}

func (c *Client) dialLocked(ctx context.Context) error {
	netConn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		c.stats.recordError()
		c.logger.Debug("respkv: dial failed", "error", err)
		return &resp.ConnectionError{Op: "dial", Addr: c.addr, Err: err}
	}

	c.conn = NewConnection(netConn)
	c.state = stateConnected
	c.lastErr = nil
	c.stats.recordConnect()
	c.logger.Debug("respkv: connected")
	return nil
}

// Close closes the connection. Operations after Close return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// exec runs one request/reply exchange, connecting first if needed.
// Error replies are returned as *resp.ServerError and keep the connection.
func (c *Client) exec(ctx context.Context, cmd *resp.Command) (*resp.Reply, error) {
	ctx, cancel := c.withDefaultTimeout(ctx)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectedLocked(ctx); err != nil {
		return nil, err
	}

	conn := c.conn
	run := func() (*resp.Reply, error) {
		return conn.Execute(ctx, cmd)
	}

	var reply *resp.Reply
	var err error
	if c.breaker != nil {
		reply, err = c.breaker.Execute(run)
	} else {
		reply, err = run()
	}

	if err != nil {
		c.stats.recordError()
		if conn.IsClosed() {
			c.state = stateBroken
			c.lastErr = err
			c.logger.Warn("respkv: connection broken", "command", cmd.Verb(), "error", err)
		}
		return nil, err
	}

	if err := reply.Err(); err != nil {
		c.stats.recordError()
		return nil, err
	}
	return reply, nil
}

// withDefaultTimeout applies Config.Timeout when ctx has no deadline.
func (c *Client) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

func unexpectedReply(cmd string, reply *resp.Reply) error {
	return fmt.Errorf("%w to %s: %s", ErrUnexpectedReply, cmd, reply.Kind)
}
