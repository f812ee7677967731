package resp

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for RESP operations.
// They tell the caller whether the byte stream is still usable after a failure.

// ServerError is an error reply (-ERR ..., -WRONGTYPE ...) sent by the server.
// The reply was a complete frame, so the stream is still in sync.
//
// Connection handling: connection can be REUSED
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// Kind returns the error prefix (the first word of the message), e.g. "ERR" or "WRONGTYPE".
func (e *ServerError) Kind() string {
	kind, _, _ := strings.Cut(e.Message, " ")
	return kind
}

// ShouldCloseConnection returns false - a server error does not corrupt the stream
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// ProtocolError is a malformed or truncated reply.
//
// Common causes:
//   - Unknown type tag
//   - Invalid or out-of-range length
//   - Missing CRLF terminator
//   - Stream ended inside a bulk body
//
// Connection handling: CLOSE connection, the stream position is unknown
type ProtocolError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "protocol error: " + e.Message + ": " + e.Err.Error()
	}
	return "protocol error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - protocol errors leave the stream desynchronised
func (e *ProtocolError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps transport failures: dial, read, write.
//
// Connection handling: connection is already broken, CLOSE it
type ConnectionError struct {
	Op   string // dial, read, write
	Addr string // remote address, if known
	Err  error  // Underlying error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("connection error during %s to %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection survives them.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns true for ProtocolError, ConnectionError and unknown errors.
// Returns false for ServerError and nil.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}
