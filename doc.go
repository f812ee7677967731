// Package respkv is a small client for RESP key-value servers.
//
// It speaks five commands (KEYS, EXISTS, GET, SET, DEL) over a single
// connection and stores logical values in a single bulk string per key:
// strings and numbers as text, maps and lists as JSON, all base64 encoded on
// the wire (see package payload).
//
// Basic usage:
//
//	client := respkv.New("localhost", respkv.DefaultPort, respkv.Config{})
//	defer client.Close()
//
//	ok, err := client.SetValue(ctx, "user:1", map[string]any{"name": "Ada"})
//	v, found, err := client.GetValue(ctx, "user:1")
//
// The first operation opens the connection, or call Connect to do it
// explicitly. A transport or framing failure leaves the client broken: later
// operations return ErrConnectionBroken until Connect dials again. Nothing is
// retried.
//
// Soft failures are reported as booleans, not errors: storing an empty string,
// storing an unsupported type, deleting a missing key. The empty key is a
// no-op for every operation.
package respkv
