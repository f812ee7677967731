package respkv

import (
	"context"
	"errors"

	"github.com/pior/respkv/payload"
	"github.com/pior/respkv/resp"
)

// Querier is the set of operations offered by Client.
type Querier interface {
	Keys(ctx context.Context) (map[string]struct{}, error)
	Exists(ctx context.Context, key string) (bool, error)
	GetValue(ctx context.Context, key string) (payload.Value, bool, error)
	SetValue(ctx context.Context, key string, value any) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)
	SetRaw(ctx context.Context, key string, data []byte) (bool, error)
}

var _ Querier = (*Client)(nil)

// Keys returns the names of all keys. Order is not meaningful.
func (c *Client) Keys(ctx context.Context) (map[string]struct{}, error) {
	reply, err := c.exec(ctx, resp.NewStringCommand(resp.CmdKeys, resp.AllKeysPattern))
	if err != nil {
		return nil, err
	}

	if reply.Kind != resp.KindArray {
		c.stats.recordError()
		return nil, unexpectedReply(resp.CmdKeys, reply)
	}

	keys := make(map[string]struct{}, len(reply.Array))
	for _, elem := range reply.Array {
		if elem.Kind != resp.KindBulk {
			c.stats.recordError()
			return nil, unexpectedReply(resp.CmdKeys, elem)
		}
		if elem.IsNull() {
			continue
		}
		keys[string(elem.Bulk)] = struct{}{}
	}

	c.stats.recordKeys()
	return keys, nil
}

// Exists reports whether key exists. The empty key always exists and is not
// sent to the server.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}

	reply, err := c.exec(ctx, resp.NewStringCommand(resp.CmdExists, key))
	if err != nil {
		return false, err
	}

	c.stats.recordExists()
	return reply.IsInteger(1), nil
}

// GetValue fetches and decodes the value stored at key.
// found is false for the empty key and for missing keys.
func (c *Client) GetValue(ctx context.Context, key string) (value payload.Value, found bool, err error) {
	if key == "" {
		return payload.Null, false, nil
	}

	raw, found, err := c.GetRaw(ctx, key)
	if err != nil || !found {
		return payload.Null, false, err
	}
	return payload.Decode(raw), true, nil
}

// SetValue stores value at key.
//
//   - empty key: nothing is sent, returns true
//   - nil or payload.Null: deletes the key, returns the Delete result
//   - strings and numbers: stored as text
//   - maps with string keys, slices, arrays: stored as JSON
//
// Any other type returns false without touching the connection. Empty strings
// are rejected by SetRaw and also return false.
func (c *Client) SetValue(ctx context.Context, key string, value any) (bool, error) {
	if key == "" {
		return true, nil
	}

	data, err := payload.Encode(value)
	switch {
	case errors.Is(err, payload.ErrNullValue):
		return c.Delete(ctx, key)
	case errors.Is(err, payload.ErrUnsupportedValue):
		c.logger.Debug("respkv: value not stored", "key", key, "error", err)
		return false, nil
	case err != nil:
		return false, err
	}

	return c.SetRaw(ctx, key, data)
}

// Delete removes key and reports whether exactly one key was removed.
// The empty key returns true without contacting the server.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}

	reply, err := c.exec(ctx, resp.NewStringCommand(resp.CmdDel, key))
	if err != nil {
		return false, err
	}

	c.stats.recordDelete()
	return reply.IsInteger(1), nil
}

// GetRaw returns the bytes stored at key, with the transport encoding removed.
// found is false for the empty key and for missing keys.
func (c *Client) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	reply, err := c.exec(ctx, resp.NewStringCommand(resp.CmdGet, key))
	if err != nil {
		return nil, false, err
	}

	if reply.Kind != resp.KindBulk {
		c.stats.recordError()
		return nil, false, unexpectedReply(resp.CmdGet, reply)
	}

	if reply.IsNull() {
		c.stats.recordGet(false)
		return nil, false, nil
	}

	data, err := payload.Unwrap(reply.Bulk)
	if err != nil {
		c.stats.recordError()
		return nil, false, err
	}

	c.stats.recordGet(true)
	return data, true, nil
}

// SetRaw stores data at key under the transport encoding and reports whether
// the server acknowledged it. An empty key or empty data returns false without
// contacting the server.
func (c *Client) SetRaw(ctx context.Context, key string, data []byte) (bool, error) {
	if key == "" || len(data) == 0 {
		return false, nil
	}

	cmd := resp.NewCommand(resp.CmdSet, []byte(key), payload.Wrap(data))
	reply, err := c.exec(ctx, cmd)
	if err != nil {
		return false, err
	}

	c.stats.recordSet()
	return reply.IsOK(), nil
}
