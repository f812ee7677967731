package resp

import (
	"strconv"
	"strings"
)

// Reply is a decoded reply frame.
//
// Exactly one of the payload fields is meaningful, selected by Kind:
//   - KindStatus, KindError: Text
//   - KindInteger: Integer
//   - KindBulk: Bulk (nil for a null bulk string, non-nil and possibly empty otherwise)
//   - KindArray: Array (nil for a null array)
type Reply struct {
	Kind    Kind
	Text    string
	Integer int64
	Bulk    []byte
	Array   []*Reply

	null bool
}

// IsNull reports whether the reply is a null bulk string or a null array.
func (r *Reply) IsNull() bool {
	return r.null
}

// IsStatus reports whether the reply is the given status line.
func (r *Reply) IsStatus(text string) bool {
	return r.Kind == KindStatus && r.Text == text
}

// IsOK reports whether the reply is +OK.
func (r *Reply) IsOK() bool {
	return r.IsStatus(StatusOK)
}

// IsInteger reports whether the reply is the integer n.
func (r *Reply) IsInteger(n int64) bool {
	return r.Kind == KindInteger && r.Integer == n
}

// Err returns a *ServerError for error replies and nil otherwise.
func (r *Reply) Err() error {
	if r.Kind != KindError {
		return nil
	}
	return &ServerError{Message: r.Text}
}

// String renders the reply for logs and the CLI.
func (r *Reply) String() string {
	switch r.Kind {
	case KindStatus:
		return r.Text
	case KindError:
		return "(error) " + r.Text
	case KindInteger:
		return "(integer) " + strconv.FormatInt(r.Integer, 10)
	case KindBulk:
		if r.null {
			return "(nil)"
		}
		return strconv.Quote(string(r.Bulk))
	case KindArray:
		if r.null {
			return "(nil)"
		}
		if len(r.Array) == 0 {
			return "(empty array)"
		}
		var b strings.Builder
		for i, e := range r.Array {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strconv.Itoa(i + 1))
			b.WriteString(") ")
			b.WriteString(e.String())
		}
		return b.String()
	default:
		return "(unknown)"
	}
}

// NullBulk returns a null bulk string reply.
func NullBulk() *Reply {
	return &Reply{Kind: KindBulk, null: true}
}

// NullArray returns a null array reply.
func NullArray() *Reply {
	return &Reply{Kind: KindArray, null: true}
}
