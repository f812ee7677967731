package payload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/bytedance/sonic"
)

var (
	// ErrNullValue is returned by Encode for nil and Null. Callers delete the key instead.
	ErrNullValue = errors.New("payload: null value")

	// ErrUnsupportedValue is returned by Encode for values that have no payload form.
	ErrUnsupportedValue = errors.New("payload: unsupported value type")
)

// EmptyCollection is the payload of an empty collection.
const EmptyCollection = "[]"

// Structured-open markers.
const (
	objectOpen = '{'
	arrayOpen  = '['
)

// jsonAPI sorts map keys so equal maps encode to equal payloads, and decodes
// integers as int64 so they survive the round trip.
var jsonAPI = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseInt64:         true,
}.Froze()

// Encode returns the payload text for v.
//
// Supported inputs:
//   - string, []byte and named string types: unchanged
//   - integer and float kinds: decimal text
//   - maps with string keys, slices and arrays: JSON
//   - Value
//
// nil and Null return ErrNullValue. Everything else (bool, struct, pointer, ...)
// returns ErrUnsupportedValue.
func Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, ErrNullValue
	case Value:
		return encodeValue(t)
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case int:
		return strconv.AppendInt(nil, int64(t), 10), nil
	case int64:
		return strconv.AppendInt(nil, t, 10), nil
	case float64:
		return encodeFloat(t, 64)
	case float32:
		return encodeFloat(float64(t), 32)
	case map[string]any:
		return marshalCollection(t)
	case []any:
		return marshalCollection(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return []byte(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(nil, rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(nil, rv.Uint(), 10), nil
	case reflect.Float32:
		return encodeFloat(rv.Float(), 32)
	case reflect.Float64:
		return encodeFloat(rv.Float(), 64)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s", ErrUnsupportedValue, rv.Type().Key())
		}
		return marshalCollection(v)
	case reflect.Slice, reflect.Array:
		return marshalCollection(v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func encodeValue(v Value) ([]byte, error) {
	switch v.kind {
	case KindString:
		return []byte(v.str), nil
	case KindCollection:
		return marshalCollection(v.coll)
	default:
		return nil, ErrNullValue
	}
}

func encodeFloat(f float64, bitSize int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	return strconv.AppendFloat(nil, f, 'f', -1, bitSize), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// marshalCollection encodes a map or slice as JSON. A nil map or slice is the
// empty collection.
func marshalCollection(c any) ([]byte, error) {
	rv := reflect.ValueOf(c)
	if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return []byte(EmptyCollection), nil
	}

	b, err := jsonAPI.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return b, nil
}

// Decode interprets a payload. It never returns Null: absence is signalled by
// the transport, and an empty payload is an empty string.
//
// Sniffing is by content only. A string stored as text that starts with '['
// and parses as a JSON array comes back as a List, and the same holds for
// '{' text that parses as an object.
func Decode(p []byte) Value {
	if len(p) == 0 {
		return String("")
	}

	switch {
	case p[0] == objectOpen:
		var m map[string]any
		if err := jsonAPI.Unmarshal(p, &m); err == nil && m != nil {
			return Map(m)
		}
	case string(p) == EmptyCollection:
		return List(nil)
	case p[0] == arrayOpen:
		var l []any
		if err := jsonAPI.Unmarshal(p, &l); err == nil && l != nil {
			return List(l)
		}
	}

	return String(string(p))
}

// Wrap applies the transport encoding (standard base64).
func Wrap(raw []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out
}

// DecodeError is returned by Unwrap when a stored payload is not valid base64.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "payload: invalid transport encoding: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Unwrap reverses Wrap.
func Unwrap(wire []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(wire)))
	n, err := base64.StdEncoding.Decode(out, wire)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return out[:n], nil
}
