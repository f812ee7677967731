package payload

import (
	"reflect"
	"strconv"
)

// Equal reports whether a and b carry the same content. Collections compare
// by key and element, numbers inside collections compare by numeric value
// regardless of their Go type.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindString:
		return a.str == b.str
	default:
		return reflect.DeepEqual(normalize(a.coll), normalize(b.coll))
	}
}

// normalize rewrites every number to float64 and every map or slice to
// map[string]any / []any so values built by callers compare equal to decoded ones.
func normalize(x any) any {
	switch t := x.(type) {
	case nil, bool, string:
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return x
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	default:
		return x
	}
}

// FromAny builds a Value from a caller-provided Go value, using the same rules
// as Encode. It returns ErrUnsupportedValue for values Encode rejects.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return t, nil
	}

	b, err := Encode(v)
	if err != nil {
		return Value{}, err
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		if _, isBytes := v.([]byte); !isBytes {
			return Value{kind: KindCollection, coll: normalizeCollection(v)}, nil
		}
	}
	return String(string(b)), nil
}

func normalizeCollection(v any) any {
	n := normalize(v)
	switch n.(type) {
	case map[string]any, []any:
		return n
	default:
		return []any{}
	}
}

// Number parses a string value holding decimal text.
func (v Value) Number() (float64, bool) {
	if v.kind != KindString {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.str, 64)
	return f, err == nil
}
