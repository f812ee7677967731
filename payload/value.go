package payload

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Kind is the logical type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindCollection:
		return "collection"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a decoded payload.
//
// Numbers are not a separate kind: they travel as decimal text and come back as
// strings.
type Value struct {
	kind Kind
	str  string
	coll any // map[string]any or []any
}

// Null is the absent value. Storing it deletes the key.
var Null = Value{}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int returns the decimal text of n as a string value.
func Int(n int64) Value {
	return String(strconv.FormatInt(n, 10))
}

// Float returns the shortest decimal text of f as a string value.
func Float(f float64) Value {
	return String(formatFloat(f))
}

// Map returns a keyed collection value. A nil map is an empty collection.
func Map(m map[string]any) Value {
	if m == nil {
		m = map[string]any{}
	}
	return Value{kind: KindCollection, coll: m}
}

// List returns an ordered collection value. A nil slice is an empty collection.
func List(l []any) Value {
	if l == nil {
		l = []any{}
	}
	return Value{kind: KindCollection, coll: l}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsString() bool { return v.kind == KindString }

// IsCollection reports whether v is a map or a list.
func (v Value) IsCollection() bool { return v.kind == KindCollection }

// Str returns the text of a string value, and "" for other kinds.
func (v Value) Str() string {
	return v.str
}

// AsMap returns the keyed collection held by v.
func (v Value) AsMap() (map[string]any, bool) {
	m, ok := v.coll.(map[string]any)
	return m, ok
}

// AsList returns the ordered collection held by v.
func (v Value) AsList() ([]any, bool) {
	l, ok := v.coll.([]any)
	return l, ok
}

// Interface returns nil, a string, a map[string]any or a []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindCollection:
		return v.coll
	default:
		return nil
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "<null>"
	case KindString:
		return v.str
	default:
		b, err := marshalCollection(v.coll)
		if err != nil {
			return fmt.Sprintf("%v", v.coll)
		}
		return string(b)
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if v.kind != KindCollection {
		return v
	}
	return Value{kind: KindCollection, coll: cloneAny(v.coll)}
}

func cloneAny(x any) any {
	switch t := x.(type) {
	case map[string]any:
		out := maps.Clone(t)
		for k, e := range out {
			out[k] = cloneAny(e)
		}
		return out
	case []any:
		out := slices.Clone(t)
		for i, e := range out {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return x
	}
}
