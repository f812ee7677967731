package payload

import (
	"testing"
)

// FuzzDecode checks Decode never panics and that collections re-encode.
// Run with: go test -fuzz='^FuzzDecode$' -fuzztime=60s ./payload
func FuzzDecode(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte("hello"))
	f.Add([]byte("[]"))
	f.Add([]byte("{}"))
	f.Add([]byte(`{"a":1,"b":[1,2,{"c":null}]}`))
	f.Add([]byte(`["x",1.5,true]`))
	f.Add([]byte("{not json"))
	f.Add([]byte("[1,"))

	f.Fuzz(func(t *testing.T, p []byte) {
		v := Decode(p)
		if v.IsNull() {
			t.Fatal("Decode returned Null")
		}
		if v.IsString() {
			if v.Str() != string(p) {
				t.Fatalf("string payload changed: %q -> %q", p, v.Str())
			}
			return
		}
		if _, err := Encode(v); err != nil {
			t.Fatalf("decoded collection does not re-encode: %v", err)
		}
	})
}

// FuzzWrapUnwrap checks the transport encoding is lossless.
func FuzzWrapUnwrap(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte("hello"))
	f.Add([]byte{0, 0xff, '\r', '\n'})

	f.Fuzz(func(t *testing.T, raw []byte) {
		got, err := Unwrap(Wrap(raw))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(raw) {
			t.Fatalf("round trip mismatch: %q -> %q", raw, got)
		}
	})
}
