package respkv

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/pior/respkv/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SetValueGetValue_String(t *testing.T) {
	client, srv := newServerClient(t)
	ctx := context.Background()

	ok, err := client.SetValue(ctx, "k", "hello")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, found := srv.Stored("k")
	require.True(t, found)
	assert.Equal(t, "aGVsbG8=", string(stored))

	v, found, err := client.GetValue(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, v.IsString())
	assert.Equal(t, "hello", v.Str())
}

func TestClient_SetValueGetValue_Map(t *testing.T) {
	client, srv := newServerClient(t)
	ctx := context.Background()

	ok, err := client.SetValue(ctx, "m", map[string]any{"b": "x", "a": 1})
	require.NoError(t, err)
	assert.True(t, ok)

	stored, _ := srv.Stored("m")
	raw, err := base64.StdEncoding.DecodeString(string(stored))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":"x"}`, string(raw))

	v, found, err := client.GetValue(ctx, "m")
	require.NoError(t, err)
	require.True(t, found)

	m, ok := v.AsMap()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": int64(1), "b": "x"}, m)
}

func TestClient_SetValueGetValue_List(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	ok, err := client.SetValue(ctx, "l", []any{"a", 2})
	require.NoError(t, err)
	assert.True(t, ok)

	v, found, err := client.GetValue(ctx, "l")
	require.NoError(t, err)
	require.True(t, found)

	l, ok := v.AsList()
	require.True(t, ok)
	assert.Equal(t, []any{"a", int64(2)}, l)
}

func TestClient_SetValue_Numbers(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	tests := []struct {
		value any
		want  string
	}{
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(200), "200"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
	}

	for _, tt := range tests {
		ok, err := client.SetValue(ctx, "n", tt.value)
		require.NoError(t, err)
		require.True(t, ok)

		v, found, err := client.GetValue(ctx, "n")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, tt.want, v.Str(), "value %v", tt.value)
	}
}

func TestClient_EmptyCollectionIsAmbiguous(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	for _, value := range []any{"[]", []any{}, []string(nil)} {
		ok, err := client.SetValue(ctx, "e", value)
		require.NoError(t, err)
		require.True(t, ok)

		v, found, err := client.GetValue(ctx, "e")
		require.NoError(t, err)
		require.True(t, found)

		l, isList := v.AsList()
		require.True(t, isList, "value %#v", value)
		assert.Empty(t, l)
	}
}

func TestClient_GetValue_JSONLookingString(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	ok, err := client.SetValue(ctx, "s", `{"a":1}`)
	require.NoError(t, err)
	require.True(t, ok)

	v, _, err := client.GetValue(ctx, "s")
	require.NoError(t, err)
	assert.True(t, v.IsCollection(), "content sniffing turns a JSON-looking string into a map")

	ok, err = client.SetValue(ctx, "s", "{not json")
	require.NoError(t, err)
	require.True(t, ok)

	v, _, err = client.GetValue(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, payload.String("{not json"), v)
}

func TestClient_GetValue_Missing(t *testing.T) {
	client, _ := newServerClient(t)

	v, found, err := client.GetValue(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, v.IsNull())
}

func TestClient_SetValue_NullDeletes(t *testing.T) {
	client, srv := newServerClient(t)
	ctx := context.Background()

	_, err := client.SetValue(ctx, "k", "v")
	require.NoError(t, err)

	ok, err := client.SetValue(ctx, "k", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, srv.Len())

	ok, err = client.SetValue(ctx, "k", payload.Null)
	require.NoError(t, err)
	assert.False(t, ok, "key already gone")
}

func TestClient_SetValue_Unsupported(t *testing.T) {
	client := noDialClient(t)
	ctx := context.Background()

	type point struct{ X, Y int }
	for _, v := range []any{true, point{1, 2}, &point{}, make(chan int), map[int]string{1: "a"}} {
		ok, err := client.SetValue(ctx, "k", v)
		require.NoError(t, err)
		assert.False(t, ok, "%T", v)
	}

	assert.False(t, client.IsConnected())
}

func TestClient_SetValue_EmptyString(t *testing.T) {
	client := noDialClient(t)

	ok, err := client.SetValue(context.Background(), "k", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Delete(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	_, err := client.SetRaw(ctx, "k", []byte("v"))
	require.NoError(t, err)

	ok, err := client.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Exists(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	ok, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.SetRaw(ctx, "k", []byte("v"))
	require.NoError(t, err)

	ok, err = client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Keys(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	keys, err := client.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, k := range []string{"a", "b", "c/d"} {
		_, err := client.SetRaw(ctx, k, []byte("x"))
		require.NoError(t, err)
	}

	keys, err = client.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c/d": {}}, keys)
}

func TestClient_RawRoundTrip(t *testing.T) {
	client, srv := newServerClient(t)
	ctx := context.Background()

	data := []byte{0x00, 0xff, '\r', '\n', 'x'}
	ok, err := client.SetRaw(ctx, "bin", data)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, _ := srv.Stored("bin")
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), string(stored))

	got, found, err := client.GetRaw(ctx, "bin")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, data, got)
}

func TestClient_GetRaw_LargeValue(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	data := make([]byte, 3*1024*1024+17)
	for i := range data {
		data[i] = byte(i * 31)
	}

	ok, err := client.SetRaw(ctx, "big", data)
	require.NoError(t, err)
	require.True(t, ok)

	got, found, err := client.GetRaw(ctx, "big")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, data, got)
}

func TestClient_GetRaw_InvalidEncoding(t *testing.T) {
	client, srv := newServerClient(t)
	srv.Put("bad", []byte("not*base64"))

	_, found, err := client.GetRaw(context.Background(), "bad")
	assert.False(t, found)

	var derr *payload.DecodeError
	require.ErrorAs(t, err, &derr)
	assert.True(t, client.IsConnected())
}

func TestClient_SetRaw_EmptyData(t *testing.T) {
	client := noDialClient(t)

	ok, err := client.SetRaw(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.SetRaw(context.Background(), "k", []byte{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_EmptyKey(t *testing.T) {
	client := noDialClient(t)
	ctx := context.Background()

	ok, err := client.Exists(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)

	v, found, err := client.GetValue(ctx, "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, v.IsNull())

	raw, found, err := client.GetRaw(ctx, "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, raw)

	ok, err = client.SetValue(ctx, "", "x")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetRaw(ctx, "", []byte("x"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.Delete(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.False(t, client.IsConnected())
	assert.Equal(t, ClientStats{}, client.Stats())
}
