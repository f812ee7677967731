package respkv

import (
	"context"
	"errors"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/pior/respkv/internal/testutils"
	"github.com/pior/respkv/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	client := New("example.com", 0, Config{})
	assert.Equal(t, "example.com:6379", client.Addr())
	assert.False(t, client.IsConnected())

	client = New("::1", 6380, Config{})
	assert.Equal(t, "[::1]:6380", client.Addr())
}

func TestNewFromAddr(t *testing.T) {
	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{addr: "localhost:7000", want: "localhost:7000"},
		{addr: "localhost", want: "localhost:6379"},
		{addr: "[::1]:6380", want: "[::1]:6380"},
		{addr: "localhost:abc", wantErr: true},
		{addr: "localhost:0", wantErr: true},
		{addr: "localhost:70000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			client, err := NewFromAddr(tt.addr, Config{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.Addr())
		})
	}
}

func TestClient_LazyConnect(t *testing.T) {
	client, srv := newServerClient(t)

	assert.False(t, client.IsConnected())
	assert.Equal(t, 0, srv.Accepted())

	_, err := client.Exists(context.Background(), "k")
	require.NoError(t, err)

	assert.True(t, client.IsConnected())
	assert.Equal(t, uint64(1), client.Stats().Connects)
}

func TestClient_Connect(t *testing.T) {
	client, srv := newServerClient(t)
	ctx := context.Background()

	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Connect(ctx))
	assert.True(t, client.IsConnected())

	_, err := client.Keys(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return srv.Accepted() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), client.Stats().Connects)
}

func TestClient_WireFormat(t *testing.T) {
	mock := testutils.NewConnectionMock(":1\r\n")
	client := newMockClient(t, mock)

	ok, err := client.Exists(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "*2\r\n$6\r\nEXISTS\r\n$1\r\nk\r\n", mock.GetWrittenRequest())
}

func TestClient_SetRawWireFormat(t *testing.T) {
	mock := testutils.NewConnectionMock("+OK\r\n")
	client := newMockClient(t, mock)

	ok, err := client.SetRaw(context.Background(), "k", []byte("hello"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$8\r\naGVsbG8=\r\n", mock.GetWrittenRequest())
}

func TestClient_ReplyInterpretation(t *testing.T) {
	ctx := context.Background()

	t.Run("set requires OK", func(t *testing.T) {
		client := newMockClient(t, testutils.NewConnectionMock("+QUEUED\r\n"))
		ok, err := client.SetRaw(ctx, "k", []byte("v"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete requires exactly one", func(t *testing.T) {
		client := newMockClient(t, testutils.NewConnectionMock(":2\r\n", ":0\r\n", bulk("1")))
		for range 3 {
			ok, err := client.Delete(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		}
	})

	t.Run("exists requires integer one", func(t *testing.T) {
		client := newMockClient(t, testutils.NewConnectionMock("+1\r\n", ":0\r\n"))
		for range 2 {
			ok, err := client.Exists(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		}
	})

	t.Run("get on non bulk reply", func(t *testing.T) {
		client := newMockClient(t, testutils.NewConnectionMock(":1\r\n"))
		_, _, err := client.GetRaw(ctx, "k")
		require.ErrorIs(t, err, ErrUnexpectedReply)
		assert.True(t, client.IsConnected())
	})

	t.Run("keys on non array reply", func(t *testing.T) {
		client := newMockClient(t, testutils.NewConnectionMock(bulk("a")))
		_, err := client.Keys(ctx)
		require.ErrorIs(t, err, ErrUnexpectedReply)
	})

	t.Run("keys skips null elements", func(t *testing.T) {
		client := newMockClient(t, testutils.NewConnectionMock("*3\r\n"+bulk("a")+"$-1\r\n"+bulk("b")))
		keys, err := client.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, keys)
	})
}

func TestClient_ServerErrorKeepsConnection(t *testing.T) {
	mock := testutils.NewConnectionMock("-ERR boom\r\n", ":1\r\n")
	client := newMockClient(t, mock)
	ctx := context.Background()

	_, err := client.Exists(ctx, "k")
	var serr *resp.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "ERR", serr.Kind())
	assert.False(t, resp.ShouldCloseConnection(err))

	assert.True(t, client.IsConnected())
	assert.False(t, mock.IsClosed())

	ok, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_ServerErrorFromServer(t *testing.T) {
	client, srv := newServerClient(t)
	srv.FailWith(resp.CmdSet, "READONLY You can't write against a read only replica.")

	ok, err := client.SetValue(context.Background(), "k", "v")
	assert.False(t, ok)

	var serr *resp.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "READONLY", serr.Kind())
	assert.True(t, client.IsConnected())
}

func TestClient_BrokenConnection(t *testing.T) {
	first := testutils.NewConnectionMock()
	second := testutils.NewConnectionMock(":1\r\n")
	client := newMockClient(t, first, second)
	ctx := context.Background()

	_, err := client.Exists(ctx, "k")
	var cerr *resp.ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "read", cerr.Op)
	assert.True(t, first.IsClosed())
	assert.False(t, client.IsConnected())

	// No automatic reconnect
	_, err = client.Exists(ctx, "k")
	require.ErrorIs(t, err, ErrConnectionBroken)
	require.ErrorAs(t, err, &cerr)

	require.NoError(t, client.Connect(ctx))
	ok, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	stats := client.Stats()
	assert.Equal(t, uint64(2), stats.Connects)
	assert.Equal(t, uint64(1), stats.Errors)
}

func TestClient_ProtocolErrorBreaksConnection(t *testing.T) {
	mock := testutils.NewConnectionMock("$abc\r\n")
	client := newMockClient(t, mock)

	_, _, err := client.GetRaw(context.Background(), "k")
	var perr *resp.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.True(t, resp.ShouldCloseConnection(err))
	assert.True(t, mock.IsClosed())
	assert.False(t, client.IsConnected())
}

func TestClient_WriteFailureBreaksConnection(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.WriteErr = errors.New("broken pipe")
	client := newMockClient(t, mock)

	_, err := client.Delete(context.Background(), "k")
	var cerr *resp.ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "write", cerr.Op)
	assert.False(t, client.IsConnected())
}

func TestClient_ServerDropsConnection(t *testing.T) {
	client, srv := newServerClient(t)
	ctx := context.Background()

	_, err := client.SetRaw(ctx, "k", []byte("v"))
	require.NoError(t, err)

	srv.DropConnections()

	_, _, err = client.GetRaw(ctx, "k")
	require.Error(t, err)
	assert.True(t, resp.ShouldCloseConnection(err))

	require.NoError(t, client.Connect(ctx))
	got, found, err := client.GetRaw(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), got)
}

func TestClient_DeadlineFailureBreaksConnection(t *testing.T) {
	mock := testutils.NewConnectionMock(":1\r\n")
	mock.DeadlineErr = errors.New("set deadline: use of closed network connection")
	client := newMockClient(t, mock)

	_, err := client.Exists(context.Background(), "k")
	var cerr *resp.ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "write", cerr.Op)
	assert.True(t, resp.ShouldCloseConnection(err))
	assert.False(t, client.IsConnected())

	_, err = client.Exists(context.Background(), "k")
	require.ErrorIs(t, err, ErrConnectionBroken)
}

func TestClient_DialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	dials := 0
	client := New("127.0.0.1", 1, Config{
		Logger: quietLogger(),
		dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dials++
			return nil, dialErr
		},
	})
	ctx := context.Background()

	_, err := client.Exists(ctx, "k")
	var cerr *resp.ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "dial", cerr.Op)
	assert.Equal(t, "127.0.0.1:1", cerr.Addr)
	require.ErrorIs(t, err, dialErr)

	// Never connected, so the next operation dials again
	_, err = client.Exists(ctx, "k")
	require.Error(t, err)
	assert.Equal(t, 2, dials)
}

func TestClient_ContextDeadline(t *testing.T) {
	mock := testutils.NewConnectionMock(":1\r\n", ":1\r\n")
	client := newMockClient(t, mock)

	deadline := time.Now().Add(time.Minute)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	_, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, mock.Deadline().Equal(deadline))

	_, err = client.Exists(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, mock.Deadline().IsZero())
}

func TestClient_CancelledContext(t *testing.T) {
	mock := testutils.NewConnectionMock(":1\r\n")
	client := newMockClient(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Exists(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, client.IsConnected())
	assert.Empty(t, mock.GetWrittenRequest())

	ok, err := client.Exists(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Close(t *testing.T) {
	mock := testutils.NewConnectionMock(":1\r\n")
	client := newMockClient(t, mock)
	ctx := context.Background()

	_, err := client.Exists(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, mock.IsClosed())
	assert.False(t, client.IsConnected())

	_, err = client.Exists(ctx, "k")
	require.ErrorIs(t, err, ErrClientClosed)
	require.ErrorIs(t, client.Connect(ctx), ErrClientClosed)
	require.NoError(t, client.Close())
}

func TestClient_CloseLeavesNoGoroutines(t *testing.T) {
	srv := testutils.NewFakeServer(t)
	baseline := runtime.NumGoroutine()

	client := New("127.0.0.1", srv.Port(), Config{Logger: quietLogger()})
	ctx := context.Background()
	_, err := client.SetRaw(ctx, "k", []byte("v"))
	require.NoError(t, err)
	_, err = client.Exists(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	// The server side handler exits once it sees the closed stream.
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_CloseBeforeConnect(t *testing.T) {
	client := noDialClient(t)
	require.NoError(t, client.Close())

	_, err := client.Keys(context.Background())
	require.ErrorIs(t, err, ErrClientClosed)
}

func TestClient_ConcurrentUse(t *testing.T) {
	client, _ := newServerClient(t)
	ctx := context.Background()

	done := make(chan error, 8)
	for i := range 8 {
		go func() {
			key := string(rune('a' + i))
			for range 50 {
				if _, err := client.SetValue(ctx, key, i); err != nil {
					done <- err
					return
				}
				if _, _, err := client.GetValue(ctx, key); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}

	for range 8 {
		require.NoError(t, <-done)
	}

	keys, err := client.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 8)
}
