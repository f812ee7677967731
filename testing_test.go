package respkv

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/pior/respkv/internal/testutils"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newServerClient returns a client for a fresh in-process server.
func newServerClient(t testing.TB) (*Client, *testutils.FakeServer) {
	t.Helper()

	srv := testutils.NewFakeServer(t)
	client := New("127.0.0.1", srv.Port(), Config{Logger: quietLogger()})
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

// newMockClient returns a client whose connections are the given mocks, in order.
func newMockClient(t *testing.T, mocks ...*testutils.ConnectionMock) *Client {
	t.Helper()

	dials := 0
	client := New("127.0.0.1", DefaultPort, Config{
		Logger: quietLogger(),
		dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if dials >= len(mocks) {
				t.Fatalf("unexpected dial #%d to %s", dials+1, addr)
			}
			m := mocks[dials]
			dials++
			return m, nil
		},
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// noDialClient returns a client that fails the test if it ever dials.
func noDialClient(t *testing.T) *Client {
	t.Helper()
	return newMockClient(t)
}

func bulk(s string) string {
	return "$" + strconv.Itoa(len(s)) + "\r\n" + s + "\r\n"
}
