package testutils

import (
	"bufio"
	"errors"
	"io"
	"net"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/pior/respkv/resp"
)

// FakeServer is an in-process RESP server that understands KEYS, EXISTS, GET,
// SET and DEL over an in-memory map. Values are stored exactly as received.
type FakeServer struct {
	ln net.Listener

	mu       sync.Mutex
	data     map[string][]byte
	failures map[string]string
	conns    map[net.Conn]struct{}
	accepted int
	commands []string
	closed   bool

	wg sync.WaitGroup
}

// NewFakeServer starts a server on a random local port. It is stopped when the
// test ends.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &FakeServer{
		ln:       ln,
		data:     make(map[string][]byte),
		failures: make(map[string]string),
		conns:    make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the listening address as host:port.
func (s *FakeServer) Addr() string {
	return s.ln.Addr().String()
}

// Port returns the listening port.
func (s *FakeServer) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Put stores wire bytes under key, bypassing the protocol.
func (s *FakeServer) Put(key string, wire []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), wire...)
}

// Stored returns the wire bytes held for key.
func (s *FakeServer) Stored(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Len returns the number of stored keys.
func (s *FakeServer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// FailWith makes every following command with this verb answer with an error
// reply carrying message. An empty message clears the failure.
func (s *FakeServer) FailWith(verb, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.failures, verb)
		return
	}
	s.failures[verb] = message
}

// Commands returns the verbs received so far, in order.
func (s *FakeServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Accepted returns the number of connections accepted so far.
func (s *FakeServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// DropConnections closes every open client connection. The listener stays up.
func (s *FakeServer) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Close stops the listener and drops all connections.
func (s *FakeServer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	_ = s.ln.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *FakeServer) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.accepted++
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *FakeServer) handleConn(c net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.Close()
	}()

	reader := bufio.NewReader(c)
	writer := bufio.NewWriter(c)

	for {
		req, err := resp.ReadReply(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			_, _ = writer.Write(resp.AppendReply(nil, &resp.Reply{Kind: resp.KindError, Text: "ERR " + err.Error()}))
			_ = writer.Flush()
			return
		}

		reply := s.dispatch(req)
		if _, err := writer.Write(resp.AppendReply(nil, reply)); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func (s *FakeServer) dispatch(req *resp.Reply) *resp.Reply {
	if req.Kind != resp.KindArray || len(req.Array) == 0 {
		return errorReply("ERR expected a command array")
	}

	args := make([][]byte, len(req.Array))
	for i, a := range req.Array {
		if a.Kind != resp.KindBulk || a.IsNull() {
			return errorReply("ERR command arguments must be bulk strings")
		}
		args[i] = a.Bulk
	}
	verb := strings.ToUpper(string(args[0]))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, verb)
	if msg, ok := s.failures[verb]; ok {
		return errorReply(msg)
	}

	switch verb {
	case resp.CmdKeys:
		if len(args) != 2 {
			return wrongArity(verb)
		}
		pattern := string(args[1])
		elems := make([]*resp.Reply, 0, len(s.data))
		for k := range s.data {
			if ok, _ := path.Match(pattern, k); ok || pattern == resp.AllKeysPattern {
				elems = append(elems, &resp.Reply{Kind: resp.KindBulk, Bulk: []byte(k)})
			}
		}
		return &resp.Reply{Kind: resp.KindArray, Array: elems}

	case resp.CmdExists:
		if len(args) < 2 {
			return wrongArity(verb)
		}
		var n int64
		for _, k := range args[1:] {
			if _, ok := s.data[string(k)]; ok {
				n++
			}
		}
		return &resp.Reply{Kind: resp.KindInteger, Integer: n}

	case resp.CmdGet:
		if len(args) != 2 {
			return wrongArity(verb)
		}
		v, ok := s.data[string(args[1])]
		if !ok {
			return resp.NullBulk()
		}
		return &resp.Reply{Kind: resp.KindBulk, Bulk: v}

	case resp.CmdSet:
		if len(args) != 3 {
			return wrongArity(verb)
		}
		s.data[string(args[1])] = append([]byte(nil), args[2]...)
		return &resp.Reply{Kind: resp.KindStatus, Text: resp.StatusOK}

	case resp.CmdDel:
		if len(args) < 2 {
			return wrongArity(verb)
		}
		var n int64
		for _, k := range args[1:] {
			if _, ok := s.data[string(k)]; ok {
				delete(s.data, string(k))
				n++
			}
		}
		return &resp.Reply{Kind: resp.KindInteger, Integer: n}

	default:
		return errorReply("ERR unknown command '" + strings.ToLower(verb) + "'")
	}
}

func errorReply(msg string) *resp.Reply {
	return &resp.Reply{Kind: resp.KindError, Text: msg}
}

func wrongArity(verb string) *resp.Reply {
	return errorReply("ERR wrong number of arguments for '" + strings.ToLower(verb) + "' command")
}
