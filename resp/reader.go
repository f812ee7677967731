package resp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

// Pre-allocated byte slices for comparisons (avoid allocation in hot path)
var crlfBytes = []byte(CRLF)

// ReadReply reads and parses a single reply frame from r.
//
// Error replies (-ERR ...) are returned as a Reply with Kind KindError, not as a
// Go error. Use Reply.Err to turn them into a *ServerError.
//
// Go errors returned indicate I/O or parsing failures:
//   - io.EOF: stream closed before the first byte of the frame
//   - *ProtocolError: malformed or truncated frame, the stream must be discarded
//   - Other I/O errors: transport failure
//
// Bulk bodies are read in slices of at most ChunkSize bytes into a buffer sized
// from the declared length, so the transport never has to deliver a large body in
// a single read.
func ReadReply(r *bufio.Reader) (*Reply, error) {
	return readReply(r, 0)
}

// maxDepth bounds nested arrays so hostile input cannot exhaust the stack.
const maxDepth = 32

func readReply(r *bufio.Reader, depth int) (*Reply, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	if len(line) == 0 {
		return nil, &ProtocolError{Message: "empty reply line"}
	}

	kind := Kind(line[0])
	rest := line[1:]

	switch kind {
	case KindStatus, KindError:
		return &Reply{Kind: kind, Text: string(rest)}, nil

	case KindInteger:
		n, err := strconv.ParseInt(string(rest), 10, 64)
		if err != nil {
			return nil, &ProtocolError{Message: "invalid integer reply", Err: err}
		}
		return &Reply{Kind: KindInteger, Integer: n}, nil

	case KindBulk:
		n, err := parseLength(rest, MaxBulkLength)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return NullBulk(), nil
		}
		body, err := readBulkBody(r, n)
		if err != nil {
			return nil, err
		}
		return &Reply{Kind: KindBulk, Bulk: body}, nil

	case KindArray:
		if depth >= maxDepth {
			return nil, &ProtocolError{Message: "array nesting too deep"}
		}
		n, err := parseLength(rest, MaxArrayLength)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return NullArray(), nil
		}
		elems := make([]*Reply, 0, min(n, 1024))
		for range n {
			elem, err := readReply(r, depth+1)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil, &ProtocolError{Message: "stream ended inside array", Err: io.ErrUnexpectedEOF}
				}
				return nil, err
			}
			elems = append(elems, elem)
		}
		return &Reply{Kind: KindArray, Array: elems}, nil

	default:
		return nil, &ProtocolError{Message: "unknown reply type " + strconv.QuoteRune(rune(kind))}
	}
}

// readLine reads one CRLF-terminated line and returns it without the terminator.
// The returned slice is only valid until the next read on r.
func readLine(r *bufio.Reader) ([]byte, error) {
	// ReadSlice avoids allocation; fall back to ReadBytes if the line exceeds the buffer
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		line, err = r.ReadBytes('\n')
	}
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return nil, &ProtocolError{Message: "stream ended inside reply line", Err: io.ErrUnexpectedEOF}
		}
		return nil, err
	}

	if !bytes.HasSuffix(line, crlfBytes) {
		return nil, &ProtocolError{Message: "reply line not terminated by CRLF"}
	}
	return line[:len(line)-2], nil
}

// parseLength parses a bulk or array header. -1 means null; any other negative
// value, or a value above limit, is a protocol error.
func parseLength(b []byte, limit int) (int, error) {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, &ProtocolError{Message: "invalid length", Err: err}
	}
	if n < -1 {
		return 0, &ProtocolError{Message: "negative length " + strconv.Itoa(n)}
	}
	if n > limit {
		return 0, &ProtocolError{Message: "length " + strconv.Itoa(n) + " exceeds limit"}
	}
	return n, nil
}

// readBulkBody reads exactly n bytes followed by CRLF.
func readBulkBody(r *bufio.Reader, n int) ([]byte, error) {
	body := make([]byte, n)
	for off := 0; off < n; {
		end := min(off+ChunkSize, n)
		m, err := io.ReadFull(r, body[off:end])
		off += m
		if err != nil {
			return nil, &ProtocolError{
				Message: "short bulk body: got " + strconv.Itoa(off) + " of " + strconv.Itoa(n) + " bytes",
				Err:     truncated(err),
			}
		}
	}

	var term [2]byte
	if _, err := io.ReadFull(r, term[:]); err != nil {
		return nil, &ProtocolError{Message: "missing bulk terminator", Err: truncated(err)}
	}
	if term[0] != '\r' || term[1] != '\n' {
		return nil, &ProtocolError{Message: "invalid bulk terminator"}
	}
	return body, nil
}

// truncated maps a clean EOF in the middle of a frame to io.ErrUnexpectedEOF and
// keeps any other transport error as is.
func truncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
