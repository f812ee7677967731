package resp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"sync"
)

// ErrEmptyCommand is returned when writing a command without a verb.
var ErrEmptyCommand = errors.New("resp: empty command")

// Buffer pool for building requests
var bufferPool = sync.Pool{
	New: func() any {
		// Typical request is a key and a base64 payload, start at 256 bytes
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

// maxPooledBuffer caps the buffers returned to the pool so a single large SET
// does not pin its memory.
const maxPooledBuffer = 64 * 1024

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// WriteCommand serializes a Command to wire format and writes it to w.
//
// Format:
//
//	*<N>\r\n
//	$<len(arg0)>\r\n<arg0>\r\n
//	...
//
// Lengths are byte lengths; argument content is never inspected.
//
// Performance considerations:
//   - Uses bufio.Writer when available for buffered writes (flushed before returning)
//   - Falls back to pooled buffer for other io.Writer types
func WriteCommand(w io.Writer, cmd *Command) error {
	if cmd == nil || cmd.Len() == 0 {
		return ErrEmptyCommand
	}

	// Optimize for bufio.Writer (used by Connection)
	if bw, ok := w.(*bufio.Writer); ok {
		return writeCommandBuffered(bw, cmd)
	}

	// Fallback to bytes.Buffer approach for other writers (tests, etc.)
	return writeCommandUnbuffered(w, cmd)
}

// AppendCommand appends the wire form of cmd to dst.
func AppendCommand(dst []byte, cmd *Command) []byte {
	dst = append(dst, byte(KindArray))
	dst = strconv.AppendInt(dst, int64(cmd.Len()), 10)
	dst = append(dst, CRLF...)
	for _, arg := range cmd.args {
		dst = append(dst, byte(KindBulk))
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, arg...)
		dst = append(dst, CRLF...)
	}
	return dst
}

// writeCommandBuffered writes using bufio.Writer for optimal performance.
func writeCommandBuffered(bw *bufio.Writer, cmd *Command) error {
	var scratch [20]byte

	bw.WriteByte(byte(KindArray))
	bw.Write(strconv.AppendInt(scratch[:0], int64(cmd.Len()), 10))
	bw.WriteString(CRLF)

	for _, arg := range cmd.args {
		bw.WriteByte(byte(KindBulk))
		bw.Write(strconv.AppendInt(scratch[:0], int64(len(arg)), 10))
		bw.WriteString(CRLF)
		bw.Write(arg)
		bw.WriteString(CRLF)
	}

	// bufio.Writer keeps the first error, Flush reports it
	return bw.Flush()
}

// writeCommandUnbuffered writes using a pooled buffer (for tests and non-buffered writers).
func writeCommandUnbuffered(w io.Writer, cmd *Command) error {
	buf := getBuffer()
	defer putBuffer(buf)

	buf.Write(AppendCommand(buf.AvailableBuffer(), cmd))

	_, err := w.Write(buf.Bytes())
	return err
}

// AppendReply appends the wire form of a reply to dst.
// Clients never send replies; this serves servers and test doubles.
func AppendReply(dst []byte, r *Reply) []byte {
	dst = append(dst, byte(r.Kind))
	switch r.Kind {
	case KindStatus, KindError:
		dst = append(dst, r.Text...)
		dst = append(dst, CRLF...)
	case KindInteger:
		dst = strconv.AppendInt(dst, r.Integer, 10)
		dst = append(dst, CRLF...)
	case KindBulk:
		if r.null {
			return append(dst, "-1\r\n"...)
		}
		dst = strconv.AppendInt(dst, int64(len(r.Bulk)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, r.Bulk...)
		dst = append(dst, CRLF...)
	case KindArray:
		if r.null {
			return append(dst, "-1\r\n"...)
		}
		dst = strconv.AppendInt(dst, int64(len(r.Array)), 10)
		dst = append(dst, CRLF...)
		for _, e := range r.Array {
			dst = AppendReply(dst, e)
		}
	}
	return dst
}
