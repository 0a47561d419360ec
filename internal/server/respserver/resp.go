package respserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Limits bounds what a client may send in one command.
type Limits struct {
	MaxArrayLen  int // elements in a command array
	MaxBulkLen   int // bytes in one bulk string
	MaxInlineLen int // bytes in an inline command line
}

// DefaultLimits returns limits sized for keys and small values.
func DefaultLimits() Limits {
	return Limits{
		MaxArrayLen:  1024,
		MaxBulkLen:   512 * 1024,
		MaxInlineLen: 4 * 1024,
	}
}

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// headerLen bounds "*<n>\r\n" and "$<n>\r\n" lines.
const headerLen = 64

// Reader decodes client commands.
type Reader struct {
	br     *bufio.Reader
	limits Limits
}

// NewReader wraps br.
func NewReader(br *bufio.Reader, limits Limits) *Reader {
	return &Reader{br: br, limits: limits}
}

// ReadCommand reads one command as its argument list. An empty line or an
// empty array yields a nil slice and no error.
func (r *Reader) ReadCommand() ([][]byte, error) {
	b, err := r.br.Peek(1)
	if err != nil {
		return nil, err
	}
	if b[0] == '*' {
		return r.readArray()
	}

	// Inline form, as typed into telnet: "SETNX k v\r\n"
	line, err := r.readLine(r.limits.MaxInlineLen)
	if err != nil {
		return nil, err
	}
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > r.limits.MaxArrayLen {
		return nil, fmt.Errorf("%w: %d inline arguments exceed limit %d", ErrLimitExceeded, len(fields), r.limits.MaxArrayLen)
	}
	return fields, nil
}

func (r *Reader) readArray() ([][]byte, error) {
	line, err := r.readLine(headerLen)
	if err != nil {
		return nil, err
	}
	n, err := parseLength(line, '*')
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n > r.limits.MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, r.limits.MaxArrayLen)
	}

	args := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := r.readBulk()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (r *Reader) readBulk() ([]byte, error) {
	line, err := r.readLine(headerLen)
	if err != nil {
		return nil, err
	}
	n, err := parseLength(line, '$')
	if err != nil {
		return nil, err
	}
	switch {
	case n == -1:
		return nil, nil
	case n < 0:
		return nil, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
	case n > r.limits.MaxBulkLen:
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, r.limits.MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n:n], nil
}

// readLine returns one CRLF-terminated line without the terminator.
func (r *Reader) readLine(maxLen int) ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen+2 {
			return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
	if len(buf) < 2 || buf[len(buf)-2] != '\r' {
		return nil, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return buf[:len(buf)-2], nil
}

func parseLength(line []byte, prefix byte) (int, error) {
	if len(line) < 2 || line[0] != prefix {
		return 0, fmt.Errorf("%w: expected '%c' header", ErrProtocol, prefix)
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid length %q", ErrProtocol, line[1:])
	}
	return n, nil
}

// Writer encodes replies. Errors are sticky: after the first failed write
// every call is a no-op and Flush returns that error.
type Writer struct {
	bw  *bufio.Writer
	err error
}

// NewWriter wraps bw.
func NewWriter(bw *bufio.Writer) *Writer {
	return &Writer{bw: bw}
}

func (w *Writer) write(parts ...string) {
	for _, p := range parts {
		if w.err != nil {
			return
		}
		_, w.err = w.bw.WriteString(p)
	}
}

// SimpleString writes "+s".
func (w *Writer) SimpleString(s string) {
	w.write("+", s, "\r\n")
}

// Error writes "-s". Line breaks in s are replaced so the reply stays one line.
func (w *Writer) Error(s string) {
	w.write("-", strings.NewReplacer("\r", " ", "\n", " ").Replace(s), "\r\n")
}

// Integer writes ":n".
func (w *Writer) Integer(n int64) {
	w.write(":", strconv.FormatInt(n, 10), "\r\n")
}

// Null writes the RESP2 null bulk string.
func (w *Writer) Null() {
	w.write("$-1\r\n")
}

// Bulk writes b as a bulk string; nil is written as Null.
func (w *Writer) Bulk(b []byte) {
	if b == nil {
		w.Null()
		return
	}
	w.write("$", strconv.Itoa(len(b)), "\r\n")
	if w.err == nil {
		_, w.err = w.bw.Write(b)
	}
	w.write("\r\n")
}

// BulkString writes s as a bulk string.
func (w *Writer) BulkString(s string) {
	w.Bulk([]byte(s))
}

// ArrayHeader starts an array of n elements.
func (w *Writer) ArrayHeader(n int) {
	w.write("*", strconv.Itoa(n), "\r\n")
}

// Flush sends buffered replies.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}

// commandName upper-cases ASCII without allocating for upper-case input.
func commandName(b []byte) string {
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}
