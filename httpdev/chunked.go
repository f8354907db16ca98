// Package httpdev implements HTTP/1.1 framing over device handles: the
// chunked transfer-encoding codec and the request/response message state
// machine.
package httpdev

import (
	"io"

	"github.com/owacoder/devio"
)

// maxChunkHeaderDigits bounds the hex length parse so a malformed stream
// cannot overflow the chunk size.
const maxChunkHeaderDigits = 15

// chunkedWriter frames each write as hex(len) CRLF payload CRLF. Closing
// the device emits the terminating zero-length chunk. The underlying
// device stays open.
type chunkedWriter struct {
	under   *devio.Device
	onClose func() error
}

// NewChunkedWriter wraps under in a chunk-encoding device handle.
func NewChunkedWriter(under *devio.Device) (*devio.Device, error) {
	if under == nil {
		return nil, devio.NewError("chunked", devio.ErrCodeInvalidArgument, "nil device")
	}
	return devio.New(&chunkedWriter{under: under}, "wb", nil)
}

func (w *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := w.under.Printf("%x\r\n", len(p)); err != nil {
		return 0, err
	}
	n, err := w.under.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := w.under.WriteString("\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

func (w *chunkedWriter) Close() error {
	if _, err := w.under.WriteString("0\r\n\r\n"); err != nil {
		return err
	}
	if w.onClose != nil {
		return w.onClose()
	}
	return nil
}

func (w *chunkedWriter) Flush() error { return w.under.Flush() }

func (w *chunkedWriter) What() string { return "chunked" }

// chunkedReader decodes chunked framing. It stops after the terminating
// zero-length chunk without consuming trailer headers; the response
// finalizer reads those. The underlying device stays open.
type chunkedReader struct {
	under     *devio.Device
	remaining int64 // unread bytes of the current chunk
	started   bool  // a chunk has been consumed, so a CRLF precedes the next header
	sawFinal  bool
}

// NewChunkedReader wraps under in a chunk-decoding device handle.
func NewChunkedReader(under *devio.Device) (*devio.Device, error) {
	if under == nil {
		return nil, devio.NewError("chunked", devio.ErrCodeInvalidArgument, "nil device")
	}
	return devio.New(&chunkedReader{under: under}, "rb", nil)
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.sawFinal {
		return 0, io.EOF
	}
	if r.remaining == 0 {
		if err := r.nextChunk(); err != nil {
			return 0, err
		}
		if r.sawFinal {
			return 0, io.EOF
		}
	}

	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.under.Read(p)
	r.remaining -= int64(n)
	if err == io.EOF || (err == nil && n < len(p)) {
		return n, badMessage("chunk body ends before its declared length")
	}
	return n, err
}

// nextChunk validates the previous chunk's trailing CRLF and parses the
// next chunk header: hex length, optional ;-extension discarded up to
// CRLF, then CRLF.
func (r *chunkedReader) nextChunk() error {
	if r.started {
		if err := r.expectCRLF(); err != nil {
			return err
		}
	}

	size := int64(0)
	digits := 0
	for {
		c, err := r.under.ReadByte()
		if err != nil {
			return badMessage("chunk header ends prematurely")
		}
		v, ok := hexVal(c)
		if !ok {
			if digits == 0 {
				return badMessage("chunk header is not hexadecimal")
			}
			if err := r.under.PushBack(c); err != nil {
				return err
			}
			break
		}
		if digits == maxChunkHeaderDigits {
			return badMessage("chunk length overflows")
		}
		size = size<<4 | int64(v)
		digits++
	}

	c, err := r.under.ReadByte()
	if err != nil {
		return badMessage("chunk header ends prematurely")
	}
	if c == ';' {
		// chunk extension: consumed and discarded up to CR
		for {
			c, err = r.under.ReadByte()
			if err != nil {
				return badMessage("chunk extension ends prematurely")
			}
			if c == '\r' {
				break
			}
		}
	}
	if c != '\r' {
		return badMessage("chunk header missing CR")
	}
	if c, err = r.under.ReadByte(); err != nil || c != '\n' {
		return badMessage("chunk header missing LF")
	}

	if size == 0 {
		r.sawFinal = true
		return nil
	}
	r.remaining = size
	r.started = true
	return nil
}

func (r *chunkedReader) expectCRLF() error {
	c, err := r.under.ReadByte()
	if err != nil || c != '\r' {
		return badMessage("chunk body missing CR")
	}
	if c, err = r.under.ReadByte(); err != nil || c != '\n' {
		return badMessage("chunk body missing LF")
	}
	return nil
}

// ClearErr forwards clearerr to the underlying device.
func (r *chunkedReader) ClearErr() { r.under.ClearErr() }

func (r *chunkedReader) What() string { return "chunked" }

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func badMessage(msg string) *devio.Error {
	return devio.NewDeviceError("read", "chunked", devio.ErrCodeBadMessage, msg)
}
