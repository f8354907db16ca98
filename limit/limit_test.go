package limit

import (
	"bytes"
	"io"
	"testing"

	"github.com/owacoder/devio"
)

func underlying(t *testing.T, size int) *devio.Device {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	d, _, err := devio.OpenMemory(data, "rb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	return d
}

func TestWindowedRead(t *testing.T) {
	under := underlying(t, 100)
	w, err := New(under, 10, 20, "rb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	buf := make([]byte, 50)
	n, err := w.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 20 {
		t.Errorf("Read = %d bytes, want 20 (window length)", n)
	}
	if buf[0] != 10 || buf[19] != 29 {
		t.Errorf("window contents wrong: first=%d last=%d", buf[0], buf[19])
	}

	n, err = w.Read(buf)
	if n != 0 || err != io.EOF {
		t.Errorf("Read past window = (%d, %v), want (0, EOF)", n, err)
	}

	pos, err := w.Tell()
	if err != nil || pos != 20 {
		t.Errorf("Tell = (%d, %v), want 20", pos, err)
	}
}

func TestWindowLargerThanSource(t *testing.T) {
	under := underlying(t, 30)
	w, err := New(under, 10, 50, "rb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := io.ReadAll(w)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("read %d bytes, want 20 (source remainder)", len(got))
	}
	pos, _ := w.Tell()
	if pos != 20 {
		t.Errorf("Tell = %d, want min(length, size-offset) = 20", pos)
	}
}

func TestWindowSeek(t *testing.T) {
	under := underlying(t, 100)
	w, err := New(under, 10, 20, "rb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	pos, err := w.Seek(-5, io.SeekEnd)
	if err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if pos != 15 {
		t.Errorf("Seek(-5, end) = %d, want 15", pos)
	}
	c, err := w.ReadByte()
	if err != nil || c != 25 {
		t.Errorf("byte at window+15 = (%d, %v), want underlying byte 25", c, err)
	}

	if _, err := w.Seek(21, io.SeekStart); !devio.IsCode(err, devio.ErrCodeInvalidArgument) {
		t.Errorf("seek beyond window: %v, want invalid argument", err)
	}
	w.ClearErr()
	if _, err := w.Seek(-1, io.SeekStart); !devio.IsCode(err, devio.ErrCodeInvalidArgument) {
		t.Errorf("seek before window: %v, want invalid argument", err)
	}
	w.ClearErr()
	// the window end itself is a legal position
	if _, err := w.Seek(20, io.SeekStart); err != nil {
		t.Errorf("seek to window end failed: %v", err)
	}
}

func TestWindowedWrite(t *testing.T) {
	d, mem, err := devio.OpenMemory(bytes.Repeat([]byte{'.'}, 20), "r+b", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	w, err := New(d, 5, 4, "wb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := w.Write([]byte("AB")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// overflowing the window is a short write with a buffer-space error
	n, err := w.Write([]byte("CDE"))
	if !devio.IsCode(err, devio.ErrCodeNoBufferSpace) {
		t.Errorf("overflow write error = %v, want no buffer space", err)
	}
	if n != 2 {
		t.Errorf("overflow write consumed %d bytes, want 2", n)
	}

	if string(mem.Bytes()) != ".....ABCD..........." {
		t.Errorf("underlying contents %q", mem.Bytes())
	}

	// window full: nothing more fits
	if _, err := w.Write([]byte("x")); !devio.IsCode(err, devio.ErrCodeNoBufferSpace) {
		t.Errorf("write into full window: %v, want no buffer space", err)
	}
}

func TestCloseLeavesUnderlyingOpen(t *testing.T) {
	under := underlying(t, 10)
	w, err := New(under, 0, 5, "rb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	buf := make([]byte, 3)
	if _, err := under.Read(buf); err != nil {
		t.Errorf("underlying device must stay open: %v", err)
	}
}
