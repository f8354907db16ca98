package pad

import (
	"bytes"
	"io"
	"testing"

	"github.com/owacoder/devio"
)

// padded length for input length l and block size b
func wantLen(l, b int) int {
	return (l + b) / b * b
}

func TestWritePadding(t *testing.T) {
	tests := []struct {
		inputLen  int
		blockSize int64
	}{
		{0, 16},
		{1, 16},
		{15, 16},
		{16, 16},
		{17, 16},
		{31, 16},
		{5, 8},
		{8, 8},
		{3, 1},
		{0, 1},
	}

	for _, tt := range tests {
		under, mem, err := devio.OpenMemory(nil, "wb", nil)
		if err != nil {
			t.Fatalf("OpenMemory failed: %v", err)
		}
		p, err := New(under, tt.blockSize, "wb")
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		input := bytes.Repeat([]byte{0xAA}, tt.inputLen)
		if len(input) > 0 {
			if _, err := p.Write(input); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		got := mem.Bytes()
		want := wantLen(tt.inputLen, int(tt.blockSize))
		if len(got) != want {
			t.Errorf("L=%d B=%d: padded length = %d, want %d", tt.inputLen, tt.blockSize, len(got), want)
			continue
		}
		if got[tt.inputLen] != 0x80 {
			t.Errorf("L=%d B=%d: padded[L] = %#x, want 0x80", tt.inputLen, tt.blockSize, got[tt.inputLen])
		}
		for i := tt.inputLen + 1; i < len(got); i++ {
			if got[i] != 0 {
				t.Errorf("L=%d B=%d: padded[%d] = %#x, want 0x00", tt.inputLen, tt.blockSize, i, got[i])
				break
			}
		}
	}
}

func TestZeroBlockSizeActsAsOne(t *testing.T) {
	under, mem, err := devio.OpenMemory(nil, "wb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	p, err := New(under, 0, "wb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p.Write([]byte("xyz"))
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !bytes.Equal(mem.Bytes(), []byte{'x', 'y', 'z', 0x80}) {
		t.Errorf("block size 0 produced %x", mem.Bytes())
	}
}

func TestReadPadding(t *testing.T) {
	under, _, err := devio.OpenMemory([]byte("hello"), "rb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	p, err := New(under, 8, "rb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := io.ReadAll(p)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	want := []byte{'h', 'e', 'l', 'l', 'o', 0x80, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("read-mode padding = %x, want %x", got, want)
	}

	// and nothing after the boundary
	buf := make([]byte, 4)
	n, err := p.Read(buf)
	if n != 0 || err != io.EOF {
		t.Errorf("Read past padding = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestReadPaddingAlignedInput(t *testing.T) {
	under, _, err := devio.OpenMemory([]byte("12345678"), "rb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	p, err := New(under, 8, "rb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := io.ReadAll(p)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	// a full extra block: marker plus seven zeros
	if len(got) != 16 {
		t.Fatalf("padded length = %d, want 16", len(got))
	}
	if got[8] != 0x80 {
		t.Errorf("padded[8] = %#x, want 0x80", got[8])
	}
}

func TestCloseLeavesUnderlyingOpen(t *testing.T) {
	under, _, err := devio.OpenMemory(nil, "w+b", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	p, err := New(under, 4, "wb")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p.Write([]byte("ab"))
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := under.Write([]byte("more")); err != nil {
		t.Errorf("underlying device must stay open: %v", err)
	}
}
