package devio

import (
	"io"
	"testing"
)

func TestMemoryReadWrite(t *testing.T) {
	d, mem, err := OpenMemory(nil, "w+b", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}

	testData := []byte("Hello, devio!")
	n, err := d.Write(testData)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(testData) {
		t.Errorf("Write wrote %d bytes, want %d", n, len(testData))
	}

	if _, err := d.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	readBuf := make([]byte, len(testData))
	n, err = d.Read(readBuf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(testData) {
		t.Errorf("Read read %d bytes, want %d", n, len(testData))
	}
	if string(readBuf) != string(testData) {
		t.Errorf("Read got %q, want %q", readBuf, testData)
	}

	if mem.Len() != len(testData) {
		t.Errorf("Len = %d, want %d", mem.Len(), len(testData))
	}
}

func TestMemoryGrowsOnWrite(t *testing.T) {
	d, mem, err := OpenMemory(nil, "wb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	if _, err := d.Seek(5, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if _, err := d.Write([]byte("ab")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := mem.Bytes()
	if len(got) != 7 {
		t.Fatalf("length after sparse write = %d, want 7", len(got))
	}
	if string(got[:5]) != "\x00\x00\x00\x00\x00" || string(got[5:]) != "ab" {
		t.Errorf("sparse write produced %q", got)
	}
}

func TestMemoryTruncateAndAppend(t *testing.T) {
	// w truncates existing contents
	d, mem, err := OpenMemory([]byte("old contents"), "wb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	d.Write([]byte("new"))
	if string(mem.Bytes()) != "new" {
		t.Errorf("w mode kept old data: %q", mem.Bytes())
	}

	// a appends regardless of position
	d, mem, err = OpenMemory([]byte("base"), "ab", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	d.Write([]byte("+tail"))
	if string(mem.Bytes()) != "base+tail" {
		t.Errorf("append mode produced %q", mem.Bytes())
	}
}

func TestMemoryExclusive(t *testing.T) {
	if _, _, err := OpenMemory([]byte("existing"), "wxb", nil); err == nil {
		t.Error("exclusive create over existing contents should fail")
	}
	if _, _, err := OpenMemory(nil, "wxb", nil); err != nil {
		t.Errorf("exclusive create over empty buffer failed: %v", err)
	}
}

func TestMemorySeekWhence(t *testing.T) {
	d, _, err := OpenMemory([]byte("0123456789"), "rb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}

	pos, err := d.Seek(-3, io.SeekEnd)
	if err != nil || pos != 7 {
		t.Fatalf("Seek(-3, end) = (%d, %v), want 7", pos, err)
	}
	c, _ := d.ReadByte()
	if c != '7' {
		t.Errorf("byte at end-3 = %c, want 7", c)
	}

	pos, err = d.Seek(-1, io.SeekCurrent)
	if err != nil || pos != 7 {
		t.Fatalf("Seek(-1, cur) = (%d, %v), want 7", pos, err)
	}

	if _, err := d.Seek(-100, io.SeekStart); err == nil {
		t.Error("negative absolute seek should fail")
	}
}
