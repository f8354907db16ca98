package devio

import (
	"io"
	"testing"
)

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics()

	m.RecordRead(100, true)
	m.RecordRead(0, false)
	m.RecordWrite(50, true)
	m.RecordSeek()
	m.RecordFlush(true)
	m.RecordFlush(false)

	s := m.Snapshot()
	if s.ReadOps != 2 || s.ReadBytes != 100 || s.ReadErrors != 1 {
		t.Errorf("read counters = %+v", s)
	}
	if s.WriteOps != 1 || s.WriteBytes != 50 || s.WriteErrors != 0 {
		t.Errorf("write counters = %+v", s)
	}
	if s.SeekOps != 1 || s.FlushOps != 2 || s.FlushErrors != 1 {
		t.Errorf("seek/flush counters = %+v", s)
	}
}

func TestObserverWiring(t *testing.T) {
	m := NewMetrics()
	d, err := New(NewMockDevice([]byte("0123456789")), "rb",
		&Options{Observer: NewMetricsObserver(m)})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	buf := make([]byte, 4)
	d.Read(buf)
	d.Read(buf)
	d.Seek(0, io.SeekStart)

	s := m.Snapshot()
	if s.ReadOps != 2 {
		t.Errorf("ReadOps = %d, want 2", s.ReadOps)
	}
	if s.ReadBytes != 8 {
		t.Errorf("ReadBytes = %d, want 8", s.ReadBytes)
	}
	if s.SeekOps != 1 {
		t.Errorf("SeekOps = %d, want 1", s.SeekOps)
	}
}
