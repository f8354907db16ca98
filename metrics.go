package devio

import (
	"sync/atomic"
	"time"
)

// Metrics tracks transfer statistics for device handles
type Metrics struct {
	// I/O operation counters
	ReadOps  atomic.Uint64 // Total read operations
	WriteOps atomic.Uint64 // Total write operations
	SeekOps  atomic.Uint64 // Total seek operations
	FlushOps atomic.Uint64 // Total flush operations

	// Byte counters
	ReadBytes  atomic.Uint64 // Total bytes read
	WriteBytes atomic.Uint64 // Total bytes written

	// Error counters
	ReadErrors  atomic.Uint64 // Read operation errors
	WriteErrors atomic.Uint64 // Write operation errors
	FlushErrors atomic.Uint64 // Flush operation errors

	// Lifecycle
	StartTime atomic.Int64 // Creation timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a read operation
func (m *Metrics) RecordRead(bytes uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
}

// RecordWrite records a write operation
func (m *Metrics) RecordWrite(bytes uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
}

// RecordSeek records a seek operation
func (m *Metrics) RecordSeek() {
	m.SeekOps.Add(1)
}

// RecordFlush records a flush operation
func (m *Metrics) RecordFlush(success bool) {
	m.FlushOps.Add(1)
	if !success {
		m.FlushErrors.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of the counters
type MetricsSnapshot struct {
	ReadOps     uint64 `json:"read_ops"`
	WriteOps    uint64 `json:"write_ops"`
	SeekOps     uint64 `json:"seek_ops"`
	FlushOps    uint64 `json:"flush_ops"`
	ReadBytes   uint64 `json:"read_bytes"`
	WriteBytes  uint64 `json:"write_bytes"`
	ReadErrors  uint64 `json:"read_errors"`
	WriteErrors uint64 `json:"write_errors"`
	FlushErrors uint64 `json:"flush_errors"`
	StartTime   int64  `json:"start_time"`
}

// Snapshot returns a point-in-time snapshot of the metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ReadOps:     m.ReadOps.Load(),
		WriteOps:    m.WriteOps.Load(),
		SeekOps:     m.SeekOps.Load(),
		FlushOps:    m.FlushOps.Load(),
		ReadBytes:   m.ReadBytes.Load(),
		WriteBytes:  m.WriteBytes.Load(),
		ReadErrors:  m.ReadErrors.Load(),
		WriteErrors: m.WriteErrors.Load(),
		FlushErrors: m.FlushErrors.Load(),
		StartTime:   m.StartTime.Load(),
	}
}

// Observer receives I/O events from a device handle.
// Implementations must be thread-safe when the observed handles are used
// from multiple goroutines.
type Observer interface {
	ObserveRead(bytes uint64, success bool)
	ObserveWrite(bytes uint64, success bool)
	ObserveSeek()
	ObserveFlush(success bool)
}

// NoOpObserver discards all events
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(bytes uint64, success bool)  {}
func (NoOpObserver) ObserveWrite(bytes uint64, success bool) {}
func (NoOpObserver) ObserveSeek()                            {}
func (NoOpObserver) ObserveFlush(success bool)               {}

// MetricsObserver feeds events into a Metrics instance
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer backed by metrics
func NewMetricsObserver(metrics *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

func (o *MetricsObserver) ObserveRead(bytes uint64, success bool) {
	o.metrics.RecordRead(bytes, success)
}

func (o *MetricsObserver) ObserveWrite(bytes uint64, success bool) {
	o.metrics.RecordWrite(bytes, success)
}

func (o *MetricsObserver) ObserveSeek() {
	o.metrics.RecordSeek()
}

func (o *MetricsObserver) ObserveFlush(success bool) {
	o.metrics.RecordFlush(success)
}
