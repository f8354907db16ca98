package devio

import (
	"io"
	"sync"
)

// Memory provides a RAM-backed seekable device. It grows on write and is
// usable as both source and sink.
type Memory struct {
	mu     sync.Mutex
	data   []byte
	pos    int64
	appendMode bool
}

// NewMemory creates a memory device seeded with the given contents. The
// slice is adopted, not copied.
func NewMemory(initial []byte) *Memory {
	return &Memory{data: initial}
}

// OpenDevice applies the open-mode flags to the buffer contents.
func (m *Memory) OpenDevice(mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode.Exclusive && len(m.data) > 0 {
		return NewDeviceError("open", "memory", ErrCodeInvalidArgument, "buffer already has contents")
	}
	if mode.Truncate {
		m.data = m.data[:0]
	}
	m.appendMode = mode.Append
	return nil
}

// Read implements the source half of the device.
func (m *Memory) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

// Write implements the sink half of the device, growing the buffer as
// needed. In append mode every write lands at the end.
func (m *Memory) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendMode {
		m.pos = int64(len(m.data))
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		if end > int64(cap(m.data)) {
			grown := make([]byte, end)
			copy(grown, m.data)
			m.data = grown
		} else {
			old := int64(len(m.data))
			m.data = m.data[:end]
			if m.pos > old {
				clear(m.data[old:m.pos])
			}
		}
	}
	n := copy(m.data[m.pos:end], p)
	m.pos += int64(n)
	return n, nil
}

// Seek repositions the device. Seeking past the end is allowed; the gap is
// zero-filled by a later write.
func (m *Memory) Seek(off int64, whence int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.data))
	default:
		return 0, NewDeviceError("seek", "memory", ErrCodeInvalidArgument, "bad whence")
	}
	target := base + off
	if target < 0 {
		return 0, NewDeviceError("seek", "memory", ErrCodeInvalidArgument, "negative position")
	}
	m.pos = target
	return target, nil
}

// Bytes returns the current contents. The slice aliases the device buffer.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Len returns the current size of the buffer.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// What implements Tagger.
func (m *Memory) What() string { return "memory" }

// OpenMemory wraps a memory buffer in a device handle. The returned Memory
// gives access to the contents after the handle is closed.
func OpenMemory(initial []byte, mode string, options *Options) (*Device, *Memory, error) {
	m := NewMemory(initial)
	d, err := New(m, mode, options)
	if err != nil {
		return nil, nil, err
	}
	return d, m, nil
}
