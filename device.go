// Package devio provides a uniform handle over byte sinks, sources and
// bidirectional streams, and lets such devices be stacked into pipelines
// that transparently read, write, seek, flush and close as a group.
//
// A Device wraps a concrete implementation. Capabilities are discovered by
// type assertion: io.Reader, io.Writer, io.Seeker, io.Closer plus the
// optional interfaces Flusher, StateSwitcher, Shutdowner, Opener and Tagger.
// The handle adds mode enforcement, the read/write direction barrier, a
// pushback buffer, sticky error state and formatted I/O.
package devio

import (
	"io"
	"unicode/utf8"
)

// UngetcDepth is the capacity of the per-handle pushback buffer.
const UngetcDepth = 8

// Optional capability interfaces. A concrete device implements the subset
// that makes sense for it; the handle discovers them by type assertion.
type (
	// Flusher delivers any internally buffered writes to the next layer.
	Flusher interface {
		Flush() error
	}

	// StateSwitcher is notified when a readable-writable handle switches
	// between reading and writing. Devices with direction-dependent block
	// state (e.g. block ciphers) reset it here.
	StateSwitcher interface {
		StateSwitch() error
	}

	// Shutdowner closes the read half, write half or both of a
	// bidirectional transport.
	Shutdowner interface {
		Shutdown(how How) error
	}

	// Opener runs device setup after the handle is configured. If it
	// fails, handle creation fails and the implementation is not used.
	Opener interface {
		OpenDevice(mode Mode) error
	}

	// Tagger names the device for error context ("tcp", "aes", "memory").
	Tagger interface {
		What() string
	}

	// ErrClearer lets a handle forward clearerr to its implementation.
	// Filters that must propagate clearerr downstream implement this.
	ErrClearer interface {
		ClearErr()
	}
)

// How selects which half of a bidirectional transport to shut down.
type How int

const (
	ShutRead How = iota
	ShutWrite
	ShutBoth
)

// direction tracks the last transfer direction of a handle.
type direction uint8

const (
	dirNone direction = iota
	dirRead
	dirWrite
)

// Options contains additional options for handle creation.
type Options struct {
	// Observer for metrics collection (if nil, uses a no-op observer)
	Observer Observer
}

// Device is the uniform handle over a concrete byte-stream implementation.
//
// All operations on one Device must be serialized by the caller. Distinct
// devices may be used from different goroutines in parallel.
type Device struct {
	impl any
	r    io.Reader
	w    io.Writer
	s    io.Seeker

	mode Mode
	dir  direction
	tag  string

	err    error
	eof    bool
	closed bool

	unread   [UngetcDepth]byte
	nunread  int
	lastByte byte
	haveLast bool
	lastRune []byte

	obs Observer
}

// New wraps impl in a device handle opened with the given mode string.
//
// The mode must be satisfiable by the implementation: a readable mode
// requires io.Reader, a writable mode io.Writer. If impl implements Opener,
// its OpenDevice hook runs last; on failure no handle is returned.
func New(impl any, mode string, options *Options) (*Device, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return NewWithMode(impl, m, options)
}

// NewWithMode is New with pre-parsed mode flags.
func NewWithMode(impl any, m Mode, options *Options) (*Device, error) {
	d := &Device{
		impl: impl,
		mode: m,
		tag:  "device",
		obs:  NoOpObserver{},
	}

	d.r, _ = impl.(io.Reader)
	d.w, _ = impl.(io.Writer)
	d.s, _ = impl.(io.Seeker)

	if m.Read && d.r == nil {
		return nil, NewError("open", ErrCodeInvalidArgument, "readable mode on a device that cannot read")
	}
	if m.Write && d.w == nil {
		return nil, NewError("open", ErrCodeInvalidArgument, "writable mode on a device that cannot write")
	}

	if t, ok := impl.(Tagger); ok {
		d.tag = t.What()
	}
	if options != nil && options.Observer != nil {
		d.obs = options.Observer
	}

	if o, ok := impl.(Opener); ok {
		if err := o.OpenDevice(m); err != nil {
			return nil, WrapError("open", err)
		}
	}

	return d, nil
}

// Read reads up to len(p) bytes. Unlike a bare io.Reader, the handle loops
// over the implementation so a short count is returned only at end of
// stream or on error. A clean end of stream yields (0, io.EOF).
func (d *Device) Read(p []byte) (int, error) {
	if d.closed {
		return 0, NewDeviceError("read", d.tag, ErrCodeInvalidArgument, "device is closed")
	}
	if d.err != nil {
		return 0, d.err
	}
	if !d.mode.Read {
		return 0, NewDeviceError("read", d.tag, ErrCodePermissionDenied, "device not opened for reading")
	}
	if err := d.switchDir(dirRead); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(p) && d.nunread > 0 {
		d.nunread--
		p[n] = d.unread[d.nunread]
		n++
	}

	for n < len(p) {
		m, err := d.r.Read(p[n:])
		n += m
		if err == io.EOF {
			d.eof = true
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err != nil {
			e := d.setErr("read", err)
			d.obs.ObserveRead(uint64(n), false)
			return n, e
		}
		if m == 0 {
			// no progress and no error; hand back what we have
			break
		}
	}

	d.obs.ObserveRead(uint64(n), true)
	return n, nil
}

// Write writes len(p) bytes. A short count indicates an error on the
// underlying device.
func (d *Device) Write(p []byte) (int, error) {
	if d.closed {
		return 0, NewDeviceError("write", d.tag, ErrCodeInvalidArgument, "device is closed")
	}
	if d.err != nil {
		return 0, d.err
	}
	if !d.mode.Write {
		return 0, NewDeviceError("write", d.tag, ErrCodePermissionDenied, "device not opened for writing")
	}
	if err := d.switchDir(dirWrite); err != nil {
		return 0, err
	}

	n, err := d.w.Write(p)
	if err != nil {
		e := d.setErr("write", err)
		d.obs.ObserveWrite(uint64(n), false)
		return n, e
	}
	if n < len(p) {
		e := d.setErrCode("write", ErrCodeWriteFault, "short write")
		d.obs.ObserveWrite(uint64(n), false)
		return n, e
	}

	d.obs.ObserveWrite(uint64(n), true)
	return n, nil
}

// ReadByte reads a single byte.
func (d *Device) ReadByte() (byte, error) {
	var b [1]byte
	n, err := d.Read(b[:])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	d.lastByte = b[0]
	d.haveLast = true
	return b[0], nil
}

// UnreadByte pushes the byte most recently returned by ReadByte back onto
// the handle. It fails if no byte was read since the last seek, pushback or
// direction switch.
func (d *Device) UnreadByte() error {
	if !d.haveLast {
		return NewDeviceError("ungetc", d.tag, ErrCodeInvalidArgument, "no byte to unread")
	}
	d.haveLast = false
	return d.PushBack(d.lastByte)
}

// PushBack pushes an arbitrary byte onto the pushback buffer. Cumulative
// pushback beyond UngetcDepth bytes fails.
func (d *Device) PushBack(c byte) error {
	if !d.mode.Read {
		return NewDeviceError("ungetc", d.tag, ErrCodePermissionDenied, "device not opened for reading")
	}
	if d.nunread == UngetcDepth {
		return NewDeviceError("ungetc", d.tag, ErrCodeNoBufferSpace, "pushback buffer full")
	}
	d.unread[d.nunread] = c
	d.nunread++
	d.eof = false
	return nil
}

// ReadRune reads a single UTF-8 encoded rune.
func (d *Device) ReadRune() (rune, int, error) {
	b0, err := d.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	if b0 < utf8.RuneSelf {
		d.lastRune = append(d.lastRune[:0], b0)
		return rune(b0), 1, nil
	}

	var buf [utf8.UTFMax]byte
	buf[0] = b0
	n := 1
	for !utf8.FullRune(buf[:n]) && n < utf8.UTFMax {
		b, err := d.ReadByte()
		if err != nil {
			break
		}
		buf[n] = b
		n++
	}
	r, size := utf8.DecodeRune(buf[:n])
	for i := n - 1; i >= size; i-- {
		if err := d.PushBack(buf[i]); err != nil {
			return 0, 0, err
		}
	}
	d.lastByte = 0
	d.haveLast = false
	d.lastRune = append(d.lastRune[:0], buf[:size]...)
	return r, size, nil
}

// UnreadRune pushes the rune most recently returned by ReadRune back onto
// the handle.
func (d *Device) UnreadRune() error {
	if len(d.lastRune) == 0 {
		return NewDeviceError("ungetc", d.tag, ErrCodeInvalidArgument, "no rune to unread")
	}
	for i := len(d.lastRune) - 1; i >= 0; i-- {
		if err := d.PushBack(d.lastRune[i]); err != nil {
			return err
		}
	}
	d.lastRune = d.lastRune[:0]
	return nil
}

// WriteByte writes a single byte.
func (d *Device) WriteByte(c byte) error {
	_, err := d.Write([]byte{c})
	return err
}

// WriteString writes a string.
func (d *Device) WriteString(s string) (int, error) {
	return d.Write([]byte(s))
}

// Seek repositions the handle. It flushes pending writes, then clears the
// end-of-stream flag and the pushback buffer on success. Non-seekable
// devices fail with ErrCodeNotSeekable.
func (d *Device) Seek(off int64, whence int) (int64, error) {
	if d.closed {
		return 0, NewDeviceError("seek", d.tag, ErrCodeInvalidArgument, "device is closed")
	}
	if d.err != nil {
		return 0, d.err
	}
	if d.s == nil {
		return 0, d.setErrCode("seek", ErrCodeNotSeekable, "device is not seekable")
	}

	if d.dir == dirWrite {
		if f, ok := d.impl.(Flusher); ok {
			if err := f.Flush(); err != nil {
				return 0, d.setErr("seek", err)
			}
		}
	}

	pos, err := d.s.Seek(off, whence)
	if err != nil {
		return pos, d.setErr("seek", err)
	}

	d.eof = false
	d.nunread = 0
	d.haveLast = false
	d.lastRune = d.lastRune[:0]
	d.dir = dirNone
	d.obs.ObserveSeek()
	return pos, nil
}

// Tell reports the logical position visible to the caller: the
// implementation position minus any pending pushback.
func (d *Device) Tell() (int64, error) {
	if d.s == nil {
		return 0, NewDeviceError("tell", d.tag, ErrCodeNotSeekable, "device is not seekable")
	}
	pos, err := d.s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, d.setErr("tell", err)
	}
	return pos - int64(d.nunread), nil
}

// Seek32 is a range-checked convenience over Seek for 32-bit callers.
func (d *Device) Seek32(off int32, whence int) (int32, error) {
	pos, err := d.Seek(int64(off), whence)
	if err != nil {
		return 0, err
	}
	if pos > 0x7fffffff {
		return 0, NewDeviceError("seek", d.tag, ErrCodeInvalidArgument, "position exceeds 32-bit range")
	}
	return int32(pos), nil
}

// Tell32 is a range-checked convenience over Tell for 32-bit callers.
func (d *Device) Tell32() (int32, error) {
	pos, err := d.Tell()
	if err != nil {
		return 0, err
	}
	if pos > 0x7fffffff {
		return 0, NewDeviceError("tell", d.tag, ErrCodeInvalidArgument, "position exceeds 32-bit range")
	}
	return int32(pos), nil
}

// Size reports the total size of a seekable device, preserving the current
// position.
func (d *Device) Size() (int64, error) {
	cur, err := d.Tell()
	if err != nil {
		return 0, err
	}
	end, err := d.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := d.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// Flush delivers any buffered writes to the next layer.
func (d *Device) Flush() error {
	if d.closed {
		return NewDeviceError("flush", d.tag, ErrCodeInvalidArgument, "device is closed")
	}
	f, ok := d.impl.(Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		e := d.setErr("flush", err)
		d.obs.ObserveFlush(false)
		return e
	}
	d.obs.ObserveFlush(true)
	return nil
}

// Shutdown closes the read half, write half or both of a bidirectional
// transport device.
func (d *Device) Shutdown(how How) error {
	if d.closed {
		return NewDeviceError("shutdown", d.tag, ErrCodeInvalidArgument, "device is closed")
	}
	sd, ok := d.impl.(Shutdowner)
	if !ok {
		return NewDeviceError("shutdown", d.tag, ErrCodeNotSupported, "device cannot shut down")
	}
	if err := sd.Shutdown(how); err != nil {
		return d.setErr("shutdown", err)
	}
	return nil
}

// Close flushes pending writes, runs the implementation's close hook and
// invalidates the handle. The first error encountered is returned; the
// handle is unusable regardless. Closing an already-closed handle is a
// no-op.
//
// A filter device's close hook releases only the filter's own resources:
// the device it wraps stays open and owned by whoever opened it.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var first error
	if d.dir == dirWrite {
		if f, ok := d.impl.(Flusher); ok {
			if err := f.Flush(); err != nil {
				first = WrapError("close", err)
			}
		}
	}
	if c, ok := d.impl.(io.Closer); ok {
		if err := c.Close(); err != nil && first == nil {
			first = WrapError("close", err)
		}
	}
	return first
}

// Err returns the sticky error state, nil if none.
func (d *Device) Err() error {
	return d.err
}

// ClearErr clears the sticky error and end-of-stream state, forwarding to
// the implementation when it participates.
func (d *Device) ClearErr() {
	d.err = nil
	d.eof = false
	if ec, ok := d.impl.(ErrClearer); ok {
		ec.ClearErr()
	}
}

// EOF reports whether the device observed a clean end of stream.
func (d *Device) EOF() bool { return d.eof }

// Readable reports whether the handle was opened for reading.
func (d *Device) Readable() bool { return d.mode.Read }

// Writable reports whether the handle was opened for writing.
func (d *Device) Writable() bool { return d.mode.Write }

// JustRead reports whether the last transfer direction was a read.
func (d *Device) JustRead() bool { return d.dir == dirRead }

// JustWrote reports whether the last transfer direction was a write.
func (d *Device) JustWrote() bool { return d.dir == dirWrite }

// Mode returns the parsed open-mode flags.
func (d *Device) Mode() Mode { return d.mode }

// What returns the human-readable device tag.
func (d *Device) What() string { return d.tag }

// switchDir enforces the direction rule: switching between reading and
// writing on a readable-writable handle flushes pending writes, discards
// the pushback buffer and notifies the implementation.
func (d *Device) switchDir(to direction) error {
	if d.dir == to {
		return nil
	}
	if d.dir == dirNone {
		d.dir = to
		return nil
	}

	if d.dir == dirWrite {
		if f, ok := d.impl.(Flusher); ok {
			if err := f.Flush(); err != nil {
				return d.setErr("state switch", err)
			}
		}
	}
	d.nunread = 0
	d.haveLast = false
	d.lastRune = d.lastRune[:0]
	if sw, ok := d.impl.(StateSwitcher); ok {
		if err := sw.StateSwitch(); err != nil {
			return d.setErr("state switch", err)
		}
	}
	d.dir = to
	return nil
}

// setErr records a sticky error on the handle, wrapping it with operation
// context. A filter implementation returning a *Error propagates its code
// upward unchanged.
func (d *Device) setErr(op string, err error) error {
	e := WrapError(op, err)
	if e.Dev == "" {
		e.Dev = d.tag
	}
	d.err = e
	return e
}

func (d *Device) setErrCode(op string, code ErrorCode, msg string) error {
	e := NewDeviceError(op, d.tag, code, msg)
	d.err = e
	return e
}
