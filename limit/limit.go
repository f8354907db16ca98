// Package limit restricts access to a window of an underlying device.
//
// The filter exposes bytes [offset, offset+length) of the device it wraps
// as a stream of its own, with positions relative to the window start. It
// does not own the underlying device.
package limit

import (
	"io"

	"github.com/owacoder/devio"
)

type filter struct {
	under  *devio.Device
	offset int64
	length int64
	pos    int64 // relative to offset
}

// New wraps the window [offset, offset+length) of under in a new device
// handle. If offset is non-zero the underlying device is repositioned to
// the window start, which requires it to be seekable.
func New(under *devio.Device, offset, length int64, mode string) (*devio.Device, error) {
	if under == nil || offset < 0 || length < 0 {
		return nil, devio.NewError("limit", devio.ErrCodeInvalidArgument, "bad window")
	}
	if offset > 0 {
		if _, err := under.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
	}
	f := &filter{under: under, offset: offset, length: length}
	return devio.New(f, mode, nil)
}

func (f *filter) Read(p []byte) (int, error) {
	remain := f.length - f.pos
	if remain == 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := f.under.Read(p)
	f.pos += int64(n)
	return n, err
}

func (f *filter) Write(p []byte) (int, error) {
	remain := f.length - f.pos
	if remain == 0 {
		return 0, devio.NewDeviceError("write", "limit", devio.ErrCodeNoBufferSpace, "window is full")
	}
	clamped := p
	if int64(len(clamped)) > remain {
		clamped = clamped[:remain]
	}
	n, err := f.under.Write(clamped)
	f.pos += int64(n)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, devio.NewDeviceError("write", "limit", devio.ErrCodeNoBufferSpace, "window is full")
	}
	return n, nil
}

// Seek translates window-relative positions onto the underlying device.
// Positions outside [0, length] are rejected.
func (f *filter) Seek(off int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = f.length
	default:
		return 0, devio.NewDeviceError("seek", "limit", devio.ErrCodeInvalidArgument, "bad whence")
	}
	target := base + off
	if target < 0 || target > f.length {
		return 0, devio.NewDeviceError("seek", "limit", devio.ErrCodeInvalidArgument, "position outside window")
	}
	if _, err := f.under.Seek(f.offset+target, io.SeekStart); err != nil {
		return 0, err
	}
	f.pos = target
	return target, nil
}

func (f *filter) Flush() error { return f.under.Flush() }

// ClearErr forwards clearerr to the underlying device.
func (f *filter) ClearErr() { f.under.ClearErr() }

func (f *filter) What() string { return "limit" }
