// Package md5dev provides a streaming MD5 device.
//
// The device works in two modes, selected by how it is used:
//
//   - Push sink: the caller writes arbitrary bytes into the device. On
//     close, a write-only device emits the 16-byte digest to the device it
//     wraps; a readable-writable device instead makes the digest available
//     through Read.
//   - Pull source: the caller reads without having written. The device
//     drains the underlying device through the hash, then serves the
//     16-byte digest, which may be seeked within but not re-hashed.
//
// The digest is the four state words serialized little-endian, matching
// the published RFC 1321 vectors. The filter does not own the underlying
// device.
package md5dev

import (
	"crypto/md5"
	"hash"
	"io"

	"github.com/owacoder/devio"
	"github.com/owacoder/devio/internal/pool"
)

// DigestSize is the size of an MD5 digest in bytes.
const DigestSize = md5.Size

type filter struct {
	under *devio.Device
	h     hash.Hash
	mode  devio.Mode

	wrote  bool
	digest []byte // non-nil once finalized for reading
	dpos   int64
}

// New wraps under in an MD5 device handle. The underlying device may be
// nil for a readable-writable hasher whose digest is consumed through Read.
func New(under *devio.Device, mode string) (*devio.Device, error) {
	f := &filter{under: under, h: md5.New()}
	return devio.New(f, mode, nil)
}

func (f *filter) OpenDevice(m devio.Mode) error {
	if m.Read && f.under == nil && !m.Write {
		return devio.NewDeviceError("open", "md5", devio.ErrCodeInvalidArgument, "pull mode needs an underlying device")
	}
	f.mode = m
	return nil
}

func (f *filter) Write(p []byte) (int, error) {
	if f.digest != nil {
		return 0, devio.NewDeviceError("write", "md5", devio.ErrCodeNotSupported, "digest already finalized")
	}
	f.wrote = true
	return f.h.Write(p)
}

func (f *filter) Read(p []byte) (int, error) {
	if f.digest == nil {
		if err := f.finalize(); err != nil {
			return 0, err
		}
	}
	if f.dpos >= DigestSize {
		return 0, io.EOF
	}
	n := copy(p, f.digest[f.dpos:])
	f.dpos += int64(n)
	return n, nil
}

// Seek repositions within the finalized digest. Positions outside
// [0, DigestSize] are rejected.
func (f *filter) Seek(off int64, whence int) (int64, error) {
	if f.digest == nil {
		if err := f.finalize(); err != nil {
			return 0, err
		}
	}
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.dpos
	case io.SeekEnd:
		base = DigestSize
	default:
		return 0, devio.NewDeviceError("seek", "md5", devio.ErrCodeInvalidArgument, "bad whence")
	}
	target := base + off
	if target < 0 || target > DigestSize {
		return 0, devio.NewDeviceError("seek", "md5", devio.ErrCodeInvalidArgument, "position outside digest")
	}
	f.dpos = target
	return target, nil
}

// finalize snapshots the digest. In pull mode the underlying device is
// drained through the hash first.
func (f *filter) finalize() error {
	if !f.wrote && f.under != nil {
		buf := pool.GetBuffer(pool.CopyBufferSize)
		defer pool.PutBuffer(buf)
		for {
			n, err := f.under.Read(buf)
			if n > 0 {
				f.h.Write(buf[:n])
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
		}
	}
	f.digest = f.h.Sum(nil)
	f.dpos = 0
	return nil
}

// Close finalizes a write-only hasher by emitting the digest to the
// underlying device. The underlying device stays open.
func (f *filter) Close() error {
	if f.mode.Write && !f.mode.Read && f.under != nil {
		if f.digest == nil {
			f.digest = f.h.Sum(nil)
		}
		if _, err := f.under.Write(f.digest); err != nil {
			return err
		}
	}
	return nil
}

func (f *filter) Flush() error {
	if f.under == nil {
		return nil
	}
	return f.under.Flush()
}

// ClearErr forwards clearerr to the underlying device.
func (f *filter) ClearErr() {
	if f.under != nil {
		f.under.ClearErr()
	}
}

func (f *filter) What() string { return "md5" }
