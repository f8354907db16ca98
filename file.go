package devio

import (
	"os"
)

// fileDevice wraps an *os.File. os.File performs no userspace buffering, so
// the device needs no flush hook.
type fileDevice struct {
	f *os.File
}

func (fd *fileDevice) Read(p []byte) (int, error)  { return fd.f.Read(p) }
func (fd *fileDevice) Write(p []byte) (int, error) { return fd.f.Write(p) }
func (fd *fileDevice) Seek(off int64, whence int) (int64, error) {
	return fd.f.Seek(off, whence)
}
func (fd *fileDevice) Close() error { return fd.f.Close() }
func (fd *fileDevice) What() string { return "file" }

// Shutdown is not meaningful for files.

// OpenFile opens a file as a device handle. The mode string follows the
// usual token set; the @ncp token is a no-op on platforms whose native path
// encoding is already UTF-8.
func OpenFile(path, mode string, options *Options) (*Device, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	flags := 0
	switch {
	case m.Read && m.Write:
		flags = os.O_RDWR
	case m.Write:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if m.Create {
		flags |= os.O_CREATE
	}
	if m.Truncate {
		flags |= os.O_TRUNC
	}
	if m.Append {
		flags |= os.O_APPEND
	}
	if m.Exclusive {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, WrapError("open", err)
	}
	return NewWithMode(&fileDevice{f: f}, m, options)
}
