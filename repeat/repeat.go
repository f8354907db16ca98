// Package repeat cycles a seekable source indefinitely.
//
// When the underlying device reaches end of stream after yielding at least
// one byte in the current cycle, the filter rewinds it to the start and
// keeps reading. An empty source is not cycled: the filter reports end of
// stream immediately. The filter does not own the underlying device.
package repeat

import (
	"io"

	"github.com/owacoder/devio"
)

type filter struct {
	under *devio.Device
	cycle int64 // bytes yielded since the last rewind
}

// New wraps under in a cycling read-only device handle.
func New(under *devio.Device, mode string) (*devio.Device, error) {
	if under == nil {
		return nil, devio.NewError("repeat", devio.ErrCodeInvalidArgument, "nil device")
	}
	f := &filter{under: under}
	return devio.New(f, mode, nil)
}

func (f *filter) Read(p []byte) (int, error) {
	for {
		n, err := f.under.Read(p)
		if n > 0 {
			f.cycle += int64(n)
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		// end of the source
		if f.cycle == 0 {
			return 0, io.EOF
		}
		if _, err := f.under.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		f.cycle = 0
	}
}

// ClearErr forwards clearerr to the underlying device.
func (f *filter) ClearErr() { f.under.ClearErr() }

func (f *filter) What() string { return "repeat" }
