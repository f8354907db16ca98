// Package pad implements the bit-padding encoder: a 0x80 marker byte
// followed by zero bytes up to the next block boundary.
//
// In write mode the filter counts bytes passed through and emits the
// padding when closed, so the underlying device always receives a whole
// number of blocks. In read mode the filter forwards the source and
// synthesizes the padding after the source ends. For input of length L and
// block size B the padded length is ceil((L+1)/B)*B. The filter does not
// own the underlying device.
package pad

import (
	"io"

	"github.com/owacoder/devio"
)

const marker = 0x80

type readState int

const (
	stateCopy readState = iota
	stateMarker
	stateZeros
	stateDone
)

type filter struct {
	under     *devio.Device
	blockSize int64
	written   int64
	writing   bool

	state    readState
	produced int64
}

// New wraps under in a padding device handle with the given block size.
// A block size of zero is treated as one.
func New(under *devio.Device, blockSize int64, mode string) (*devio.Device, error) {
	if under == nil || blockSize < 0 {
		return nil, devio.NewError("pad", devio.ErrCodeInvalidArgument, "bad block size")
	}
	if blockSize == 0 {
		blockSize = 1
	}
	f := &filter{under: under, blockSize: blockSize}
	return devio.New(f, mode, nil)
}

// OpenDevice records the transfer direction; a writable filter pads on
// close even when nothing was written, so an empty input still produces a
// whole block.
func (f *filter) OpenDevice(m devio.Mode) error {
	f.writing = m.Write
	return nil
}

func (f *filter) Write(p []byte) (int, error) {
	n, err := f.under.Write(p)
	f.written += int64(n)
	return n, err
}

func (f *filter) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		switch f.state {
		case stateCopy:
			m, err := f.under.Read(p[n:])
			n += m
			f.produced += int64(m)
			if err == io.EOF {
				f.state = stateMarker
				continue
			}
			if err != nil {
				return n, err
			}
			if m == 0 {
				f.state = stateMarker
			}
		case stateMarker:
			p[n] = marker
			n++
			f.produced++
			if f.produced%f.blockSize == 0 {
				f.state = stateDone
			} else {
				f.state = stateZeros
			}
		case stateZeros:
			p[n] = 0
			n++
			f.produced++
			if f.produced%f.blockSize == 0 {
				f.state = stateDone
			}
		case stateDone:
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
	}
	return n, nil
}

// Close emits the padding for a write-direction filter. The underlying
// device stays open.
func (f *filter) Close() error {
	if !f.writing {
		return nil
	}
	padLen := f.blockSize - f.written%f.blockSize
	buf := make([]byte, padLen)
	buf[0] = marker
	_, err := f.under.Write(buf)
	return err
}

func (f *filter) Flush() error { return f.under.Flush() }

// ClearErr forwards clearerr to the underlying device.
func (f *filter) ClearErr() { f.under.ClearErr() }

func (f *filter) What() string { return "pad" }
