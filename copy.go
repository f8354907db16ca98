package devio

import (
	"io"

	"github.com/owacoder/devio/internal/pool"
)

// Copy pipes src into dst until end of stream, using a pooled scratch
// buffer. It returns the number of bytes written to dst.
func Copy(dst, src *Device) (int64, error) {
	buf := pool.GetBuffer(pool.CopyBufferSize)
	defer pool.PutBuffer(buf)

	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// CopyN pipes exactly n bytes from src into dst. Fewer bytes than requested
// is reported as io.ErrUnexpectedEOF.
func CopyN(dst, src *Device, n int64) (int64, error) {
	buf := pool.GetBuffer(pool.CopyBufferSize)
	defer pool.PutBuffer(buf)

	var total int64
	for total < n {
		want := n - total
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		rn, err := src.Read(buf[:want])
		if rn > 0 {
			wn, werr := dst.Write(buf[:rn])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF || (rn == 0 && err == nil) {
			return total, io.ErrUnexpectedEOF
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Drain reads src to end of stream, discarding the bytes, and returns the
// number of bytes discarded.
func Drain(src *Device) (int64, error) {
	buf := pool.GetBuffer(pool.CopyBufferSize)
	defer pool.PutBuffer(buf)

	var total int64
	for {
		n, err := src.Read(buf)
		total += int64(n)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}
