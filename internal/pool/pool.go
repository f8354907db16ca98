// Package pool recycles the scratch buffers behind the stream copy
// helpers.
//
// Every transfer loop in the toolkit (Copy/CopyN/Drain, the hash drain)
// moves bytes through a CopyBufferSize scratch slice, so one pool bucket
// covers the whole tree. Larger requests get a one-off allocation that is
// left to the collector.
package pool

import "sync"

// CopyBufferSize is the scratch size used by the stream copy helpers.
const CopyBufferSize = 32 * 1024

// buffers holds pointers to full-capacity scratch slices; the pointer
// indirection keeps sync.Pool from allocating on every Put.
var buffers = sync.Pool{
	New: func() any {
		b := make([]byte, CopyBufferSize)
		return &b
	},
}

// GetBuffer returns a scratch buffer of the requested size. Caller must
// call PutBuffer when done.
func GetBuffer(size int) []byte {
	if size <= CopyBufferSize {
		return (*buffers.Get().(*[]byte))[:size]
	}
	return make([]byte, size)
}

// PutBuffer recycles a buffer obtained from GetBuffer. Oversized one-off
// allocations are not pooled.
func PutBuffer(buf []byte) {
	if cap(buf) != CopyBufferSize {
		return
	}
	buf = buf[:CopyBufferSize]
	buffers.Put(&buf)
}
