// Package bo provides explicit little- and big-endian load/store helpers.
//
// Hash and cipher state words are serialized with these rather than
// assuming host byte order.
package bo

import "encoding/binary"

// LoadLE32 loads a 32-bit little-endian word.
func LoadLE32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// StoreLE32 stores a 32-bit little-endian word.
func StoreLE32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// LoadLE64 loads a 64-bit little-endian word.
func LoadLE64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// StoreLE64 stores a 64-bit little-endian word.
func StoreLE64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

// LoadBE32 loads a 32-bit big-endian word.
func LoadBE32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// StoreBE32 stores a 32-bit big-endian word.
func StoreBE32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// LoadBE64 loads a 64-bit big-endian word.
func LoadBE64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// StoreBE64 stores a 64-bit big-endian word.
func StoreBE64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }

// XorBytes XORs src into dst in place. The slices must be the same length.
func XorBytes(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Swap32 byte-swaps a 32-bit word.
func Swap32(v uint32) uint32 {
	return v<<24 | (v&0xff00)<<8 | (v>>8)&0xff00 | v>>24
}
