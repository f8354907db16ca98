// Package cpu caches CPU feature detection for the cipher devices.
package cpu

import (
	"sync"

	"github.com/klauspost/cpuid/v2"
)

var (
	once   sync.Once
	hasAES bool
)

// HasAES reports whether the platform advertises hardware AES support.
// The probe runs once on first use.
func HasAES() bool {
	once.Do(func() {
		hasAES = cpuid.CPU.Supports(cpuid.AESNI)
	})
	return hasAES
}
