// Package aesdev provides an AES block-cipher device.
//
// The device transforms the byte stream flowing through it in 16-byte
// blocks: writes buffer plaintext (or ciphertext, for a decryptor) until a
// block fills, then emit the transformed block to the underlying device;
// reads pull whole blocks from the underlying device, transform them and
// hand them out in requested chunks. The stream carries raw blocks only:
// no header, no IV prefix, no padding, no authentication tag. Callers that
// need padding compose the pad filter in front.
//
// Chaining modes ECB, CBC, PCBC, CFB and OFB are supported with 128-, 192-
// and 256-bit keys. When the platform advertises hardware AES and the open
// mode does not contain '<', the block primitive is crypto/aes (which
// dispatches to AES-NI); otherwise the portable core in this package is
// used. CFB and OFB use the encrypt primitive in both directions, so the
// accelerated path needs no inverse-key transformation for them.
//
// The filter does not own the underlying device.
package aesdev

import (
	stdaes "crypto/aes"
	"io"

	"github.com/owacoder/devio"
	"github.com/owacoder/devio/internal/bo"
	"github.com/owacoder/devio/internal/cpu"
)

// BlockSize is the AES block size in bytes.
const BlockSize = 16

// Mode selects the block chaining mode.
type Mode int

const (
	ECB Mode = iota
	CBC
	PCBC
	CFB
	OFB
)

func (m Mode) String() string {
	switch m {
	case ECB:
		return "ECB"
	case CBC:
		return "CBC"
	case PCBC:
		return "PCBC"
	case CFB:
		return "CFB"
	case OFB:
		return "OFB"
	}
	return "unknown"
}

// ParseChainMode maps a mode name to a Mode.
func ParseChainMode(s string) (Mode, error) {
	switch s {
	case "ECB", "ecb":
		return ECB, nil
	case "CBC", "cbc":
		return CBC, nil
	case "PCBC", "pcbc":
		return PCBC, nil
	case "CFB", "cfb":
		return CFB, nil
	case "OFB", "ofb":
		return OFB, nil
	}
	return 0, devio.NewDeviceError("open", "aes", devio.ErrCodeInvalidArgument, "unknown chaining mode "+s)
}

// Config holds the cipher parameters for one device instance.
type Config struct {
	Key     []byte   // 16, 24 or 32 bytes
	IV      [16]byte // initial chaining block; ignored by ECB
	Mode    Mode
	Decrypt bool // run the stream through the inverse transform
}

type filter struct {
	under *devio.Device
	cfg   Config
	block blockCipher
	accel bool

	iv   [16]byte // initial chaining value
	prev [16]byte // rolling chaining value
	buf  [16]byte // block in flight
	pos  int      // consumed (read) or buffered (write) bytes in buf
	navail  int   // read direction: valid transformed bytes in buf
	logical int64 // stream position visible to the caller

	devMode devio.Mode
}

// New wraps under in an AES device handle.
func New(under *devio.Device, cfg Config, mode string) (*devio.Device, error) {
	if under == nil {
		return nil, devio.NewDeviceError("open", "aes", devio.ErrCodeInvalidArgument, "nil device")
	}
	if cfg.Mode < ECB || cfg.Mode > OFB {
		return nil, devio.NewDeviceError("open", "aes", devio.ErrCodeInvalidArgument, "unknown chaining mode")
	}
	f := &filter{under: under, cfg: cfg}
	return devio.New(f, mode, nil)
}

// OpenDevice selects the block primitive and seeds the chaining state.
func (f *filter) OpenDevice(m devio.Mode) error {
	switch len(f.cfg.Key) {
	case 16, 24, 32:
	default:
		return devio.NewDeviceError("open", "aes", devio.ErrCodeInvalidArgument, "key must be 16, 24 or 32 bytes")
	}

	if cpu.HasAES() && !m.NoAccel {
		b, err := stdaes.NewCipher(f.cfg.Key)
		if err != nil {
			return devio.WrapError("open", err)
		}
		f.block = b
		f.accel = true
	} else {
		b, err := newSoftCipher(f.cfg.Key)
		if err != nil {
			return err
		}
		f.block = b
	}

	f.devMode = m
	f.iv = f.cfg.IV
	f.prev = f.cfg.IV
	return nil
}

// transform runs one block through the configured mode. dst and src must
// not alias.
func (f *filter) transform(dst, src *[16]byte) {
	switch f.cfg.Mode {
	case ECB:
		if f.cfg.Decrypt {
			f.block.Decrypt(dst[:], src[:])
		} else {
			f.block.Encrypt(dst[:], src[:])
		}

	case CBC:
		if f.cfg.Decrypt {
			c := *src
			f.block.Decrypt(dst[:], src[:])
			bo.XorBytes(dst[:], f.prev[:])
			f.prev = c
		} else {
			t := *src
			bo.XorBytes(t[:], f.prev[:])
			f.block.Encrypt(dst[:], t[:])
			f.prev = *dst
		}

	case PCBC:
		if f.cfg.Decrypt {
			c := *src
			f.block.Decrypt(dst[:], src[:])
			bo.XorBytes(dst[:], f.prev[:])
			f.prev = *dst
			bo.XorBytes(f.prev[:], c[:])
		} else {
			p := *src
			t := *src
			bo.XorBytes(t[:], f.prev[:])
			f.block.Encrypt(dst[:], t[:])
			f.prev = p
			bo.XorBytes(f.prev[:], dst[:])
		}

	case CFB:
		// the encrypt primitive feeds the keystream in both directions
		var ks [16]byte
		f.block.Encrypt(ks[:], f.prev[:])
		if f.cfg.Decrypt {
			c := *src
			*dst = ks
			bo.XorBytes(dst[:], c[:])
			f.prev = c
		} else {
			*dst = ks
			bo.XorBytes(dst[:], src[:])
			f.prev = *dst
		}

	case OFB:
		var ks [16]byte
		f.block.Encrypt(ks[:], f.prev[:])
		f.prev = ks
		*dst = ks
		bo.XorBytes(dst[:], src[:])
	}
}

func (f *filter) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m := copy(f.buf[f.pos:], p[n:])
		f.pos += m
		n += m
		if f.pos == BlockSize {
			var out [16]byte
			f.transform(&out, &f.buf)
			if _, err := f.under.Write(out[:]); err != nil {
				f.logical += int64(n)
				return n, err
			}
			f.pos = 0
		}
	}
	f.logical += int64(n)
	return n, nil
}

func (f *filter) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if f.pos == f.navail {
			var in [16]byte
			m, err := f.under.Read(in[:])
			if m == 0 {
				if err == nil || err == io.EOF {
					if n > 0 {
						break
					}
					f.logical += int64(n)
					return 0, io.EOF
				}
				f.logical += int64(n)
				return n, err
			}
			if m < BlockSize {
				f.logical += int64(n)
				return n, devio.NewDeviceError("read", "aes", devio.ErrCodeBadMessage, "truncated cipher block")
			}
			f.transform(&f.buf, &in)
			f.pos = 0
			f.navail = BlockSize
		}
		m := copy(p[n:], f.buf[f.pos:f.navail])
		f.pos += m
		n += m
	}
	f.logical += int64(n)
	return n, nil
}

// StateSwitch discards the block buffer when the handle switches between
// reading and writing.
func (f *filter) StateSwitch() error {
	f.pos = 0
	f.navail = 0
	return nil
}

// Seek repositions the cipher stream.
//
// Alignment and mode rules: a read-only device may land on any byte of an
// ECB, CBC or CFB stream; a readable-writable device only on block
// boundaries of those modes; a write-only device only on block boundaries
// of an ECB stream. OFB and PCBC rewind to the start only. Seeking reseeds
// the chaining value from the block preceding the target (the IV at the
// stream head).
func (f *filter) Seek(off int64, whence int) (int64, error) {
	if off == 0 && whence == io.SeekCurrent {
		return f.logical, nil
	}

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.logical
	case io.SeekEnd:
		end, err := f.under.Size()
		if err != nil {
			return 0, err
		}
		base = end
	default:
		return 0, devio.NewDeviceError("seek", "aes", devio.ErrCodeInvalidArgument, "bad whence")
	}
	target := base + off
	if target < 0 {
		return 0, devio.NewDeviceError("seek", "aes", devio.ErrCodeInvalidArgument, "negative position")
	}

	readable, writable := f.devMode.Read, f.devMode.Write
	switch f.cfg.Mode {
	case OFB, PCBC:
		if target != 0 {
			return 0, devio.NewDeviceError("seek", "aes", devio.ErrCodeNotSupported,
				f.cfg.Mode.String()+" streams rewind to the start only")
		}
	case ECB, CBC, CFB:
		if writable {
			if target%BlockSize != 0 {
				return 0, devio.NewDeviceError("seek", "aes", devio.ErrCodeInvalidArgument,
					"position must be block-aligned on a writable device")
			}
			if !readable && f.cfg.Mode != ECB {
				return 0, devio.NewDeviceError("seek", "aes", devio.ErrCodeNotSupported,
					"write-only seek requires the previous cipher block")
			}
		}
	}

	blockAddr := target &^ (BlockSize - 1)

	if blockAddr == 0 || f.cfg.Mode == ECB {
		f.prev = f.iv
		if _, err := f.under.Seek(blockAddr, io.SeekStart); err != nil {
			return 0, err
		}
	} else {
		// reseed the chain from the preceding stored block
		if _, err := f.under.Seek(blockAddr-BlockSize, io.SeekStart); err != nil {
			return 0, err
		}
		var pb [16]byte
		m, err := f.under.Read(pb[:])
		if err != nil && err != io.EOF {
			return 0, err
		}
		if m < BlockSize {
			return 0, devio.NewDeviceError("seek", "aes", devio.ErrCodeBadMessage, "truncated cipher block")
		}
		f.prev = pb
	}

	f.pos = 0
	f.navail = 0
	f.logical = blockAddr

	if rem := int(target - blockAddr); rem > 0 {
		// byte granularity inside the block is reached by transforming it
		// and discarding the leading remainder
		var skip [BlockSize]byte
		if _, err := f.Read(skip[:rem]); err != nil {
			return 0, err
		}
	}
	return target, nil
}

// Close reports a partial trailing block left in the write buffer. The
// device never pads; callers compose the pad filter when the stream length
// is not a block multiple. The underlying device stays open.
func (f *filter) Close() error {
	if f.pos > 0 && f.navail == 0 {
		return devio.NewDeviceError("close", "aes", devio.ErrCodeWriteFault,
			"stream length is not a block multiple")
	}
	return nil
}

func (f *filter) Flush() error { return f.under.Flush() }

// ClearErr forwards clearerr to the underlying device.
func (f *filter) ClearErr() { f.under.ClearErr() }

func (f *filter) What() string { return "aes" }
