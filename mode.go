package devio

import "strings"

// Mode holds the parsed open-mode flags for a device handle.
//
// Mode strings use the tokens r|w|a|+|b|t|x|<|@ncp in any order. Exactly one
// of r, w, a is required. Unknown tokens are ignored.
type Mode struct {
	Read       bool // handle may read
	Write      bool // handle may write
	Append     bool // writes go to the end of the resource
	Create     bool // create the resource if missing
	Truncate   bool // truncate the resource on open
	Exclusive  bool // fail if the resource already exists (w + x)
	Binary     bool // no text translation (accepted; this layer never translates)
	NoAccel    bool // disable device-specific hardware acceleration
	NativePath bool // resolve file paths in the platform native code page
}

// ParseMode parses a mode string into Mode flags.
func ParseMode(s string) (Mode, error) {
	var m Mode
	base := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'r':
			m.Read = true
			base++
		case 'w':
			m.Write = true
			m.Create = true
			m.Truncate = true
			base++
		case 'a':
			m.Write = true
			m.Create = true
			m.Append = true
			base++
		case '+':
			m.Read = true
			m.Write = true
		case 'b':
			m.Binary = true
		case 't':
			m.Binary = false
		case 'x':
			m.Exclusive = true
		case '<':
			m.NoAccel = true
		case '@':
			if strings.HasPrefix(s[i:], "@ncp") {
				m.NativePath = true
				i += 3
			}
			// unknown @-token: ignored
		default:
			// unknown tokens are ignored without error
		}
	}

	if base != 1 {
		return Mode{}, NewError("parse mode", ErrCodeInvalidArgument,
			"mode requires exactly one of r, w, a: "+s)
	}
	if m.Exclusive && !m.Truncate {
		return Mode{}, NewError("parse mode", ErrCodeInvalidArgument,
			"x is only valid with w: "+s)
	}

	return m, nil
}

// String reconstructs a canonical mode string from the flags.
func (m Mode) String() string {
	var b strings.Builder
	switch {
	case m.Append:
		b.WriteByte('a')
		if m.Read {
			b.WriteByte('+')
		}
	case m.Truncate:
		b.WriteByte('w')
		if m.Read {
			b.WriteByte('+')
		}
	default:
		b.WriteByte('r')
		if m.Write {
			b.WriteByte('+')
		}
	}
	if m.Binary {
		b.WriteByte('b')
	}
	if m.Exclusive {
		b.WriteByte('x')
	}
	if m.NoAccel {
		b.WriteByte('<')
	}
	if m.NativePath {
		b.WriteString("@ncp")
	}
	return b.String()
}
