package httpdev

import (
	"strings"

	"github.com/owacoder/devio"
)

// Header is an ordered collection of HTTP header fields. Lookups compare
// names case-insensitively; insertion order is preserved.
type Header struct {
	pairs []headerPair
}

type headerPair struct {
	name  string
	value string
}

// Add appends a field.
func (h *Header) Add(name, value string) {
	h.pairs = append(h.pairs, headerPair{name: name, value: value})
}

// Get returns the first value for name and whether it is present.
func (h *Header) Get(name string) (string, bool) {
	for _, p := range h.pairs {
		if strings.EqualFold(p.name, name) {
			return p.value, true
		}
	}
	return "", false
}

// Values returns every value for name in insertion order.
func (h *Header) Values(name string) []string {
	var out []string
	for _, p := range h.pairs {
		if strings.EqualFold(p.name, name) {
			out = append(out, p.value)
		}
	}
	return out
}

// Len returns the number of fields.
func (h *Header) Len() int { return len(h.pairs) }

// Reset drops all fields.
func (h *Header) Reset() { h.pairs = h.pairs[:0] }

// readLine reads a CRLF-terminated line from t, returning it without the
// terminator. A lone LF or end of stream mid-line is a malformed message.
func readLine(t *devio.Device) (string, error) {
	var b strings.Builder
	for {
		c, err := t.ReadByte()
		if err != nil {
			return "", devio.NewDeviceError("read", "http", devio.ErrCodeBadMessage, "line ends prematurely")
		}
		if c == '\n' {
			line := b.String()
			if !strings.HasSuffix(line, "\r") {
				return "", devio.NewDeviceError("read", "http", devio.ErrCodeBadMessage, "line missing CR")
			}
			return strings.TrimSuffix(line, "\r"), nil
		}
		b.WriteByte(c)
	}
}

// readHeaderBlock parses header lines from t into h until the empty line
// that terminates the section. Lines continued with leading SP or HTAB are
// unfolded into the previous field's value.
func readHeaderBlock(t *devio.Device, h *Header) error {
	for {
		line, err := readLine(t)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(h.pairs) == 0 {
				return devio.NewDeviceError("read", "http", devio.ErrCodeBadMessage, "continuation before any header")
			}
			last := &h.pairs[len(h.pairs)-1]
			last.value += " " + strings.Trim(line, " \t")
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 1 {
			return devio.NewDeviceError("read", "http", devio.ErrCodeBadMessage, "header line missing colon")
		}
		name := line[:colon]
		value := strings.Trim(line[colon+1:], " \t")
		h.Add(name, value)
	}
}
