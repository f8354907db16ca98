package devio

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"r", Mode{Read: true}},
		{"rb", Mode{Read: true, Binary: true}},
		{"r+", Mode{Read: true, Write: true}},
		{"w", Mode{Write: true, Create: true, Truncate: true}},
		{"wb", Mode{Write: true, Create: true, Truncate: true, Binary: true}},
		{"w+b", Mode{Read: true, Write: true, Create: true, Truncate: true, Binary: true}},
		{"wx", Mode{Write: true, Create: true, Truncate: true, Exclusive: true}},
		{"a", Mode{Write: true, Create: true, Append: true}},
		{"a+", Mode{Read: true, Write: true, Create: true, Append: true}},
		{"rb<", Mode{Read: true, Binary: true, NoAccel: true}},
		{"rb@ncp", Mode{Read: true, Binary: true, NativePath: true}},
		{"rt", Mode{Read: true}},
		{"+r", Mode{Read: true, Write: true}},
		{"rz?", Mode{Read: true}}, // unknown tokens ignored
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Errorf("ParseMode(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseModeRejects(t *testing.T) {
	for _, in := range []string{"", "b", "rw", "ra", "wa", "rx", "x", "+"} {
		if _, err := ParseMode(in); err == nil {
			t.Errorf("ParseMode(%q) should fail", in)
		} else if !IsCode(err, ErrCodeInvalidArgument) {
			t.Errorf("ParseMode(%q) error code = %v, want invalid argument", in, err)
		}
	}
}

func TestModeString(t *testing.T) {
	for _, in := range []string{"r", "r+", "w", "w+", "a", "a+"} {
		m, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q) failed: %v", in, err)
		}
		if got := m.String(); got != in {
			t.Errorf("Mode(%q).String() = %q", in, got)
		}
	}
}
