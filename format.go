package devio

import "fmt"

// Formatted I/O. The handle implements io.Reader, io.Writer and
// io.RuneScanner, so the fmt verb set (widths, precision, zero padding,
// character classes on scan) applies directly.

// Printf writes formatted output to the device.
func (d *Device) Printf(format string, args ...any) (int, error) {
	return fmt.Fprintf(d, format, args...)
}

// Scanf reads formatted input from the device. Scanning may consume one
// byte of lookahead past the matched input; it remains available through
// the pushback buffer.
func (d *Device) Scanf(format string, args ...any) (int, error) {
	return fmt.Fscanf(d, format, args...)
}
