//go:build linux

package sockdev

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// tuneTCP applies socket options on the raw descriptor.
func tuneTCP(tc *net.TCPConn, o *options) error {
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}

	var optErr error
	err = raw.Control(func(fd uintptr) {
		if o.noDelay {
			optErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			if optErr != nil {
				return
			}
		}
		if o.keepAlive > 0 {
			optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
			if optErr != nil {
				return
			}
			secs := int(o.keepAlive / time.Second)
			if secs < 1 {
				secs = 1
			}
			optErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, secs)
			if optErr != nil {
				return
			}
			optErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs)
		}
	})
	if err != nil {
		return err
	}
	return optErr
}
