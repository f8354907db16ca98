//go:build !linux

package sockdev

import "net"

// tuneTCP applies socket options through the portable net API.
func tuneTCP(tc *net.TCPConn, o *options) error {
	if o.noDelay {
		if err := tc.SetNoDelay(true); err != nil {
			return err
		}
	}
	if o.keepAlive > 0 {
		if err := tc.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tc.SetKeepAlivePeriod(o.keepAlive); err != nil {
			return err
		}
	}
	return nil
}
