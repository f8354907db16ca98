// Package sockdev provides TCP, UDP and TLS transport devices.
//
// A transport device blocks in the kernel on read and write; the handle
// layer serializes use per device. Broken-pipe signals are suppressed by
// the Go runtime, so no process-wide signal setup is needed.
package sockdev

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/owacoder/devio"
	"github.com/owacoder/devio/internal/logging"
)

// Kind selects the transport protocol.
type Kind int

const (
	TCP Kind = iota
	UDP
	TLS
)

func (k Kind) String() string {
	switch k {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case TLS:
		return "tls"
	}
	return "unknown"
}

type options struct {
	timeout   time.Duration
	noDelay   bool
	keepAlive time.Duration
	tlsConfig *tls.Config
	observer  devio.Observer
}

// Option configures a dial.
type Option func(*options)

// WithTimeout bounds connection establishment, including the TLS
// handshake.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithNoDelay disables Nagle batching on TCP transports.
func WithNoDelay() Option {
	return func(o *options) { o.noDelay = true }
}

// WithKeepAlive enables TCP keep-alive probing at the given period.
func WithKeepAlive(d time.Duration) Option {
	return func(o *options) { o.keepAlive = d }
}

// WithTLSConfig replaces the client TLS configuration. The server name and
// minimum version are still filled in when unset.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) { o.tlsConfig = cfg }
}

// WithObserver attaches an I/O observer to the transport handle.
func WithObserver(obs devio.Observer) Option {
	return func(o *options) { o.observer = obs }
}

var defaultOptions = options{
	timeout: 30 * time.Second,
}

// baseTLSConfig is built once per process: TLS 1.2 floor, system trust
// anchors, strict hostname verification.
var (
	tlsOnce sync.Once
	tlsBase *tls.Config
)

func baseTLSConfig() *tls.Config {
	tlsOnce.Do(func() {
		tlsBase = &tls.Config{MinVersion: tls.VersionTLS12}
	})
	return tlsBase
}

// Conn is the transport device implementation behind Dial.
type Conn struct {
	kind   Kind
	conn   net.Conn // transport in use; a *tls.Conn for TLS
	raw    net.Conn // TCP connection beneath a TLS session
	host   string
	failed bool // transport fault observed; skip the graceful TLS goodbye
}

// Dial resolves host and port, connects, and for TLS runs the verified
// client handshake. The returned handle owns the connection.
func Dial(kind Kind, host string, port int, mode string, opts ...Option) (*devio.Device, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}

	network := "tcp"
	if kind == UDP {
		network = "udp"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: o.timeout}
	nc, err := dialer.Dial(network, addr)
	if err != nil {
		return nil, mapNetErr("dial", kind, err)
	}

	devLog := logging.Default().Device(kind.String())
	if tc, ok := nc.(*net.TCPConn); ok {
		if err := tuneTCP(tc, &o); err != nil {
			devLog.Warn("socket tuning failed", "addr", addr, "err", err)
		}
	}

	c := &Conn{kind: kind, conn: nc, host: host}
	if kind == TLS {
		cfg := o.tlsConfig
		if cfg == nil {
			cfg = baseTLSConfig()
		}
		cfg = cfg.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}

		tconn := tls.Client(nc, cfg)
		ctx := context.Background()
		if o.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.timeout)
			defer cancel()
		}
		if err := tconn.HandshakeContext(ctx); err != nil {
			nc.Close()
			return nil, mapHandshakeErr(err)
		}
		c.raw = nc
		c.conn = tconn
	}

	devLog.Debug("connected", "addr", addr)
	var devOpts *devio.Options
	if o.observer != nil {
		devOpts = &devio.Options{Observer: o.observer}
	}
	return devio.New(c, mode, devOpts)
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	if err != nil && err != io.EOF {
		c.failed = true
		return n, mapNetErr("read", c.kind, err)
	}
	return n, err
}

func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	if err != nil {
		c.failed = true
		return n, mapNetErr("write", c.kind, err)
	}
	return n, nil
}

// Shutdown closes connection halves. TLS rejects half-close; a full
// shutdown sends close_notify and then shuts the transport's write side.
func (c *Conn) Shutdown(how devio.How) error {
	switch c.kind {
	case TLS:
		if how != devio.ShutBoth {
			return devio.NewDeviceError("shutdown", "tls", devio.ErrCodeNotSupported, "TLS does not support half-close")
		}
		tconn := c.conn.(*tls.Conn)
		if err := tconn.CloseWrite(); err != nil {
			c.failed = true
			return mapNetErr("shutdown", c.kind, err)
		}
		if tc, ok := c.raw.(*net.TCPConn); ok {
			if err := tc.CloseWrite(); err != nil {
				return mapNetErr("shutdown", c.kind, err)
			}
		}
		return nil

	case TCP:
		tc, ok := c.conn.(*net.TCPConn)
		if !ok {
			return devio.NewDeviceError("shutdown", "tcp", devio.ErrCodeNotSupported, "not a TCP connection")
		}
		var err error
		switch how {
		case devio.ShutRead:
			err = tc.CloseRead()
		case devio.ShutWrite:
			err = tc.CloseWrite()
		case devio.ShutBoth:
			if err = tc.CloseRead(); err == nil {
				err = tc.CloseWrite()
			}
		}
		if err != nil {
			return mapNetErr("shutdown", c.kind, err)
		}
		return nil
	}
	return devio.NewDeviceError("shutdown", c.kind.String(), devio.ErrCodeNotSupported, "datagram transports cannot shut down halves")
}

// Close tears the connection down. A TLS session says goodbye with
// close_notify unless a transport fault already made that pointless.
func (c *Conn) Close() error {
	if c.kind == TLS && c.failed && c.raw != nil {
		return c.raw.Close()
	}
	err := c.conn.Close()
	if err != nil {
		return mapNetErr("close", c.kind, err)
	}
	return nil
}

// KindOf returns the transport kind tag.
func (c *Conn) KindOf() Kind { return c.kind }

func (c *Conn) What() string { return c.kind.String() }

// mapNetErr folds transport errors onto the device error taxonomy.
func mapNetErr(op string, kind Kind, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// the peer vanished without a clean close
		return devio.NewDeviceError(op, kind.String(), devio.ErrCodeConnectionReset, "connection reset")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return devio.NewDeviceError(op, kind.String(), devio.ErrCodeTimedOut, err.Error())
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return devio.NewDeviceError(op, kind.String(), devio.ErrCodeProtocol, dnsErr.Error())
	}
	e := devio.WrapError(op, err)
	e.Dev = kind.String()
	return e
}

// mapHandshakeErr distinguishes crypto failures from transport failures
// during the TLS handshake.
func mapHandshakeErr(err error) error {
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return devio.NewDeviceError("handshake", "tls", devio.ErrCodeTimedOut, err.Error())
		}
		// the descriptor is no longer usable
		return devio.NewDeviceError("handshake", "tls", devio.ErrCodeBrokenPipe, err.Error())
	}
	logging.Default().Device("tls").Warn("handshake failed", "err", err)
	return devio.NewDeviceError("handshake", "tls", devio.ErrCodeProtocol, err.Error())
}
