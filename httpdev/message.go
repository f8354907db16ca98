package httpdev

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/owacoder/devio"
	"github.com/owacoder/devio/limit"
)

// Client drives sequential HTTP/1.1 request/response exchanges over one
// transport device, with keep-alive reuse between exchanges.
//
// The usual sequence is BeginRequest, AddHeader..., one of AddBody /
// AddBodyString / RequestBody (or nothing for bodiless methods), then
// BeginResponse, ResponseBody, EndResponse. When the response did not ask
// for the connection to close, the client returns to idle and the next
// BeginRequest reuses the transport.
type Client struct {
	transport     *devio.Device
	ownsTransport bool

	state   clientState
	reqBody *devio.Device // open request body device (owned)
	body    *devio.Device // current response body device (owned)

	received Header
	trailers Header
	status   int
	reason   string

	noBody      bool
	chunkedBody bool
	definedBody bool
	bodySent    bool
	closing     bool

	contentLength int64
}

type clientState int

const (
	stateIdle clientState = iota
	stateSendingHeaders
	stateBodyOpen
	stateBodySent
	stateResponseHeaders
	stateResponseBody
	stateClosed
)

// NewClient creates a message state machine over transport. When
// ownsTransport is set, Close also closes the transport; otherwise the
// transport stays with whoever opened it.
func NewClient(transport *devio.Device, ownsTransport bool) *Client {
	return &Client{
		transport:     transport,
		ownsTransport: ownsTransport,
		contentLength: -1,
	}
}

// BeginRequest opens a new exchange: it emits the request line and the
// Host header. It fails with a broken-pipe error once the peer has asked
// for the connection to close.
func (c *Client) BeginRequest(method, rawurl string) error {
	if c.closing || c.state == stateClosed {
		return devio.NewDeviceError("request", "http", devio.ErrCodeBrokenPipe, "connection is closing")
	}
	if c.state != stateIdle {
		return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "previous exchange still in progress")
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "bad url: "+rawurl)
	}
	if u.Host == "" {
		return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "url has no host")
	}

	c.received.Reset()
	c.trailers.Reset()
	c.status = 0
	c.reason = ""
	c.noBody = false
	c.chunkedBody = false
	c.definedBody = false
	c.bodySent = false
	c.contentLength = -1

	if _, err := c.transport.Printf("%s %s HTTP/1.1\r\nHost: %s\r\n", method, u.RequestURI(), u.Host); err != nil {
		c.state = stateClosed
		return err
	}
	c.state = stateSendingHeaders
	return nil
}

// AddHeader emits one request header. Framing headers are tracked:
// Transfer-Encoding: chunked and Content-Length are mutually exclusive,
// and none of Transfer-Encoding, Content-Length or Trailer may change once
// the body has been sent.
func (c *Client) AddHeader(name, value string) error {
	framing := strings.EqualFold(name, "Transfer-Encoding") ||
		strings.EqualFold(name, "Content-Length") ||
		strings.EqualFold(name, "Trailer")
	if c.bodySent && framing {
		return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "framing headers are fixed once the body is sent")
	}
	if c.state != stateSendingHeaders {
		return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "headers are closed")
	}

	switch {
	case strings.EqualFold(name, "Transfer-Encoding"):
		if strings.Contains(strings.ToLower(value), "chunked") {
			if c.definedBody {
				return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "chunked conflicts with Content-Length")
			}
			c.chunkedBody = true
		}
	case strings.EqualFold(name, "Content-Length"):
		if c.chunkedBody {
			return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "Content-Length conflicts with chunked")
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || n < 0 {
			return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "bad Content-Length")
		}
		c.definedBody = true
		c.contentLength = n
	}

	_, err := c.transport.Printf("%s: %s\r\n", name, value)
	if err != nil {
		c.state = stateClosed
	}
	return err
}

// endHeaders terminates the header section.
func (c *Client) endHeaders() error {
	if _, err := c.transport.WriteString("\r\n"); err != nil {
		c.state = stateClosed
		return err
	}
	return nil
}

// AddBody terminates the headers and copies the request body from src.
// When no framing was declared, a seekable source is sent with a computed
// Content-Length; a non-seekable one is sent chunked. A pre-declared
// Content-Length must match the seekable source's size.
func (c *Client) AddBody(src *devio.Device) error {
	if c.state != stateSendingHeaders {
		return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "body already sent or headers closed")
	}

	switch {
	case c.definedBody:
		if sz, err := src.Size(); err == nil && sz != c.contentLength {
			return devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "source size does not match Content-Length")
		}
		if err := c.endHeaders(); err != nil {
			return err
		}
		if _, err := devio.CopyN(c.transport, src, c.contentLength); err != nil {
			c.state = stateClosed
			return err
		}

	case c.chunkedBody:
		if err := c.endHeaders(); err != nil {
			return err
		}
		if err := c.pipeChunked(src); err != nil {
			return err
		}

	default:
		if sz, err := src.Size(); err == nil {
			if _, err := c.transport.Printf("Content-Length: %d\r\n", sz); err != nil {
				c.state = stateClosed
				return err
			}
			if err := c.endHeaders(); err != nil {
				return err
			}
			if _, err := devio.CopyN(c.transport, src, sz); err != nil {
				c.state = stateClosed
				return err
			}
		} else {
			if _, err := c.transport.WriteString("Transfer-Encoding: chunked\r\n"); err != nil {
				c.state = stateClosed
				return err
			}
			if err := c.endHeaders(); err != nil {
				return err
			}
			if err := c.pipeChunked(src); err != nil {
				return err
			}
		}
	}

	c.bodySent = true
	c.state = stateBodySent
	return nil
}

func (c *Client) pipeChunked(src *devio.Device) error {
	cw, err := devio.New(&chunkedWriter{under: c.transport}, "wb", nil)
	if err != nil {
		return err
	}
	if _, err := devio.Copy(cw, src); err != nil {
		cw.Close()
		c.state = stateClosed
		return err
	}
	if err := cw.Close(); err != nil {
		c.state = stateClosed
		return err
	}
	return nil
}

// AddBodyString sends a byte-string body.
func (c *Client) AddBodyString(s string) error {
	d, _, err := devio.OpenMemory([]byte(s), "rb", nil)
	if err != nil {
		return err
	}
	defer d.Close()
	return c.AddBody(d)
}

// RequestBody terminates the headers and returns a device the caller
// writes the body into. Chunked encoding is forced, so it is invalid when
// Content-Length was pre-declared. Closing the returned device terminates
// the request body.
func (c *Client) RequestBody(mime string) (*devio.Device, error) {
	if c.state != stateSendingHeaders {
		return nil, devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "body already sent or headers closed")
	}
	if c.definedBody {
		return nil, devio.NewDeviceError("request", "http", devio.ErrCodeInvalidArgument, "streamed body requires chunked framing")
	}
	if mime != "" {
		if err := c.AddHeader("Content-Type", mime); err != nil {
			return nil, err
		}
	}
	if !c.chunkedBody {
		if err := c.AddHeader("Transfer-Encoding", "chunked"); err != nil {
			return nil, err
		}
	}
	if err := c.endHeaders(); err != nil {
		return nil, err
	}

	w := &chunkedWriter{under: c.transport, onClose: func() error {
		c.reqBody = nil
		c.bodySent = true
		c.state = stateBodySent
		return nil
	}}
	dev, err := devio.New(w, "wb", nil)
	if err != nil {
		return nil, err
	}
	c.reqBody = dev
	c.state = stateBodyOpen
	return dev, nil
}

// BeginResponse finishes the request if needed, then reads and parses the
// status line and header section. HTTP versions above 1.1 are rejected.
func (c *Client) BeginResponse() error {
	switch c.state {
	case stateBodyOpen:
		if err := c.reqBody.Close(); err != nil {
			c.state = stateClosed
			return err
		}
	case stateSendingHeaders:
		if err := c.endHeaders(); err != nil {
			return err
		}
		c.state = stateBodySent
	case stateBodySent:
	default:
		return devio.NewDeviceError("response", "http", devio.ErrCodeInvalidArgument, "no request in progress")
	}
	if err := c.transport.Flush(); err != nil {
		c.state = stateClosed
		return err
	}

	var major, minor int
	if _, err := c.transport.Scanf("HTTP/%d.%d %d", &major, &minor, &c.status); err != nil {
		c.state = stateClosed
		return devio.NewDeviceError("response", "http", devio.ErrCodeBadMessage, "malformed status line")
	}
	if major > 1 || (major == 1 && minor > 1) {
		c.state = stateClosed
		return devio.NewDeviceError("response", "http", devio.ErrCodeBadMessage, "unsupported HTTP version")
	}
	reason, err := readLine(c.transport)
	if err != nil {
		c.state = stateClosed
		return err
	}
	c.reason = strings.TrimLeft(reason, " ")

	c.received.Reset()
	if err := readHeaderBlock(c.transport, &c.received); err != nil {
		c.state = stateClosed
		return err
	}

	c.chunkedBody = false
	c.definedBody = false
	c.contentLength = -1
	if v, ok := c.received.Get("Connection"); ok && strings.EqualFold(strings.TrimSpace(v), "close") {
		c.closing = true
	}
	if v, ok := c.received.Get("Transfer-Encoding"); ok && strings.Contains(strings.ToLower(v), "chunked") {
		c.chunkedBody = true
	}
	if v, ok := c.received.Get("Content-Length"); ok && !c.chunkedBody {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			c.state = stateClosed
			return devio.NewDeviceError("response", "http", devio.ErrCodeBadMessage, "bad Content-Length")
		}
		c.definedBody = true
		c.contentLength = n
	}
	c.noBody = (c.status >= 100 && c.status < 200) || c.status == 204 || c.status == 304

	c.state = stateResponseHeaders
	return nil
}

// ResponseBody returns the device that yields the response body: an empty
// device when no body is allowed, a chunk decoder when the response is
// chunked, a window of Content-Length bytes when the length is defined,
// and a read-to-close passthrough otherwise. The device is owned by the
// client and is closed by EndResponse.
func (c *Client) ResponseBody() (*devio.Device, error) {
	if c.state == stateResponseBody {
		return c.body, nil
	}
	if c.state != stateResponseHeaders {
		return nil, devio.NewDeviceError("response", "http", devio.ErrCodeInvalidArgument, "no response headers read")
	}

	var (
		dev *devio.Device
		err error
	)
	switch {
	case c.noBody:
		dev, err = limit.New(c.transport, 0, 0, "rb")
	case c.chunkedBody:
		dev, err = NewChunkedReader(c.transport)
	case c.definedBody:
		dev, err = limit.New(c.transport, 0, c.contentLength, "rb")
	default:
		// close-delimited body: the connection cannot be reused
		c.closing = true
		dev, err = devio.New(&bodyPassthrough{under: c.transport}, "rb", nil)
	}
	if err != nil {
		return nil, err
	}
	c.body = dev
	c.state = stateResponseBody
	return dev, nil
}

// EndResponse drains any residual body, releases the body device and, for
// chunked responses, consumes optional trailer headers. The client then
// returns to idle unless the peer asked to close.
func (c *Client) EndResponse() error {
	if c.state == stateResponseHeaders {
		if _, err := c.ResponseBody(); err != nil {
			return err
		}
	}
	if c.state != stateResponseBody {
		return devio.NewDeviceError("response", "http", devio.ErrCodeInvalidArgument, "no response in progress")
	}

	if _, err := devio.Drain(c.body); err != nil {
		c.state = stateClosed
		c.body.Close()
		c.body = nil
		return err
	}
	c.body.Close()
	c.body = nil

	if c.chunkedBody {
		c.trailers.Reset()
		if err := readHeaderBlock(c.transport, &c.trailers); err != nil {
			c.state = stateClosed
			return err
		}
	}

	if c.closing || c.transport.Err() != nil {
		c.state = stateClosed
	} else {
		c.state = stateIdle
	}
	return nil
}

// Reusable reports whether the transport can carry another exchange.
func (c *Client) Reusable() bool {
	return c.state == stateIdle && !c.closing && c.transport.Err() == nil
}

// Status returns the last response's status code.
func (c *Client) Status() int { return c.status }

// Reason returns the last response's reason phrase.
func (c *Client) Reason() string { return c.reason }

// ResponseHeaders returns the last response's header fields.
func (c *Client) ResponseHeaders() *Header { return &c.received }

// Trailers returns the trailer fields consumed after a chunked body.
func (c *Client) Trailers() *Header { return &c.trailers }

// Get performs the request half of a bodiless GET exchange and reads the
// response headers.
func (c *Client) Get(rawurl string) error {
	if err := c.BeginRequest("GET", rawurl); err != nil {
		return err
	}
	return c.BeginResponse()
}

// Close releases any open body devices and, when the client owns its
// transport, closes it.
func (c *Client) Close() error {
	if c.reqBody != nil {
		c.reqBody.Close()
		c.reqBody = nil
	}
	if c.body != nil {
		c.body.Close()
		c.body = nil
	}
	c.state = stateClosed
	if c.ownsTransport {
		return c.transport.Close()
	}
	return nil
}

// bodyPassthrough forwards the transport until it reaches end of stream.
type bodyPassthrough struct {
	under *devio.Device
}

func (b *bodyPassthrough) Read(p []byte) (int, error) {
	n, err := b.under.Read(p)
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}

func (b *bodyPassthrough) ClearErr() { b.under.ClearErr() }

func (b *bodyPassthrough) What() string { return "http-body" }
