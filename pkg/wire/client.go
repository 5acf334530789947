package wire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// DefaultTimeout bounds connect and read when no context deadline is set.
const DefaultTimeout = 5 * time.Second

// Header is a single HTTP header as a name/value pair. Order matters on the
// wire, so headers travel as slices rather than maps.
type Header struct {
	Name  string
	Value string
}

// Client dials the admin endpoint and performs raw HTTP/1.1 exchanges.
// A Client is cheap and safe to share; each request runs on its own
// connection unless the caller holds a Conn open explicitly.
type Client struct {
	endpoint Endpoint
	timeout  time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the connect/read timeout applied when the request context
// carries no deadline. Zero or negative keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHost overrides the Host header value. Mostly useful for Unix socket
// endpoints whose admin interface enforces an origin host.
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.endpoint.Host = host
		}
	}
}

// NewClient parses the endpoint URL and returns a client for it.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	ep, err := ParseEndpoint(rawURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint: ep,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the parsed endpoint the client dials.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Connect dials the endpoint and returns a connection ready for Request.
// The caller owns the connection and must Close it.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	d := net.Dialer{Timeout: c.timeout}
	nc, err := d.DialContext(ctx, c.endpoint.Network, c.endpoint.Address)
	if err != nil {
		return nil, &ConnectError{Endpoint: c.endpoint.String(), Op: "dial", Cause: err}
	}
	return &Conn{
		nc:       nc,
		br:       bufio.NewReader(nc),
		endpoint: c.endpoint,
		timeout:  c.timeout,
	}, nil
}

// Do dials, performs a single request, and closes the connection.
// This is the common path: the admin API is low-traffic and a fresh
// connection per operation keeps failure handling trivial.
func (c *Client) Do(ctx context.Context, method, path string, headers []Header, body []byte) (*Response, error) {
	conn, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.Request(ctx, method, path, headers, body)
}

// Conn is an open connection to the admin endpoint.
type Conn struct {
	nc       net.Conn
	br       *bufio.Reader
	endpoint Endpoint
	timeout  time.Duration
}

// Request writes one HTTP/1.1 request and parses the response.
//
// The request is composed as: request line, Host header, caller headers in
// order, then Content-Type (application/json, unless the caller already set
// one) and Content-Length when a body is present, a blank line, and the body.
//
// The read deadline is the sooner of the context deadline and the client
// timeout. On any I/O failure the connection must be treated as dead.
func (cn *Conn) Request(ctx context.Context, method, path string, headers []Header, body []byte) (*Response, error) {
	if path == "" {
		path = "/"
	}

	deadline := time.Now().Add(cn.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := cn.nc.SetDeadline(deadline); err != nil {
		return nil, &ConnectError{Endpoint: cn.endpoint.String(), Op: "write", Cause: err}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&buf, "Host: %s\r\n", cn.endpoint.Host)

	hasContentType := false
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Content-Type") {
			hasContentType = true
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	if len(body) > 0 {
		if !hasContentType {
			buf.WriteString("Content-Type: application/json\r\n")
		}
		fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(body))
	}
	buf.WriteString("\r\n")
	buf.Write(body)

	if _, err := cn.nc.Write(buf.Bytes()); err != nil {
		return nil, &ConnectError{Endpoint: cn.endpoint.String(), Op: "write", Cause: err}
	}

	resp, err := readResponse(cn.br)
	if err != nil {
		var pe *ProtocolError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &ConnectError{Endpoint: cn.endpoint.String(), Op: "read", Cause: err}
	}
	return resp, nil
}

// Close closes the underlying connection.
func (cn *Conn) Close() error {
	return cn.nc.Close()
}
