// Package caddytest provides a scriptable admin-endpoint stub for tests.
//
// The stub speaks raw HTTP/1.1 on a plain socket rather than using net/http,
// so tests can serve chunked bodies with exact framing, deliberately
// malformed responses, and Unix domain sockets with no adapter glue.
package caddytest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Request is one recorded request.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// Response describes what the stub writes back.
type Response struct {
	// Status is the HTTP status code. Zero means 200.
	Status int

	// Headers are extra response headers. Content-Type defaults to
	// application/json when a body is present and no type is given.
	Headers map[string]string

	// Body is the response body.
	Body []byte

	// Chunks, when set, frames the response with chunked transfer encoding
	// using exactly these chunk payloads. Body is ignored.
	Chunks [][]byte

	// Raw, when set, is written verbatim instead of a composed response.
	// Used to serve malformed protocol data.
	Raw []byte
}

// HandlerFunc computes a response from a recorded request.
type HandlerFunc func(req Request) Response

// Server is a stub admin endpoint listening on a raw socket.
type Server struct {
	ln     net.Listener
	scheme string

	mu        sync.Mutex
	responses map[string]Response
	handlers  map[string]HandlerFunc
	requests  []Request
	closed    bool
}

// NewServer starts a stub on a loopback TCP port.
func NewServer(t *testing.T) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("caddytest: listen tcp: %v", err)
	}
	return start(t, ln, "http")
}

// NewServerAt starts a stub on a fixed TCP address. Tests use it to bring an
// endpoint back after simulating an outage at the same address; binding
// retries briefly in case the previous listener is still being torn down.
func NewServerAt(t *testing.T, addr string) *Server {
	t.Helper()
	var ln net.Listener
	var err error
	for i := 0; i < 50; i++ {
		ln, err = net.Listen("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("caddytest: listen %s: %v", addr, err)
	}
	return start(t, ln, "http")
}

// NewUnixServer starts a stub on a Unix socket under the test's temp dir.
func NewUnixServer(t *testing.T) *Server {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "admin.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("caddytest: listen unix: %v", err)
	}
	return start(t, ln, "unix")
}

func start(t *testing.T, ln net.Listener, scheme string) *Server {
	s := &Server{
		ln:        ln,
		scheme:    scheme,
		responses: make(map[string]Response),
		handlers:  make(map[string]HandlerFunc),
	}
	t.Cleanup(s.Close)
	go s.acceptLoop()
	return s
}

// URL returns the endpoint URL clients should dial.
func (s *Server) URL() string {
	if s.scheme == "unix" {
		return "unix://" + s.ln.Addr().String()
	}
	return "http://" + s.ln.Addr().String()
}

// Close stops the listener. Connections in flight finish serving.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.ln.Close()
}

// SetResponse registers a fixed response for method and path.
func (s *Server) SetResponse(method, path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[routeKey(method, path)] = resp
	delete(s.handlers, routeKey(method, path))
}

// SetJSON registers a fixed JSON response for method and path.
func (s *Server) SetJSON(method, path string, status int, doc any) {
	body, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("caddytest: marshal response for %s %s: %v", method, path, err))
	}
	s.SetResponse(method, path, Response{Status: status, Body: body})
}

// Handle registers a dynamic handler for method and path.
func (s *Server) Handle(method, path string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[routeKey(method, path)] = fn
	delete(s.responses, routeKey(method, path))
}

// Requests returns a copy of all recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many requests matched method and path.
func (s *Server) RequestCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request matching method and path.
func (s *Server) LastRequest(method, path string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Method == method && s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return Request{}, false
}

func routeKey(method, path string) string {
	return method + " " + path
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

// serve reads requests off one connection until the peer closes it.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)
	for {
		req, err := readRequest(br)
		if err != nil {
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		handler, hasHandler := s.handlers[routeKey(req.Method, req.Path)]
		resp, hasResp := s.responses[routeKey(req.Method, req.Path)]
		s.mu.Unlock()

		switch {
		case hasHandler:
			resp = handler(req)
		case !hasResp:
			resp = Response{
				Status: 404,
				Body:   []byte(`{"error":"unknown path ` + req.Path + `"}`),
			}
		}

		if err := writeResponse(conn, resp); err != nil {
			return
		}
	}
}

func readRequest(br *bufio.Reader) (Request, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return Request{}, err
	}
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 3)
	if len(parts) < 2 {
		return Request{}, fmt.Errorf("malformed request line %q", line)
	}
	req := Request{
		Method:  parts[0],
		Path:    parts[1],
		Headers: make(map[string]string),
	}

	contentLength := 0
	for {
		line, err = br.ReadString('\n')
		if err != nil {
			return Request{}, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		name, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		req.Headers[strings.ToLower(name)] = value
		if strings.EqualFold(name, "Content-Length") {
			contentLength, _ = strconv.Atoi(value)
		}
	}

	if contentLength > 0 {
		body := make([]byte, contentLength)
		total := 0
		for total < contentLength {
			n, err := br.Read(body[total:])
			total += n
			if err != nil {
				return Request{}, err
			}
		}
		req.Body = body
	}
	return req, nil
}

func writeResponse(conn net.Conn, resp Response) error {
	if resp.Raw != nil {
		_, err := conn.Write(resp.Raw)
		return err
	}

	status := resp.Status
	if status == 0 {
		status = 200
	}

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, statusText(status))

	hasContentType := false
	for name, value := range resp.Headers {
		if strings.EqualFold(name, "Content-Type") {
			hasContentType = true
		}
		fmt.Fprintf(&b, "%s: %s\r\n", name, value)
	}
	if !hasContentType && (len(resp.Body) > 0 || len(resp.Chunks) > 0) {
		b.WriteString("Content-Type: application/json\r\n")
	}

	if len(resp.Chunks) > 0 {
		b.WriteString("Transfer-Encoding: chunked\r\n\r\n")
		for _, chunk := range resp.Chunks {
			fmt.Fprintf(&b, "%x\r\n", len(chunk))
			b.Write(chunk)
			b.WriteString("\r\n")
		}
		b.WriteString("0\r\n\r\n")
	} else {
		fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(resp.Body))
		b.Write(resp.Body)
	}

	_, err := conn.Write([]byte(b.String()))
	return err
}

func statusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	default:
		return "Status"
	}
}
