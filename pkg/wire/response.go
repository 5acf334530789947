package wire

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Response is a parsed HTTP/1.1 response from the admin endpoint.
type Response struct {
	// Status is the numeric status code from the status line.
	Status int

	// Headers holds the response headers in wire order.
	Headers []Header

	// Body is the decoded message body. Chunked bodies are reassembled;
	// a response with neither Content-Length nor chunked framing has an
	// empty body.
	Body []byte
}

// Success reports whether the status code is in the 2xx range.
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Header returns the first header value matching name, case-insensitively.
func (r *Response) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// IsJSON reports whether the Content-Type declares a JSON payload.
func (r *Response) IsJSON() bool {
	ct := r.Header("Content-Type")
	if ct == "" {
		return false
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readResponse parses a full HTTP/1.1 response from br: status line, headers
// until the blank line, then the body framed per Content-Length or chunked
// transfer encoding. Malformed protocol data yields *ProtocolError; transport
// failures surface as plain I/O errors for the caller to wrap.
func readResponse(br *bufio.Reader) (*Response, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "HTTP/") {
		return nil, &ProtocolError{Detail: "malformed status line", Line: line}
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil, &ProtocolError{Detail: "status line missing code", Line: line}
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, &ProtocolError{Detail: "non-numeric status code", Line: line}
	}

	resp := &Response{Status: status}
	contentLength := -1
	chunked := false

	for {
		line, err = readLine(br)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ProtocolError{Detail: "malformed header", Line: line}
		}
		value = strings.TrimSpace(value)
		resp.Headers = append(resp.Headers, Header{Name: name, Value: value})

		switch {
		case strings.EqualFold(name, "Content-Length"):
			n, cerr := strconv.Atoi(value)
			if cerr != nil || n < 0 {
				return nil, &ProtocolError{Detail: "invalid Content-Length", Line: line}
			}
			contentLength = n
		case strings.EqualFold(name, "Transfer-Encoding"):
			if strings.Contains(strings.ToLower(value), "chunked") {
				chunked = true
			}
		}
	}

	switch {
	case chunked:
		body, cerr := readChunked(br)
		if cerr != nil {
			return nil, cerr
		}
		resp.Body = body
	case contentLength > 0:
		body := make([]byte, contentLength)
		if _, rerr := io.ReadFull(br, body); rerr != nil {
			return nil, rerr
		}
		resp.Body = body
	}
	return resp, nil
}

// readChunked decodes a chunked body: hex size line (extensions after ";"
// are ignored), that many bytes, a CRLF, repeated until the zero-size chunk.
// Trailer lines after the last chunk are consumed up to the final blank line.
func readChunked(br *bufio.Reader) ([]byte, error) {
	var body []byte
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		sizeField := line
		if i := strings.IndexByte(sizeField, ';'); i >= 0 {
			sizeField = sizeField[:i]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 16, 64)
		if err != nil || size < 0 {
			return nil, &ProtocolError{Detail: "invalid chunk size", Line: line}
		}
		if size == 0 {
			break
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, err
		}
		body = append(body, chunk...)
		// Chunk data is followed by CRLF.
		if _, err := readLine(br); err != nil {
			return nil, err
		}
	}
	// Consume trailers until the blank line. A peer that closes right after
	// the zero chunk is tolerated.
	for {
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return body, nil
			}
			return nil, err
		}
		if line == "" {
			return body, nil
		}
	}
}

// readLine reads one CRLF-terminated line and strips the terminator.
// Bare LF is tolerated.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
