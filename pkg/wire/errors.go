package wire

import (
	"errors"
	"fmt"
	"net"
)

// InvalidEndpointError reports an endpoint URL the client cannot use.
type InvalidEndpointError struct {
	// URL is the raw endpoint string that failed to parse.
	URL string

	// Reason describes what is wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid admin endpoint %q: %s", e.URL, e.Reason)
}

// ConnectError reports a failed dial, write, or read against the admin
// endpoint, including timeouts. Connection errors are always retryable by the
// caller; the wire client itself never retries.
type ConnectError struct {
	// Endpoint is the endpoint the operation was addressed to.
	Endpoint string

	// Op is the phase that failed: "dial", "write", or "read".
	Op string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("admin %s %s failed: %v", e.Endpoint, e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ConnectError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the failure was a deadline expiry.
func (e *ConnectError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Cause, &ne) {
		return ne.Timeout()
	}
	return false
}

// ProtocolError reports response bytes that were not valid HTTP/1.1.
// The request that produced it is not retryable on the same connection;
// the connection is discarded.
type ProtocolError struct {
	// Detail describes the malformation.
	Detail string

	// Line is the offending input line, when one exists.
	Line string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("malformed admin response: %s: %q", e.Detail, e.Line)
	}
	return fmt.Sprintf("malformed admin response: %s", e.Detail)
}

// IsConnectError reports whether err is (or wraps) a ConnectError.
// The supervisor uses this to tell an unreachable process apart from one
// that answered badly.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}
