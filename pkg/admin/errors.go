package admin

import (
	"errors"
	"fmt"
)

// HTTPError reports a non-2xx response from the admin interface. The body is
// kept verbatim because the process returns its rejection reason there.
type HTTPError struct {
	// Status is the HTTP status code.
	Status int

	// Body is the raw response body.
	Body []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	body := string(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("admin request failed with status %d", e.Status)
	}
	return fmt.Sprintf("admin request failed with status %d: %s", e.Status, body)
}

// IsHTTPError reports whether err is (or wraps) an HTTPError, returning it
// when so.
func IsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
