package syncer

import (
	"errors"
	"fmt"
)

// ErrNoConfig is returned when a sync or drift check is requested while the
// configuration store is empty. Nothing is pushed and the lifecycle machine
// is not touched.
var ErrNoConfig = errors.New("no configuration set")

// ErrNoRollback is returned by Rollback when no successful sync has captured
// a runtime snapshot yet.
var ErrNoRollback = errors.New("no rollback snapshot available")

// ValidationError reports that the configuration text was rejected by the
// validation gate before anything reached the running process.
type ValidationError struct {
	// Reason is the adapter's rejection, verbatim.
	Reason string

	// Cause is the underlying adapt error.
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("configuration rejected: %s", e.Reason)
	}
	return fmt.Sprintf("configuration rejected: %v", e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err is (or wraps) a ValidationError,
// returning it when so.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
