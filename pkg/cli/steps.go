package cli

import (
	"fmt"
	"io"
	"os"
)

// Steps prints the boot sequence as checked-off lines, the banner the run
// command shows while bringing components up.
type Steps struct {
	w io.Writer
}

// NewSteps creates a step printer writing to w. A nil w defaults to
// os.Stdout.
func NewSteps(w io.Writer) *Steps {
	if w == nil {
		w = os.Stdout
	}
	return &Steps{w: w}
}

// OK prints a completed step.
func (s *Steps) OK(format string, args ...any) {
	fmt.Fprintf(s.w, "✓ "+format+"\n", args...)
}

// Fail prints a failed step with its error.
func (s *Steps) Fail(label string, err error) {
	fmt.Fprintf(s.w, "✗ %s: %v\n", label, err)
}

// Note prints an unadorned line between steps.
func (s *Steps) Note(format string, args ...any) {
	fmt.Fprintf(s.w, format+"\n", args...)
}

// Do runs fn and prints the step as completed or failed. The error is
// returned unchanged.
func (s *Steps) Do(label string, fn func() error) error {
	if err := fn(); err != nil {
		s.Fail(label, err)
		return err
	}
	s.OK("%s", label)
	return nil
}
