package supervisor

import "fmt"

// CommandNotConfiguredError is returned when a lifecycle action is invoked
// but no shell command is configured for it.
type CommandNotConfiguredError struct {
	// Action is the lifecycle action that was requested.
	Action string
}

// Error implements the error interface.
func (e *CommandNotConfiguredError) Error() string {
	return fmt.Sprintf("no %s command configured", e.Action)
}

// CommandFailedError is returned when a configured lifecycle command exits
// non-zero. Output carries the command's combined stdout and stderr so
// callers can surface the failure verbatim.
type CommandFailedError struct {
	// Action is the lifecycle action that was requested.
	Action string

	// Code is the command's exit status.
	Code int

	// Output is the command's combined output, trimmed.
	Output string
}

// Error implements the error interface.
func (e *CommandFailedError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s command exited with status %d", e.Action, e.Code)
	}
	return fmt.Sprintf("%s command exited with status %d: %s", e.Action, e.Code, e.Output)
}
