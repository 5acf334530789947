package cli

import (
	"errors"
	"fmt"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/supervisor"
	"mercator-hq/ganymede/pkg/syncer"
	"mercator-hq/ganymede/pkg/wire"
)

// Exit codes returned by the ganymede binary.
const (
	// ExitOK means the command succeeded.
	ExitOK = 0

	// ExitFailure is the catch-all failure code.
	ExitFailure = 1

	// ExitInvalidConfig means a configuration, flag, or Caddyfile was
	// rejected before anything reached the managed process.
	ExitInvalidConfig = 2

	// ExitUnreachable means the admin endpoint could not be reached.
	ExitUnreachable = 3
)

// ConfigError reports a problem with the control plane's own
// configuration file or flags.
type ConfigError struct {
	// Field is the dotted configuration path, empty when the problem is
	// not tied to one field.
	Field string

	// Message describes what is wrong.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// NewConfigError creates a ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// CommandError wraps a failure with the subcommand it came from.
type CommandError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps an error to the process exit code. A nil error is ExitOK.
// A failed external lifecycle command propagates the command's own exit
// status, the way sh does.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cmdFailed *supervisor.CommandFailedError
	if errors.As(err, &cmdFailed) {
		return cmdFailed.Code
	}

	var cfgErr *ConfigError
	var fileErr config.ValidationError
	var syncErr *syncer.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &fileErr) || errors.As(err, &syncErr) {
		return ExitInvalidConfig
	}

	if wire.IsConnectError(err) {
		return ExitUnreachable
	}

	return ExitFailure
}
