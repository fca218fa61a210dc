package cli

import (
	"errors"
	"fmt"

	"mercator-hq/dyndict/pkg/config"
)

// Exit codes returned by the dyndict command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// WrapConfigError turns a configuration load failure into a ConfigError.
// Validation failures keep their first field for the message.
func WrapConfigError(path string, err error) *ConfigError {
	ce := &ConfigError{Field: path, Message: err.Error(), Err: err}

	var verr config.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) > 0 {
		ce.Field = verr.Errors[0].Field
		ce.Message = verr.Errors[0].Message
		if n := len(verr.Errors) - 1; n > 0 {
			ce.Message = fmt.Sprintf("%s (and %d more)", ce.Message, n)
		}
	}
	return ce
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ExitConfig
	}
	return ExitFailure
}
