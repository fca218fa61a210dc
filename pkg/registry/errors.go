package registry

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/dyndict/pkg/notify"
)

// Sentinel errors. Every error returned by the registry wraps exactly one of
// them, so callers can branch with errors.Is.
var (
	// ErrRegistryFull is returned by Add when every table slot is in use.
	ErrRegistryFull = errors.New("registry is full")

	// ErrQueueFull is returned when a notification could not be enqueued
	// within the enqueue timeout.
	ErrQueueFull = notify.ErrQueueFull

	// ErrDuplicateName is returned by Add when the name is already taken.
	ErrDuplicateName = errors.New("duplicate entry name")

	// ErrNoSuchEntry is returned when no entry with the name is in a state
	// that allows the operation.
	ErrNoSuchEntry = errors.New("no such entry")

	// ErrLoadFailed is wrapped by LoadError.
	ErrLoadFailed = errors.New("load failed")

	// ErrReloadPending is returned by Reload when both slots still hold
	// borrowed versions. The reload runs once one of them is released.
	ErrReloadPending = errors.New("reload deferred until a version is released")

	// ErrTerminating is returned once Shutdown has started.
	ErrTerminating = errors.New("registry is shutting down")

	// ErrProtocolViolation is returned when a handle is released more often
	// than it was borrowed, or to the wrong entry.
	ErrProtocolViolation = errors.New("reference protocol violation")

	// ErrInvalidDefinition is returned by Add for an unusable Definition.
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrTimeout is returned when the caller's context ends before the worker
	// acknowledged a command. The command still completes in the background.
	ErrTimeout = errors.New("timed out waiting for worker")
)

// LoadError describes a failed call to an entry's Loader.
type LoadError struct {
	// Entry is the name of the entry being loaded
	Entry string

	// Generation is the generation the load would have produced
	Generation uint64

	// Cause is the loader error, or a description of the panic or nil value
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %q (generation %d): %v", e.Entry, e.Generation, e.Cause)
}

// Unwrap returns the loader error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrLoadFailed.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}

// RegistryError is returned by registry operations.
type RegistryError struct {
	// Entry is the name of the entry involved, if any
	Entry string

	// Operation is the operation that failed (e.g., "add", "borrow")
	Operation string

	// Message describes the failure
	Message string

	// Cause is the sentinel or underlying error
	Cause error
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	} else if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Entry != "" {
		return fmt.Sprintf("registry error for %q during %s: %s", e.Entry, e.Operation, msg)
	}
	return fmt.Sprintf("registry error during %s: %s", e.Operation, msg)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

func newError(op, name string, cause error) *RegistryError {
	return &RegistryError{Entry: name, Operation: op, Cause: cause}
}

// ErrorList collects errors from operations on several entries, such as the
// deletes issued by Shutdown.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %v\n", i+1, err)
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *ErrorList) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the list. Nil errors are ignored.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if there are no errors, the single error if there is one,
// or the ErrorList itself if there are multiple errors.
func (e *ErrorList) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return e
}
