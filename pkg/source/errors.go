package source

import (
	"errors"
	"fmt"
)

var (
	// ErrTooLarge is returned when a file exceeds its configured size limit.
	ErrTooLarge = errors.New("resource file too large")

	// ErrUnsupported is returned for unknown resource types or formats.
	ErrUnsupported = errors.New("unsupported resource source")

	// ErrNotDictionary is returned by View and Lookup for entries whose value
	// is not a *Dictionary.
	ErrNotDictionary = errors.New("entry does not hold a dictionary")
)

// ParseError describes malformed resource content.
type ParseError struct {
	// Path is the file being parsed.
	Path string

	// Line is the 1-based line number, or 0 when unknown.
	Line int

	// Message describes the problem.
	Message string

	// Cause is the underlying decoder error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, msg)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, msg)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
