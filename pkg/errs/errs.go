// Package errs defines the error kinds shared by the region, shard, paging
// and boundary packages.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches any *FormatError via errors.Is.
	ErrFormat = errors.New("format error")

	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation error")
)

// FormatError reports malformed textual input, such as a region list that
// does not follow the name:start:end syntax.
type FormatError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed input %q: %s", e.Input, e.Reason)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ValidationError reports an invariant violation detected when a component
// is constructed, before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation is a shorthand for building a *ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
