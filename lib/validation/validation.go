// Package validation provides field validators for respool configuration.
// All validators follow a consistent pattern: they return nil on success and
// a *Result naming the offending field on failure.
package validation

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Common validation errors. These are sentinel errors that can be checked with errors.Is().
var (
	// ErrRequired indicates a required field is missing or empty.
	ErrRequired = errors.New("field is required")

	// ErrInvalidFormat indicates a value doesn't match the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrOutOfRange indicates a numeric value is outside the allowed range.
	ErrOutOfRange = errors.New("value out of range")

	// ErrNotAllowed indicates a value is not one of the accepted choices.
	ErrNotAllowed = errors.New("value not allowed")
)

// Result represents a validation result with field context.
type Result struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (r *Result) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("%s %s", r.Field, r.Message)
	}
	return r.Message
}

// Unwrap returns the underlying error for errors.Is() support.
func (r *Result) Unwrap() error {
	return r.Err
}

// NewResult creates a validation result.
func NewResult(field, message string, err error) *Result {
	return &Result{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Required validates that a string is non-empty.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewResult(field, "is required", ErrRequired)
	}
	return nil
}

// Positive validates that an integer is positive (> 0).
func Positive(field string, value int) error {
	if value <= 0 {
		return NewResult(field, "must be at least 1", ErrOutOfRange)
	}
	return nil
}

// NonNegative validates that an integer is non-negative (>= 0).
func NonNegative(field string, value int) error {
	if value < 0 {
		return NewResult(field, "must not be negative", ErrOutOfRange)
	}
	return nil
}

// NonNegativeFloat validates that a float is non-negative.
func NonNegativeFloat(field string, value float64) error {
	if value < 0 {
		return NewResult(field, "must not be negative", ErrOutOfRange)
	}
	return nil
}

// NonNegativeDuration validates that a duration is zero or positive.
func NonNegativeDuration(field string, value time.Duration) error {
	if value < 0 {
		return NewResult(field, "must not be negative", ErrOutOfRange)
	}
	return nil
}

// OneOf validates that value is one of allowed.
func OneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	return NewResult(field, fmt.Sprintf("must be one of %s, got %q", strings.Join(quoted, ", "), value), ErrNotAllowed)
}

// HostPort validates a host:port address.
func HostPort(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}

	_, _, err := net.SplitHostPort(value)
	if err != nil {
		return NewResult(field, "must be in host:port format", ErrInvalidFormat)
	}

	return nil
}

// Errors collects multiple validation errors.
type Errors []error

// Add appends an error to the collection (nil errors are ignored).
func (e *Errors) Add(err error) {
	if err != nil {
		*e = append(*e, err)
	}
}

// HasErrors returns true if any errors were collected.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Error returns all errors as a single error message.
func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("multiple validation errors: ")
	for i, err := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	return e
}

// Err returns the collection as an error, or nil if it is empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
