// Package errors provides structured error types for respool.
// Every pool failure is reported through a sentinel defined here so callers
// can branch with errors.Is regardless of which package surfaced it.
//
// This package provides:
//   - Sentinel errors for common error conditions
//   - Pool, load generator and configuration errors built on those sentinels
//   - Numeric codes used for CLI exit statuses and run reports
//   - Safe error messages that don't leak internal details
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error codes for categorizing errors. Codes are small positive integers so
// the CLI can use them directly as process exit statuses.
const (
	CodeInternal       = 1 // Unclassified failure
	CodeInvalidParams  = 2 // Invalid arguments
	CodeExhausted      = 3 // Pool capacity exhausted
	CodeInvalidRelease = 4 // Release of a resource the pool does not own
	CodeClosed         = 5 // Operation on a closed pool
	CodeTimeout        = 6 // Operation timeout
	CodeConfiguration  = 7 // Invalid configuration
	CodeCanceled       = 8 // Caller canceled the operation
	CodeState          = 9 // Invariant violation
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExhausted indicates no capacity is left to serve a request.
	ErrExhausted = errors.New("capacity exhausted")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrClosed indicates a component is closed.
	ErrClosed = errors.New("closed")

	// ErrInvalidState indicates an invariant was observed broken.
	ErrInvalidState = errors.New("invalid state")

	// ErrInternal indicates an internal error.
	ErrInternal = errors.New("internal error")

	// ErrConfiguration indicates a configuration error.
	ErrConfiguration = errors.New("configuration error")
)

// Pool errors
var (
	// ErrPoolExhausted indicates every resource is in use and the pool is at
	// its maximum size.
	ErrPoolExhausted = fmt.Errorf("pool: no available resources: %w", ErrExhausted)

	// ErrInvalidRelease indicates a nil resource or one not created by the pool.
	ErrInvalidRelease = fmt.Errorf("pool: invalid release: %w", ErrInvalidInput)

	// ErrDoubleRelease indicates a release of a resource that is already idle.
	// Only reported by pools configured for strict release.
	ErrDoubleRelease = fmt.Errorf("%w: resource already idle", ErrInvalidRelease)

	// ErrPoolClosed indicates the pool has been closed.
	ErrPoolClosed = fmt.Errorf("pool: %w", ErrClosed)

	// ErrPoolTimeout indicates a blocking acquire ran past its deadline.
	ErrPoolTimeout = fmt.Errorf("pool: acquire %w", ErrTimeout)

	// ErrPoolInvalidSize indicates a non-positive maximum size.
	ErrPoolInvalidSize = fmt.Errorf("pool: max size must be positive: %w", ErrConfiguration)
)

// Load generator errors
var (
	// ErrDoubleCheckout indicates two callers held the same resource at once.
	ErrDoubleCheckout = fmt.Errorf("loadgen: double checkout: %w", ErrInvalidState)

	// ErrGaveUp indicates a caller exhausted its retries.
	ErrGaveUp = fmt.Errorf("loadgen: retries exhausted: %w", ErrExhausted)
)

// Config errors
var (
	// ErrConfigInvalid indicates a configuration value failed validation.
	ErrConfigInvalid = fmt.Errorf("config: %w", ErrConfiguration)
)

// Error is a structured error with a code and safe message.
// It implements the error interface and provides methods for
// error handling and response generation.
type Error struct {
	// Code is the error code for categorization
	Code int `json:"code"`
	// Message is a safe, user-facing error message
	Message string `json:"message"`
	// Err is the underlying error (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// SafeMessage returns a client-safe error message without internal details.
func (e *Error) SafeMessage() string {
	return e.Message
}

// New creates a new structured error with the given code and message.
func New(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a code and safe message.
// The original error is preserved for debugging but not exposed to clients.
func Wrap(code int, message string, err error) *Error {
	if err != nil {
		log.WithField("code", code).WithError(err).Debug("wrapping error")
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapInternal wraps an internal error with a generic message.
func WrapInternal(err error) *Error {
	if err != nil {
		log.WithError(err).Debug("wrapping internal error")
	}
	return &Error{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// FromSentinel creates a structured error from a sentinel error.
// It assigns a code based on the first matching sentinel in err's tree.
// If err already contains an *Error, that error is returned as is.
func FromSentinel(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return &Error{
		Code:    Code(err),
		Message: err.Error(),
		Err:     err,
	}
}

// Code returns the code for err. A *Error in the tree wins over sentinel
// matching; nil maps to 0.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codeFromError(err)
}

// codeFromError maps sentinel errors to error codes.
// ErrInvalidRelease wraps ErrInvalidInput, so it is checked first.
func codeFromError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRelease):
		return CodeInvalidRelease
	case errors.Is(err, ErrExhausted):
		return CodeExhausted
	case errors.Is(err, ErrClosed):
		return CodeClosed
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidParams
	case errors.Is(err, ErrInvalidState):
		return CodeState
	default:
		return CodeInternal
	}
}

// IsExhausted returns true if the error indicates capacity is exhausted.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsInvalidState returns true if the error indicates an invalid state.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// Join combines multiple errors into a single error.
// Returns nil if all errors are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
