package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidUserAgentType = errors.New("invalid user agent type")
	ErrInvalidPage          = errors.New("invalid page")
	ErrStoreUnavailable     = errors.New("request log store unavailable")
	ErrRecovered            = errors.New("recovered from panic")
)

// AppError represents an application error with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// FromPanic converts a value obtained from recover() into an error.
// It returns nil when v is nil so it can be used directly in deferred calls.
func FromPanic(v interface{}) error {
	if v == nil {
		return nil
	}
	if err, ok := v.(error); ok {
		return fmt.Errorf("%w: %w", ErrRecovered, err)
	}
	return fmt.Errorf("%w: %v", ErrRecovered, v)
}
