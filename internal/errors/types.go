// Package errors provides structured application errors and the user-facing
// messages shown for location failures.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Location errors surfaced to the user
	ErrCodeLocationUpdateFailed ErrorCode = "LOCATION_UPDATE_FAILED"
	ErrCodeLocationAuthDenied   ErrorCode = "LOCATION_AUTH_DENIED"

	// Collaborator errors
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeSearchFailed        ErrorCode = "SEARCH_FAILED"

	// General errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// Error represents a structured error with context
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether any error in err's chain is an *Error with the given code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the code of the first *Error in err's chain
func GetCode(err error) ErrorCode {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
