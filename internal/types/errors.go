package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced code identifying a class of engine error.
// Each package declares its own codes alongside the code that raises them.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Error is a structured error carrying a code, a human-readable message,
// and an optional wrapped cause. It is the only error type the engine
// packages return for conditions callers are expected to branch on.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" when a cause exists.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches against another *Error by code, so sentinel comparisons like
// errors.Is(err, types.NewError(code, "")) work regardless of message.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a new Error that wraps an existing cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) an *Error.
// Returns the empty code when err carries no structured code.
func CodeOf(err error) ErrorCode {
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Code
	}
	return ""
}
