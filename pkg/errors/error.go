// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, malformed durations, missing key columns
//   - Cache errors (200-299): Cache store availability, query and write failures
//   - Gap planner errors (300-399): Unsupported split granularities
//   - Provider errors (400-499): Provider fetch, parse and timezone lookup failures
//   - Connection errors (500-599): Broker connection pool errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeInvalidDurationFormat, "unrecognized duration %q", text)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeCacheUnavailable) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// SchemaVersionError represents an error when a cache database was provisioned
// with a schema version the current build cannot read.
type SchemaVersionError struct {
	Stored    string // Schema version recorded in the database
	Supported string // Schema version this build writes
	Message   string // Human-readable message
}

// NewSchemaVersionError creates a new SchemaVersionError.
func NewSchemaVersionError(stored, supported, message string) *SchemaVersionError {
	return &SchemaVersionError{
		Stored:    stored,
		Supported: supported,
		Message:   message,
	}
}

// NewSchemaVersionErrorf creates a new SchemaVersionError with a formatted message.
func NewSchemaVersionErrorf(stored, supported, format string, args ...any) *SchemaVersionError {
	return &SchemaVersionError{
		Stored:    stored,
		Supported: supported,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *SchemaVersionError) Error() string {
	return e.Message
}

// IsSchemaVersionError checks if an error is a SchemaVersionError.
// It uses errors.As to check the error chain.
func IsSchemaVersionError(err error) bool {
	var versionErr *SchemaVersionError

	return errors.As(err, &versionErr)
}
