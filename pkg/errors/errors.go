// Package errors provides structured error types for imgstack.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the terminal UI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Batch-level failures (READ_ERROR, DECODE_ERROR, EMPTY_BATCH) are recovered
// at the batch boundary: the caller reports them and returns to an empty
// presentation. Index and state-machine violations (INVALID_INDEX,
// NOT_MEMBER, DRAG_IN_PROGRESS, NO_ACTIVE_DRAG) indicate a caller bug and are
// returned immediately without any mutation.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidIndex, "index %d out of range [0, %d)", i, n)
//	if errors.Is(err, errors.ErrCodeInvalidIndex) {
//	    // Handle caller bug
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRead, origErr, "read %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Source errors
	ErrCodeRead   Code = "READ_ERROR"
	ErrCodeDecode Code = "DECODE_ERROR"

	// Batch and composite errors
	ErrCodeEmptyBatch     Code = "EMPTY_BATCH"
	ErrCodeStaleBatch     Code = "STALE_BATCH"
	ErrCodeEmptyComposite Code = "EMPTY_COMPOSITE"

	// Ordering and gesture errors
	ErrCodeInvalidIndex   Code = "INVALID_INDEX"
	ErrCodeNotMember      Code = "NOT_MEMBER"
	ErrCodeDragInProgress Code = "DRAG_IN_PROGRESS"
	ErrCodeNoActiveDrag   Code = "NO_ACTIVE_DRAG"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPolicy Code = "INVALID_POLICY"

	// Resource errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsBatchFailure reports whether err aborts a batch load and should return the
// presentation to its empty state.
func IsBatchFailure(err error) bool {
	switch GetCode(err) {
	case ErrCodeRead, ErrCodeDecode, ErrCodeEmptyBatch:
		return true
	}
	return false
}

// IsCallerBug reports whether err signals a programming error in the caller
// (bad index, unknown asset, illegal gesture transition).
func IsCallerBug(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidIndex, ErrCodeNotMember, ErrCodeDragInProgress,
		ErrCodeNoActiveDrag, ErrCodeEmptyComposite:
		return true
	}
	return false
}
