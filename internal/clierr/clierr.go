// Package clierr defines structured error types for board operations.
// Errors carry a machine-readable code, a human-readable message,
// optional details, and the underlying cause when one exists.
package clierr

import (
	"errors"
	"fmt"
	"strconv"
)

// Error code constants. Uppercase and underscore-separated, stable across minor versions.
const (
	TicketNotFound          = "TICKET_NOT_FOUND"
	BoardNotFound           = "BOARD_NOT_FOUND"
	BoardAlreadyExists      = "BOARD_ALREADY_EXISTS"
	InvalidInput            = "INVALID_INPUT"
	ValidationFailed        = "VALIDATION_FAILED"
	InvalidStatus           = "INVALID_STATUS"
	InvalidPriority         = "INVALID_PRIORITY"
	InvalidIssueType        = "INVALID_ISSUE_TYPE"
	InvalidDate             = "INVALID_DATE"
	InvalidURL              = "INVALID_URL"
	InvalidGroupBy          = "INVALID_GROUP_BY"
	NoChanges               = "NO_CHANGES"
	ConfirmationReq         = "CONFIRMATION_REQUIRED"
	IDExhausted             = "ID_EXHAUSTED"
	IDConflict              = "ID_CONFLICT"
	StoreWriteFailed        = "STORE_WRITE_FAILED"
	StoreSubscriptionFailed = "STORE_SUBSCRIPTION_FAILED"
	InternalError           = "INTERNAL_ERROR"
)

// Error represents a structured error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that carries err as its cause.
func Wrap(code string, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// ExitCode returns 2 for InternalError, 1 for all others.
func (e *Error) ExitCode() int {
	if e.Code == InternalError {
		return 2 //nolint:mnd // exit code 2 for internal errors
	}
	return 1
}

// Is reports whether err (or anything it wraps) is an *Error with the given code.
func Is(err error, code string) bool {
	var ce *Error
	for err != nil {
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Err
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// SilentError signals an exit code without additional output.
// Used by batch operations where results are already written to stdout.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
