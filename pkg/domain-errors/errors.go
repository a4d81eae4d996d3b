// Package domainerrors provides coded errors for the service layer.
//
// Services attach a stable machine-readable code so transport layers can map
// errors to status codes without string matching, and so audit records carry a
// consistent vocabulary. Stores should return pkg/platform/sentinel errors and
// let services translate them here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeInvalidIDs   Code = "invalid_ids"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
	CodeUnavailable  Code = "unavailable"
)

// Error is a coded domain error. The wrapped cause, if any, is reachable via
// errors.Unwrap for sentinel checks.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain. Unclassified errors report
// CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
