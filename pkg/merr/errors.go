// Package merr provides the structured error taxonomy used throughout
// modforge: every error the core returns carries a stable Code so
// callers (and tests) can branch on failure kind without string matching.
package merr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Values are stable across releases
// so tests and CLI exit-code mapping can rely on them.
type Code string

const (
	// General
	ErrUnknown      Code = "UNKNOWN"
	ErrInternal     Code = "INTERNAL"
	ErrInvalidInput Code = "INVALID_INPUT"
	ErrNotFound     Code = "NOT_FOUND"
	ErrPermission   Code = "PERMISSION"

	// Ledger / mod identity (spec.md §7)
	ErrDuplicateMod       Code = "DUPLICATE_MOD"
	ErrUnknownMod         Code = "UNKNOWN_MOD"
	ErrInvariantViolation Code = "INVARIANT_VIOLATION"
	ErrLedgerIO           Code = "LEDGER_IO"

	// Link Primitive / VMA
	ErrLinkCreationFailed Code = "LINK_CREATION_FAILED"
	ErrLinkRemovalFailed  Code = "LINK_REMOVAL_FAILED"
	ErrStagingCorrupt     Code = "STAGING_CORRUPT"

	// Transaction Coordinator
	ErrTransactionAborted Code = "TRANSACTION_ABORTED"
	ErrCancelled          Code = "CANCELLED"
)

// Error is a structured error carrying a Code, a human message, optional
// key/value details, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, &Error{Code: X}) to match on Code alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Details: make(map[string]interface{})}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Details: make(map[string]interface{})}
}

// Wrap wraps err in an Error carrying code and message. Returns nil if err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Details: make(map[string]interface{}), Wrapped: err}
}

// Wrapf wraps err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Details: make(map[string]interface{}), Wrapped: err}
}

// WithDetail attaches a key/value detail and returns the receiver for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the Code carried by err, or ErrUnknown if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}
