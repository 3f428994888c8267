package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies storage errors for callers that branch on failure kind.
type Code string

const (
	// CodeDatabase covers I/O, corruption and driver failures.
	CodeDatabase Code = "database"
	// CodeNotFound means the requested row does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidArgument means the caller passed malformed input.
	CodeInvalidArgument Code = "invalid_argument"
	// CodeConflict covers constraint violations, illegal state
	// transitions and transaction misuse.
	CodeConflict Code = "conflict"
)

// Error is the typed error returned by the storage layer.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the storage error code from err, or "" if err is not a
// storage error.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound reports whether err is a not_found storage error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsConflict reports whether err is a conflict storage error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsInvalidArgument reports whether err is an invalid_argument storage error.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsDatabase reports whether err is a database storage error.
func IsDatabase(err error) bool { return CodeOf(err) == CodeDatabase }

func notFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidArgf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// wrapDBErr wraps a driver error, promoting constraint violations to
// conflict so callers can distinguish bad data from a broken store.
func wrapDBErr(msg string, err error) *Error {
	code := CodeDatabase
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "constraint") {
		code = CodeConflict
	}
	return &Error{Code: code, Message: msg, Err: err}
}
