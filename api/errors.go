// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-evloop.

package api

import (
	"errors"
	"fmt"
)

// Programming errors, raised synchronously at the call site.
var (
	// ErrUseAfterClose is returned by any socket operation invoked
	// after Close.
	ErrUseAfterClose = errors.New("evloop: use of closed socket")

	// ErrDuplicateInterest is returned when a continuation is already
	// pending for the exact same (descriptor, direction) pair.
	ErrDuplicateInterest = errors.New("evloop: continuation already pending for interest")

	// ErrLoopTerminated is returned when scheduling against a reactor
	// whose Run has already returned.
	ErrLoopTerminated = errors.New("evloop: reactor already terminated")
)

// ErrorCode classifies failure outcomes delivered to continuations.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	// ErrCodePollFailure: the wait primitive failed fatally; aborts Run.
	ErrCodePollFailure
	// ErrCodeConnectionFailure: connect refused, timed out, or network
	// unreachable.
	ErrCodeConnectionFailure
	// ErrCodeConnectionReset: peer reset an established connection.
	ErrCodeConnectionReset
	// ErrCodeBrokenPipe: write on a connection closed by the peer.
	ErrCodeBrokenPipe
	// ErrCodeInternal: anything the taxonomy does not cover.
	ErrCodeInternal
)

// String returns the canonical name for the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodePollFailure:
		return "poll failure"
	case ErrCodeConnectionFailure:
		return "connection failure"
	case ErrCodeConnectionReset:
		return "connection reset"
	case ErrCodeBrokenPipe:
		return "broken pipe"
	default:
		return "internal"
	}
}

// Error is a structured failure with a taxonomy code and the
// underlying OS error, delivered as an operation's failure outcome.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("evloop: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("evloop: %s: %s: %v", e.Code, e.Message, e.Cause)
}

// Unwrap exposes the underlying OS error to errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches two *Error values by code, so callers can test against
// a bare &Error{Code: ...} sentinel.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return te.Code == e.Code
}

// NewError creates a structured error with code and cause.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the taxonomy code from err, or ErrCodeInternal when
// err carries no *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
