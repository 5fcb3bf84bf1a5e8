// Package apperr defines the caller-visible error codes returned by request
// handlers. Transports map a Code to their own status values.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a request failure.
type Code string

const (
	Unauthenticated Code = "unauthenticated"
	InvalidArgument Code = "invalid-argument"
	NotFound        Code = "not-found"
	Internal        Code = "internal"
)

// Error is a classified failure. Err, when set, is the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The cause message is kept in Error().
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or Internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// MessageOf returns the caller-visible message for err. Unclassified errors
// and internal errors carry their full cause text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != Internal {
		return e.Message
	}
	return err.Error()
}
