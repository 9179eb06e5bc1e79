package chat

import (
	"errors"
	"fmt"
)

type Code int

const (
	CodeInvalid Code = iota + 1
	CodeUnauthenticated
	CodeForbidden
	CodeNotFound
	CodeExhausted
)

// Error is the typed failure the transport layer maps onto status codes.
// Message is user-visible; anything else goes to the logs.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Invalid(format string, args ...any) *Error {
	return &Error{Code: CodeInvalid, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) *Error {
	return &Error{Code: CodeUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Exhausted(format string, args ...any) *Error {
	return &Error{Code: CodeExhausted, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the typed code carried by err, or zero for untyped errors.
func CodeOf(err error) Code {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return 0
}
