package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by this package matches exactly one of them
// with errors.Is.
var (
	// ErrRange is returned when an index or position is outside the bounds of
	// a node or fragment.
	ErrRange = errors.New("position out of range")
	// ErrReplace is returned when the open depths of a slice don't fit the
	// positions it is inserted between.
	ErrReplace = errors.New("invalid replace")
	// ErrJoin is returned when two nodes with incompatible content would have
	// to be joined.
	ErrJoin = errors.New("cannot join")
	// ErrContent is returned when content doesn't satisfy the content
	// expression of its parent.
	ErrContent = errors.New("invalid content")
	// ErrInvalidInput is returned when decoding malformed JSON.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSchema is returned for unknown types and broken schema specs.
	ErrSchema = errors.New("schema error")
)

// Error carries a kind and a human readable message.
type Error struct {
	Kind    error
	Message string
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// ReplaceError is the error type raised by Node.Replace when given an invalid
// replacement. Its kind is one of ErrReplace, ErrJoin or ErrContent.
type ReplaceError = Error

// NewReplaceError is the constructor for ReplaceError.
func NewReplaceError(message string, args ...interface{}) *ReplaceError {
	return newError(ErrReplace, message, args...)
}

func rangeError(format string, args ...interface{}) *Error {
	return newError(ErrRange, format, args...)
}

func inputError(format string, args ...interface{}) *Error {
	return newError(ErrInvalidInput, format, args...)
}

func schemaError(format string, args ...interface{}) *Error {
	return newError(ErrSchema, format, args...)
}
