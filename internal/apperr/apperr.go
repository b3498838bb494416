// Package apperr classifies failures so every operation can report whether the
// caller, the data, or the infrastructure is at fault.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	NotFound
	InvalidInput
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case NotFound:
		return "not_found"
	case InvalidInput:
		return "invalid_input"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Invalidf(format string, args ...any) *Error {
	return New(InvalidInput, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

// KindOf reports the kind of err. Record-not-found from gorm counts as
// NotFound; anything unclassified is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return Internal
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the caller-safe message for err. Internal errors never
// expose the underlying cause.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != Internal {
		return appErr.Message
	}
	if KindOf(err) == NotFound {
		return "not found"
	}
	return fallback
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
