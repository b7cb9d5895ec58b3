// README: Error classes. Every module error wraps exactly one of these so the
// HTTP layer can map failures without knowing module internals.
package types

import "errors"

var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	ErrDependency   = errors.New("dependency failure")
)

// Error is a named failure inside one class. Message is what callers see.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// With returns a child error carrying extra detail; errors.Is still matches e.
func (e *Error) With(detail string) *Error {
	return &Error{Kind: e, Message: e.Message + ": " + detail}
}
