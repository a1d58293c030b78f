package validation

import (
	"errors"
	"fmt"
)

// Error is a local input rejection. Field names the offending input as the
// user typed it (for example "title" or "API base URL").
type Error struct {
	Field string
	msg   string
	err   error
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.err }

func newError(field, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Field: field, msg: wrapped.Error(), err: errors.Unwrap(wrapped)}
}

// IsValidationError reports whether err is, or wraps, a local input rejection.
func IsValidationError(err error) bool {
	var v *Error
	return errors.As(err, &v)
}
