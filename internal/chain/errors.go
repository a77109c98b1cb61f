package chain

import "errors"

// Error is a named rejection. A transaction that fails with an Error leaves
// no trace in state; Code is stable and machine-readable, Message is the
// human-readable reason.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError declares a rejection. Each call returns a distinct sentinel, so
// packages compare with errors.Is.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeInternal is reported for failures that are not named rejections
// (storage outages, cancelled contexts).
const CodeInternal = "internal"

// ErrUnauthorized is shared by every owner- or caller-gated operation.
var ErrUnauthorized = NewError("unauthorized", "caller is not authorized")

// CodeOf returns the code of the first named rejection in err's chain.
func CodeOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

// IsRejection reports whether err is a named rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
