package model

import "errors"

// ErrNotFound is returned when a record does not exist or is not owned by the
// caller. Command handlers turn it into a plain "could not find" reply.
var ErrNotFound = errors.New("not found")

// ValidationError marks malformed user input or inconsistent record fields
// (e.g. a monthly reminder without a day of month). Reported to the user with
// a corrective prompt.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError.
func Validation(msg string) error { return &ValidationError{Msg: msg} }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
