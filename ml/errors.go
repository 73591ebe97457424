package ml

import (
	"errors"
	"fmt"
)

var ErrUnknownCategory = errors.New("unknown category")

// ValidationError reports a problem with one input field. The HTTP layer
// maps it to a client error; every other error is treated as internal.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
