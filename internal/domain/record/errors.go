package record

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the DNI has no stored record. Not a failure: the
	// caller starts the new-patient flow.
	ErrNotFound = errors.New("patient record not found")

	// ErrLocked means the record's 24-hour post-discharge window elapsed.
	ErrLocked = errors.New("record is locked")

	// ErrPersistence wraps store read/write failures.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError blocks an operation until the user corrects the field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
