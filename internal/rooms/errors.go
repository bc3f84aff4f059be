package rooms

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers rooms that never existed, have expired, or
	// (on join paths) have already completed. Callers surface all
	// three identically.
	ErrNotFound = errors.New("room not found or expired")

	// ErrCompleted rejects contribution writes to a frozen room.
	ErrCompleted = errors.New("room has already ended")

	// ErrCodeSpace is returned when the probing create exhausts its
	// retry budget without finding a free code.
	ErrCodeSpace = errors.New("could not allocate a unique room code")
)

// ValidationError marks input rejected before any store write. The
// message is user-facing.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
