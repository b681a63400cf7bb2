package models

import (
	"errors"
	"fmt"
)

var ErrPermissionDenied = errors.New("permission denied")

// ValidationError reports malformed input: bad proposed date sets, duration
// out of range, foreign employee ids and the like.
type ValidationError struct {
	Reason string
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// TransitionError reports a meeting status change the state machine does not
// allow. Both statuses are kept for diagnostics.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition meeting from %q to %q", e.From, e.To)
}
