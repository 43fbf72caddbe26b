package services

import (
	"errors"
	"fmt"
)

// Error taxonomy of the terminal core. Callers match with errors.Is; every
// returned error wraps exactly one of these.
var (
	// ErrValidation marks malformed input. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrPolicyViolation marks an operation the current state or role forbids.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrConflict marks a duplicate of something that must be unique, such as an active shift.
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	// ErrTransientNetwork marks a remote call that failed in a way worth retrying later.
	ErrTransientNetwork = errors.New("transient network error")
	ErrUnauthorized     = errors.New("unauthorized")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func policyViolationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPolicyViolation, fmt.Sprintf(format, args...))
}

// RemoteError is a non-retryable 4xx answer from the remote API.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("remote returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.StatusCode, e.Detail)
}
