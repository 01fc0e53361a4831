package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the initialization subsystem.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInitFailed matches every *InitError with CodeInitFailed.
	ErrInitFailed = errors.New("foundation: initialization failed")

	// ErrPreviouslyFailed matches *InitError values returned while the subsystem
	// is in the Failed status and no forced re-initialization was requested.
	ErrPreviouslyFailed = errors.New("foundation: initialization previously failed")

	// ErrInvalidTransition matches *InitError values caused by a rejected state transition.
	ErrInvalidTransition = errors.New("foundation: invalid state transition")

	// ErrReentrantInit is returned when Initialize is called from inside an initialization step.
	ErrReentrantInit = errors.New("foundation: re-entrant initialization")

	// ErrNotInitialized is returned by operations that require a completed initialization.
	ErrNotInitialized = errors.New("foundation: not initialized")
)

// Stable error codes carried by InitError.
const (
	CodeInitFailed        = "FOUNDATION_INIT_FAILED"
	CodePreviouslyFailed  = "FOUNDATION_INIT_PREVIOUSLY_FAILED"
	CodeInvalidTransition = "FOUNDATION_INVALID_TRANSITION"
)

// InitError wraps a failure of the initialization sequence with a stable
// code and the phase that produced it.
type InitError struct {
	Code  string
	Phase Phase
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("foundation: %s (phase %s): %v", e.Code, e.Phase, e.Err)
}

// Unwrap returns the original cause.
func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error code.
func (e *InitError) Is(target error) bool {
	switch target {
	case ErrInitFailed:
		return e.Code == CodeInitFailed
	case ErrPreviouslyFailed:
		return e.Code == CodePreviouslyFailed
	case ErrInvalidTransition:
		return e.Code == CodeInvalidTransition
	}
	return false
}

// PhaseOf returns the phase recorded in err, if err wraps an *InitError.
func PhaseOf(err error) (Phase, bool) {
	var ie *InitError
	if errors.As(err, &ie) {
		return ie.Phase, true
	}
	return "", false
}
