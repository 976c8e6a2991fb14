// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across engine/backend/server layers.
var (
	// ErrValidation indicates invalid input, rejected before any network call.
	ErrValidation = errors.New("validation")

	// ErrNetwork indicates a transient transport failure. The engine never retries.
	ErrNetwork = errors.New("network error")

	// ErrNotAuthenticated indicates a missing or expired credential.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRejected indicates a backend-side business rule failure.
	// Use RejectedError to carry the reason; errors.Is(err, ErrRejected) matches both.
	ErrRejected = errors.New("rejected")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates the login is temporarily blocked after repeated failures.
	ErrRateLimited = errors.New("rate limited")
)

// RejectedError carries a rejection reason verbatim.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected: %s", e.Reason)
}

// Is makes errors.Is(err, ErrRejected) succeed for any RejectedError.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Rejected constructs a RejectedError with the given reason.
func Rejected(reason string) error {
	return &RejectedError{Reason: reason}
}
