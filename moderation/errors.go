package moderation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown reference identifier (or an unknown /
	// already-consumed job identifier at the store layer).
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a concurrent mutation was detected on persist
	// (optimistic version check failed). Callers re-read and retry; only
	// exhausted retries surface to the outside.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrInvalidAsset indicates a malformed or unusable media asset. This is
	// a client-visible input error, distinct from a retryable backend
	// failure.
	ErrInvalidAsset = errors.New("invalid media asset")
)

// ValidationError rejects malformed or oversized input before any record is
// created.
type ValidationError struct {
	Field   string
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Problem)
}
