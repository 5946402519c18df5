package store

import "errors"

var (
	// ErrConflict is returned when an insert collides with an existing
	// appointment despite earlier validation (racing request).
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a cancellation target no longer exists
	// at mutation time.
	ErrNotFound = errors.New("not found")

	// ErrHealthCodeExhausted is returned when health-code generation gives
	// up after the maximum number of colliding draws.
	ErrHealthCodeExhausted = errors.New("health code generation exhausted")
)
