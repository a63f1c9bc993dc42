package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned when an identifier does not match the
	// backing store's id format.
	ErrInvalidID = errors.New("invalid id")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")

	// ErrUnavailable is returned by every operation when the store could
	// not be reached at startup.
	ErrUnavailable = errors.New("store unavailable")
)
