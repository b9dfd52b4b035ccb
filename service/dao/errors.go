package dao

import "errors"

// Sentinel errors let callers detect storage conditions via errors.Is instead
// of string comparisons.

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates that the supplied key is empty.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil pointer.
	ErrNilEntity = errors.New("dao: nil entity")

	// ErrStaleVersion is returned when a versioned entity was modified (or
	// created) concurrently since it was read.
	ErrStaleVersion = errors.New("dao: stale version")
)
