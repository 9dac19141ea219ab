package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. The dispatch log does not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: dispatch log does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
