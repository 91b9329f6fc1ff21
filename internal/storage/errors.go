package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersist is returned when a mutation could not be made durable.
	// A mutation that fails to persist leaves no visible state change; in
	// particular a checkpoint never advances past a failed write.
	ErrPersist = errors.New("persist failed")
)
