package model

import "errors"

var (
	// ErrNotFound marks unknown images, jobs or missing results.
	ErrNotFound = errors.New("not found")
	// ErrOutOfRange marks an entry index outside the current result set.
	ErrOutOfRange = errors.New("index out of range")
	// ErrInvalidInput marks malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQueueClosed is returned when submitting after shutdown.
	ErrQueueClosed = errors.New("job queue closed")
)
