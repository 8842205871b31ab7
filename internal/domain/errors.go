package domain

import "errors"

var (
	// ErrNotFound is returned for a document, link or configuration key
	// that doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModify is returned when a stored document changed since
	// it was read.
	ErrConcurrentModify = errors.New("concurrent modification")

	// ErrInvalidArgument is returned when an argument is invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists is returned when creating a document whose key is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnknownScope is returned for a document scope no type is registered for.
	ErrUnknownScope = errors.New("unknown document scope")
)
