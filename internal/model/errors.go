package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when an item is inserted under a key that is already taken.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when a collection has no item under a key.
	ErrNotFound = errors.New("not found")
)

// DuplicateKeyError reports which collection and key rejected an insertion.
type DuplicateKeyError struct {
	Prop string
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	if e.Prop == "" {
		return fmt.Sprintf("duplicate key %q", e.Key)
	}
	return fmt.Sprintf("%s: duplicate key %q", e.Prop, e.Key)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }
