package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey signals an insert under an identity that is already present.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidIndexType signals an index type tag outside the supported set.
	ErrInvalidIndexType = errors.New("invalid index type")
	// ErrInvalidName signals a malformed container name, field name or record id.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidFilter signals a search filter or sort key the container schema cannot serve.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrIndexOutOfRange signals a result position outside the hit list.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// KeyError attaches the offending record identity to a sentinel error.
type KeyError struct {
	Container string
	ID        string
	Err       error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %s/%s", e.Err.Error(), e.Container, e.ID)
}

func (e *KeyError) Unwrap() error { return e.Err }

// NewNotFound creates a not-found error for a record identity.
func NewNotFound(container, id string) error {
	return &KeyError{Container: container, ID: id, Err: ErrNotFound}
}

// NewDuplicateKey creates a duplicate-key error for a record identity.
func NewDuplicateKey(container, id string) error {
	return &KeyError{Container: container, ID: id, Err: ErrDuplicateKey}
}
