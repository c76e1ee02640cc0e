package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEntry is returned when a cycle already exists for (user, start date).
	ErrDuplicateEntry = errors.New("a cycle with this start date already exists for this user")
	// ErrNotFound is returned when the record to update does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable wraps any store failure that is not a business rule.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalid marks a record that violates the declared field ranges.
	ErrInvalid = errors.New("invalid record")
)

// ValidationError names the offending field. It matches ErrInvalid with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Unavailable wraps a driver error with ErrStoreUnavailable, keeping the
// original error in the chain. Nil stays nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
