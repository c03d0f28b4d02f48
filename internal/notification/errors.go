package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no notification matched the id and user pair, or no
	// preferences record exists yet. Another user's notification is reported
	// the same way as a missing one.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by PreferencesStore.Insert when the user
	// already has a preferences record.
	ErrConflict = errors.New("already exists")

	// ErrInvalidInput marks rejected caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a failed persistence call.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) true for any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
