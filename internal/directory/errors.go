package directory

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrContactNotFound = errors.New("contact not found")
	ErrDuplicatePhone  = errors.New("phone already in directory")
	ErrNotConfirmed    = errors.New("not confirmed")
	ErrNotLoaded       = errors.New("directory not loaded from the modem yet")
)

// ValidationError is raised before any network call; the cache is untouched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistError means the local mutation was applied but the store rejected
// or never received the new collection. The cache stays diverged until the
// next successful write.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save contacts after %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
