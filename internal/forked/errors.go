package forked

import (
	"errors"
	"fmt"
)

// Errors returned by repositories and the resource engine. Implementations
// wrap them with context, so test with errors.Is.
var (
	ErrForkNotFound         = errors.New("fork not found")
	ErrForkAlreadyExists    = errors.New("fork already exists")
	ErrProtectedFork        = errors.New("fork is protected")
	ErrVersionNotFound      = errors.New("version not found")
	ErrVersionAlreadyStored = errors.New("version already stored")
)

// UnexpectedError wraps a failure that is not one of the repository errors
// above, such as an I/O or decoding error from a storage backend.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// Unexpected wraps err in an UnexpectedError unless it is nil or already
// one of the package errors.
func Unexpected(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrForkNotFound, ErrForkAlreadyExists, ErrProtectedFork, ErrVersionNotFound, ErrVersionAlreadyStored} {
		if errors.Is(err, known) {
			return err
		}
	}
	var ue *UnexpectedError
	if errors.As(err, &ue) {
		return err
	}
	return &UnexpectedError{Err: err}
}
