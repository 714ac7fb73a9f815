package repositories

import "fmt"

// Error is the concrete RepositoryError implementation shared by backends.
type Error struct {
	err         error
	notFound    bool
	unavailable bool
}

// NewNotFoundError classifies err as a missing-record failure.
func NewNotFoundError(err error) *Error {
	return &Error{err: err, notFound: true}
}

// NewUnavailableError classifies err as a backend availability failure.
func NewUnavailableError(err error) *Error {
	return &Error{err: err, unavailable: true}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil || e.err == nil {
		return "repository error"
	}
	return fmt.Sprintf("repository: %v", e.err)
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// IsNotFound reports whether the record was absent.
func (e *Error) IsNotFound() bool { return e != nil && e.notFound }

// IsUnavailable reports whether the backend could not be reached.
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }
