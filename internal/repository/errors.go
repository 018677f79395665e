package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict signals a uniqueness violation, typically a concurrent insert of the same email.
	ErrConflict = errors.New("repository: conflict")
)
