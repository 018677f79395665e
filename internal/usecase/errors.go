package usecase

import "errors"

var (
	// ErrMissingIdentity indicates a lookup was requested with neither an email nor a legacy id.
	ErrMissingIdentity = errors.New("neither email nor legacy id provided")
	// ErrMissingEmail indicates a user record that needs an email has none under any known key.
	ErrMissingEmail = errors.New("no email found")
	// ErrUnsupportedCollection indicates a record from a collection the engine does not migrate.
	ErrUnsupportedCollection = errors.New("unsupported collection")
	// ErrStoreUnreachable indicates the canonical store failed its pre-run health check.
	ErrStoreUnreachable = errors.New("canonical store unreachable")
	// ErrSourceUnreachable indicates the legacy source failed its pre-run health check.
	ErrSourceUnreachable = errors.New("legacy source unreachable")
	// ErrRunInProgress indicates another migration run holds the run lock.
	ErrRunInProgress = errors.New("another migration run is in progress")
)
