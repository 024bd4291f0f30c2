package progress

import "errors"

var (
	// ErrUnauthenticated means no user identity was supplied.
	ErrUnauthenticated = errors.New("progress: unauthenticated")
	// ErrFetch wraps failures reading exercises or progress rows.
	ErrFetch = errors.New("progress: fetch failed")
	// ErrUpsert wraps failures writing a progress row.
	ErrUpsert = errors.New("progress: upsert failed")
	// ErrInvalidScore is returned for scores outside 0..100.
	ErrInvalidScore = errors.New("progress: score must be between 0 and 100")
)
