package model

import "errors"

var (
	// ErrNotFound is returned by every store when a record is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the requested transition is not allowed from the
	// record's current state (for example starting a job that is not a draft).
	ErrInvalidState = errors.New("invalid state transition")
	// ErrJobBusy means another worker currently holds the job.
	ErrJobBusy = errors.New("job is already running")
)
