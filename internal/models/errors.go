package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTargets ends a job whose target set is empty after resolution and analysis
	ErrNoTargets = errors.New("no targets to act on")

	// ErrOperationActive is returned when a queue drain or migration is already running
	ErrOperationActive = errors.New("another operation is active")

	// ErrQueueClosed is returned when enqueueing into a stopped scheduler
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrNotLoggedIn is returned when the site session has no logged-in user
	ErrNotLoggedIn = errors.New("no logged-in user on site")

	// ErrSiteUnreachable is returned when the site cannot be reached at all
	ErrSiteUnreachable = errors.New("site is not reachable")

	// ErrNotFound is returned by stores when a record is missing
	ErrNotFound = errors.New("not found")
)

// ResolutionError reports a failed page fetch. It ends the sequence, it does not fail the job.
type ResolutionError struct {
	Source string
	Page   int
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s page %d: %v", e.Source, e.Page, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
