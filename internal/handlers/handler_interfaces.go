package handlers

import (
	"github.com/ternarybob/engel/internal/engine"
	"github.com/ternarybob/engel/internal/models"
)

// JobQueue accepts jobs and reports what is waiting.
type JobQueue interface {
	Enqueue(job *models.Job) error
	Pending() []models.JobInfo
}

// OperationController exposes the shared operation state and the cancellation signal.
type OperationController interface {
	Cancel() bool
	State() engine.OperationState
}

// MigrationStarter launches a migration plan in the background.
type MigrationStarter interface {
	Start(planName string) (string, error)
}
