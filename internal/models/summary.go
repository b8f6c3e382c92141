package models

import "time"

// Phase is a state of the shared job/migration state machine
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseResolving Phase = "RESOLVING"
	PhaseAnalyzing Phase = "ANALYZING"
	PhaseExecuting Phase = "EXECUTING"
	PhaseCooldown  Phase = "COOLDOWN"
	PhaseCompleted Phase = "COMPLETED"
	PhaseNoTargets Phase = "ABORTED_NO_TARGETS"
	PhaseCancelled Phase = "CANCELLED"
)

// Status is the terminal status of a job or migration run
type Status string

const (
	StatusCompleted   Status = "COMPLETED"
	StatusNoTargets   Status = "NO_TARGETS"
	StatusCancelled   Status = "CANCELLED"
	StatusErrorAccess Status = "ERROR_ACCESS"
	StatusErrorLogin  Status = "ERROR_LOGIN"
	StatusFailed      Status = "FAILED"
)

// TargetRef is the id/name pair reported downstream
type TargetRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Summary is the exit payload of a job or migration run
type Summary struct {
	ID         string      `json:"id" badgerhold:"key"`
	Kind       string      `json:"kind"` // "job" or "migration"
	SourceKind SourceKind  `json:"source_kind,omitempty"`
	Mode       Mode        `json:"mode,omitempty"`
	Plan       string      `json:"plan,omitempty"` // migration plan name
	Status     Status      `json:"status"`
	Counters   JobCounters `json:"counters"`
	Cancelled  bool        `json:"cancelled"`
	Targets    []TargetRef `json:"targets,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

const (
	SummaryKindJob       = "job"
	SummaryKindMigration = "migration"
)

// NewJobSummary starts a summary for job
func NewJobSummary(job *Job) *Summary {
	return &Summary{
		ID:         job.ID,
		Kind:       SummaryKindJob,
		SourceKind: job.SourceKind,
		Mode:       job.Mode,
		StartedAt:  time.Now(),
	}
}
