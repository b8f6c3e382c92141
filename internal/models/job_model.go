// -----------------------------------------------------------------------
// Relation Job - Immutable job structure for the bulk action queue
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies where a job's targets come from
type SourceKind string

const (
	SourceSingle       SourceKind = "SINGLE"
	SourceList         SourceKind = "LIST"
	SourceFavoriters   SourceKind = "FAVORITERS"
	SourceFollowers    SourceKind = "FOLLOWERS"
	SourceTitleAuthors SourceKind = "TITLE_AUTHORS"
	SourceUndoAll      SourceKind = "UNDO_ALL"
)

// Mode is the direction of a relation change
type Mode string

const (
	ModeApply  Mode = "APPLY"
	ModeRevoke Mode = "REVOKE"
)

// TimeWindow limits a title scrape to a time range
type TimeWindow string

const (
	WindowAll     TimeWindow = "ALL"
	WindowLast24H TimeWindow = "LAST_24H"
)

// TargetSpec carries the per-origin parameters of a job. Only the fields
// relevant to the job's SourceKind are read.
type TargetSpec struct {
	AuthorID   string       `json:"author_id,omitempty"`   // SINGLE
	AuthorName string       `json:"author_name,omitempty"` // SINGLE, FOLLOWERS
	Kind       RelationKind `json:"kind,omitempty"`        // SINGLE: which relation to change
	PostID     string       `json:"post_id,omitempty"`     // FAVORITERS
	TitleID    string       `json:"title_id,omitempty"`    // TITLE_AUTHORS
	TitleName  string       `json:"title_name,omitempty"`  // TITLE_AUTHORS
	Window     TimeWindow   `json:"window,omitempty"`      // TITLE_AUTHORS
}

// Job is one user-initiated bulk request. Once created it is never modified.
type Job struct {
	ID         string     `json:"id"`
	SourceKind SourceKind `json:"source_kind"`
	Mode       Mode       `json:"mode"`
	TargetSpec TargetSpec `json:"target_spec"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewJob creates a job with a fresh id. UNDO_ALL jobs are always REVOKE.
func NewJob(source SourceKind, mode Mode, spec TargetSpec) (*Job, error) {
	if source == SourceUndoAll {
		mode = ModeRevoke
	}

	job := &Job{
		ID:         uuid.New().String(),
		SourceKind: source,
		Mode:       mode,
		TargetSpec: spec,
		CreatedAt:  time.Now(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// Validate checks that the job carries the parameters its source needs
func (j *Job) Validate() error {
	if j.Mode != ModeApply && j.Mode != ModeRevoke {
		return fmt.Errorf("invalid mode: %q", j.Mode)
	}

	spec := j.TargetSpec
	switch j.SourceKind {
	case SourceSingle:
		if spec.AuthorName == "" && spec.AuthorID == "" {
			return fmt.Errorf("single job requires author id or name")
		}
		if !spec.Kind.Valid() {
			return fmt.Errorf("single job requires a relation kind, got %q", spec.Kind)
		}
	case SourceList, SourceUndoAll:
	case SourceFavoriters:
		if spec.PostID == "" {
			return fmt.Errorf("favoriters job requires post id")
		}
	case SourceFollowers:
		if spec.AuthorName == "" {
			return fmt.Errorf("followers job requires author name")
		}
	case SourceTitleAuthors:
		if spec.TitleID == "" || spec.TitleName == "" {
			return fmt.Errorf("title authors job requires title id and name")
		}
		if spec.Window != "" && spec.Window != WindowAll && spec.Window != WindowLast24H {
			return fmt.Errorf("invalid time window: %q", spec.Window)
		}
	default:
		return fmt.Errorf("unknown source kind: %q", j.SourceKind)
	}
	return nil
}

// Info returns the queue snapshot view of the job
func (j *Job) Info() JobInfo {
	return JobInfo{
		ID:         j.ID,
		SourceKind: j.SourceKind,
		Mode:       j.Mode,
		CreatedAt:  j.CreatedAt,
	}
}

// JobInfo is the lightweight description published in queue snapshots
type JobInfo struct {
	ID         string     `json:"id"`
	SourceKind SourceKind `json:"source_kind"`
	Mode       Mode       `json:"mode"`
	CreatedAt  time.Time  `json:"created_at"`
}
