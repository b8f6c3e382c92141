package interfaces

import (
	"context"
	"iter"

	"github.com/ternarybob/engel/internal/models"
)

// ActionExecutor issues the relation calls for one target
type ActionExecutor interface {
	Perform(ctx context.Context, mode models.Mode, targetID string, kinds models.Kinds) models.ActionOutcome
}

// TargetSource yields the targets of one job. The sequence is lazy, finite
// and not restartable; it stops early when ctx is cancelled.
type TargetSource interface {
	Resolve(ctx context.Context, job *models.Job) iter.Seq[models.Target]
}

// IDResolver looks up the remote id of an account by name. It returns "0" when
// the account cannot be resolved.
type IDResolver interface {
	ResolveID(ctx context.Context, name string) string
}

// ClientIdentifier identifies the logged-in caller on the remote site
type ClientIdentifier interface {
	Identify(ctx context.Context) (*models.Client, error)
}

// RelationDirectory fetches the caller's own reference rosters used by analysis
type RelationDirectory interface {
	// Following returns the accounts the named user follows, keyed by name
	Following(ctx context.Context, name string) (map[string]models.Target, error)

	// Roster returns every account with a relation applied by the caller, keyed by
	// name, with all three flags populated
	Roster(ctx context.Context) (map[string]models.Target, error)
}

// RosterPager fetches one page of one of the caller's relation rosters
type RosterPager interface {
	RosterPage(ctx context.Context, kind models.RelationKind, pageIndex int) (models.Page, error)
}

// ActionRunner performs one target's action with throttle handling and bounded retry
type ActionRunner interface {
	Run(ctx context.Context, sink ProgressSink, mode models.Mode, targetID string, kinds models.Kinds, maxAttempts int) models.RunResult
}

// RelationAnalyzer narrows a resolved target set before execution
type RelationAnalyzer interface {
	// Applies reports whether analysis runs for job
	Applies(job *models.Job) bool

	// Analyze returns the narrowed, annotated set. Never fails; a pass that
	// cannot fetch its reference data is skipped.
	Analyze(ctx context.Context, caller *models.Client, targets []models.Target) []models.Target
}
