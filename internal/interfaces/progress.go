package interfaces

import "github.com/ternarybob/engel/internal/models"

// ProgressSink receives live progress from the engine. Implementations must
// not block for long: calls are made inline on the engine's goroutine.
type ProgressSink interface {
	// OnOngoing is called after every target and when execution starts
	OnOngoing(successful, performed, planned int)

	// OnCooldown is called once per second while waiting out throttling
	OnCooldown(remainingSeconds int)

	// OnPhase is called on every state machine transition
	OnPhase(phase models.Phase)

	// OnFinished is called once per job, migration run or discarded queued job
	OnFinished(summary *models.Summary)

	// OnQueueSnapshot is called whenever the pending queue changes
	OnQueueSnapshot(pending []models.JobInfo)
}
