package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

// Dependencies are the collaborators a Scheduler drives
type Dependencies struct {
	Identifier interfaces.ClientIdentifier
	Source     interfaces.TargetSource
	Analyzer   interfaces.RelationAnalyzer
	Resolver   interfaces.IDResolver
	Runner     interfaces.ActionRunner
	Summaries  interfaces.SummaryStorage
	Sink       interfaces.ProgressSink
}

// Scheduler is a FIFO job queue drained by one goroutine, one job at a time
type Scheduler struct {
	mu      sync.Mutex
	queue   []*models.Job
	running bool
	closed  bool
	drained chan struct{}

	baseCtx     context.Context
	coordinator *Coordinator
	deps        Dependencies
	prefs       common.RelationConfig
	logger      arbor.ILogger
}

// NewScheduler creates a scheduler. Jobs run under baseCtx; cancelling it
// cancels the active job.
func NewScheduler(baseCtx context.Context, coordinator *Coordinator, deps Dependencies, prefs common.RelationConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		baseCtx:     baseCtx,
		coordinator: coordinator,
		deps:        deps,
		prefs:       prefs,
		logger:      logger,
	}
}

// Enqueue appends job and starts draining if the queue is idle. It fails
// while a migration holds the operation lock.
func (s *Scheduler) Enqueue(job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrQueueClosed
	}

	var ctx context.Context
	if !s.running {
		var err error
		ctx, err = s.coordinator.Start(s.baseCtx, StateQueueRunning)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.running = true
		s.drained = make(chan struct{})
	}
	s.queue = append(s.queue, job)
	pending := s.pendingLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", job.ID).
		Str("source_kind", string(job.SourceKind)).
		Str("mode", string(job.Mode)).
		Int("queue_size", len(pending)).
		Msg("Job enqueued")
	s.deps.Sink.OnQueueSnapshot(pending)

	if ctx != nil {
		common.SafeGo(s.logger, "job-queue", func() { s.drain(ctx) }, func(interface{}) { s.stop() })
	}
	return nil
}

// Size returns the number of jobs waiting to start
func (s *Scheduler) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// IsRunning reports whether the queue is draining
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending returns the waiting jobs in queue order
func (s *Scheduler) Pending() []models.JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *Scheduler) pendingLocked() []models.JobInfo {
	pending := make([]models.JobInfo, 0, len(s.queue))
	for _, job := range s.queue {
		pending = append(pending, job.Info())
	}
	return pending
}

// Wait blocks until the queue is idle or ctx ends
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	running, drained := s.running, s.drained
	s.mu.Unlock()

	if !running {
		return nil
	}
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further jobs. Queued jobs still run.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// next pops the head of the queue. When the queue is empty the drain ends
// under the same lock so a concurrent Enqueue starts a fresh drain.
func (s *Scheduler) next() (*models.Job, []models.JobInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		s.stopLocked()
		return nil, nil
	}
	job := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return job, s.pendingLocked()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.coordinator.Finish(StateQueueRunning)
	s.running = false
	close(s.drained)
}

// takeAll empties the queue
func (s *Scheduler) takeAll() []*models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.queue
	s.queue = nil
	return jobs
}

func (s *Scheduler) drain(ctx context.Context) {
	for {
		job, pending := s.next()
		if job == nil {
			s.deps.Sink.OnPhase(models.PhaseIdle)
			return
		}

		if ctx.Err() != nil {
			s.discard(append([]*models.Job{job}, s.takeAll()...))
			continue
		}

		s.deps.Sink.OnQueueSnapshot(pending)
		summary := s.runJobSafe(ctx, job)
		s.finish(summary)

		if summary.Cancelled {
			s.discard(s.takeAll())
		}
	}
}

// discard reports each job as individually cancelled
func (s *Scheduler) discard(jobs []*models.Job) {
	if len(jobs) == 0 {
		return
	}

	for _, job := range jobs {
		summary := models.NewJobSummary(job)
		summary.Status = models.StatusCancelled
		summary.Cancelled = true
		summary.FinishedAt = time.Now()
		s.finish(summary)
	}

	s.logger.Info().Int("discarded", len(jobs)).Msg("Discarded queued jobs after cancellation")
	s.deps.Sink.OnQueueSnapshot(s.Pending())
}

func (s *Scheduler) finish(summary *models.Summary) {
	if s.deps.Summaries != nil {
		if err := s.deps.Summaries.SaveSummary(context.Background(), summary); err != nil {
			s.logger.Warn().Err(err).Str("summary_id", summary.ID).Msg("Failed to save summary")
		}
	}
	s.deps.Sink.OnFinished(summary)
}

// runJobSafe runs one job; a panic ends the job as FAILED instead of
// killing the drain.
func (s *Scheduler) runJobSafe(ctx context.Context, job *models.Job) (summary *models.Summary) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_id", job.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.GetStackTrace()).
				Msg("Recovered from panic in job")
			if summary == nil {
				summary = models.NewJobSummary(job)
			}
			summary.Status = models.StatusFailed
			summary.Error = fmt.Sprintf("panic: %v", r)
			summary.FinishedAt = time.Now()
		}
	}()

	summary = models.NewJobSummary(job)
	s.runJob(ctx, job, summary)
	return summary
}

func (s *Scheduler) runJob(ctx context.Context, job *models.Job, summary *models.Summary) {
	sink := s.deps.Sink
	counters := &summary.Counters
	counters.Reset()

	log := s.logger.WithCorrelationId(job.ID)
	log.Info().
		Str("source_kind", string(job.SourceKind)).
		Str("mode", string(job.Mode)).
		Msg("Job started")

	defer func() {
		summary.FinishedAt = time.Now()
		log.Info().
			Str("status", string(summary.Status)).
			Int("planned", counters.Planned).
			Int("performed", counters.Performed).
			Int("successful", counters.Successful).
			Bool("cancelled", summary.Cancelled).
			Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("Job finished")
	}()

	sink.OnPhase(models.PhaseResolving)

	caller, err := s.deps.Identifier.Identify(ctx)
	if err != nil {
		summary.Error = err.Error()
		summary.Status = models.StatusErrorAccess
		if errors.Is(err, models.ErrNotLoggedIn) {
			summary.Status = models.StatusErrorLogin
		}
		return
	}

	var targets []models.Target
	for target := range s.deps.Source.Resolve(ctx, job) {
		targets = append(targets, target)
	}
	if ctx.Err() != nil {
		s.cancelled(summary)
		return
	}

	if s.deps.Analyzer != nil && s.deps.Analyzer.Applies(job) {
		sink.OnPhase(models.PhaseAnalyzing)
		targets = s.deps.Analyzer.Analyze(ctx, caller, targets)
		if ctx.Err() != nil {
			s.cancelled(summary)
			return
		}
	}

	if len(targets) == 0 {
		sink.OnPhase(models.PhaseNoTargets)
		summary.Status = models.StatusNoTargets
		summary.Error = models.ErrNoTargets.Error()
		return
	}

	counters.Plan(len(targets))
	sink.OnPhase(models.PhaseExecuting)
	sink.OnOngoing(counters.Successful, counters.Performed, counters.Planned)

	for _, target := range targets {
		if ctx.Err() != nil {
			s.cancelled(summary)
			return
		}

		if target.ID == "" && target.DisplayName != "" {
			target.ID = s.deps.Resolver.ResolveID(ctx, target.DisplayName)
		}

		if !target.Resolved() {
			counters.Record(false)
			log.Warn().Str("target", target.DisplayName).Msg("Target id could not be resolved")
			sink.OnOngoing(counters.Successful, counters.Performed, counters.Planned)
			continue
		}

		success := true
		kinds := PlanKinds(job, target, s.prefs)
		if !kinds.Empty() {
			result := s.deps.Runner.Run(ctx, sink, job.Mode, target.ID, kinds, s.prefs.MaxAttempts)
			if result.Cancelled {
				s.cancelled(summary)
				return
			}
			success = result.Outcome.Kind == models.OutcomeSuccess
		}

		counters.Record(success)
		summary.Targets = append(summary.Targets, models.TargetRef{ID: target.ID, Name: target.DisplayName})
		if !success {
			log.Warn().Str("target", target.DisplayName).Str("target_id", target.ID).Msg("Target action failed")
		}
		sink.OnOngoing(counters.Successful, counters.Performed, counters.Planned)
	}

	sink.OnPhase(models.PhaseCompleted)
	summary.Status = models.StatusCompleted
}

func (s *Scheduler) cancelled(summary *models.Summary) {
	s.deps.Sink.OnPhase(models.PhaseCancelled)
	summary.Status = models.StatusCancelled
	summary.Cancelled = true
}
