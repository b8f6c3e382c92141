package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

// MigrationStep is one relation call of a migration pipeline
type MigrationStep struct {
	Mode models.Mode
	Kind models.RelationKind
}

// MigrationPlan converts every entry of one roster through a fixed pipeline
type MigrationPlan struct {
	Name   string
	Source models.RelationKind
	Steps  []MigrationStep
}

// ErrUnknownPlan is returned for a plan name missing from Plans
var ErrUnknownPlan = errors.New("unknown migration plan")

// Plans are the available migrations keyed by name
var Plans = map[string]MigrationPlan{
	"blocked-to-muted": {
		Name:   "blocked-to-muted",
		Source: models.KindUser,
		Steps: []MigrationStep{
			{Mode: models.ModeRevoke, Kind: models.KindUser},
			{Mode: models.ModeApply, Kind: models.KindMute},
		},
	},
	"blocked-titles-to-unblocked": {
		Name:   "blocked-titles-to-unblocked",
		Source: models.KindTitle,
		Steps: []MigrationStep{
			{Mode: models.ModeRevoke, Kind: models.KindTitle},
		},
	},
}

// PlanNames returns the migration plan names in sorted order
func PlanNames() []string {
	names := make([]string, 0, len(Plans))
	for name := range Plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MigrationRunner converts the caller's existing relations in fixed-size
// batches. It shares the coordinator with the Scheduler so the two never run
// together.
type MigrationRunner struct {
	baseCtx     context.Context
	coordinator *Coordinator
	pager       interfaces.RosterPager
	runner      interfaces.ActionRunner
	summaries   interfaces.SummaryStorage
	sink        interfaces.ProgressSink
	config      common.MigrationConfig
	sleep       func(ctx context.Context, d time.Duration) error
	logger      arbor.ILogger
	background  sync.WaitGroup
}

// NewMigrationRunner creates a migration runner
func NewMigrationRunner(
	baseCtx context.Context,
	coordinator *Coordinator,
	pager interfaces.RosterPager,
	runner interfaces.ActionRunner,
	summaries interfaces.SummaryStorage,
	sink interfaces.ProgressSink,
	config common.MigrationConfig,
	logger arbor.ILogger,
) *MigrationRunner {
	return &MigrationRunner{
		baseCtx:     baseCtx,
		coordinator: coordinator,
		pager:       pager,
		runner:      runner,
		summaries:   summaries,
		sink:        sink,
		config:      config,
		sleep:       common.SleepContext,
		logger:      logger,
	}
}

// WithSleep replaces the pause function
func (m *MigrationRunner) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *MigrationRunner {
	m.sleep = sleep
	return m
}

// IsRunning reports whether a migration holds the operation lock
func (m *MigrationRunner) IsRunning() bool {
	return m.coordinator.State() == StateMigrationRunning
}

// Start launches plan in the background and returns the run's summary id.
// It fails with ErrOperationActive while the queue or another migration runs.
func (m *MigrationRunner) Start(planName string) (string, error) {
	plan, ok := Plans[planName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, planName)
	}

	ctx, err := m.coordinator.Start(m.baseCtx, StateMigrationRunning)
	if err != nil {
		return "", err
	}

	summary := m.newSummary(plan)
	m.background.Add(1)
	common.SafeGo(m.logger, "migration", func() {
		defer m.background.Done()
		defer m.coordinator.Finish(StateMigrationRunning)
		m.execute(ctx, plan, summary)
		m.finish(summary)
	}, func(interface{}) {
		m.coordinator.Finish(StateMigrationRunning)
	})
	return summary.ID, nil
}

// Wait blocks until every migration launched by Start has saved its summary
// or ctx is done.
func (m *MigrationRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.background.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes plan on the calling goroutine
func (m *MigrationRunner) Run(ctx context.Context, planName string) (*models.Summary, error) {
	plan, ok := Plans[planName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planName)
	}

	runCtx, err := m.coordinator.Start(ctx, StateMigrationRunning)
	if err != nil {
		return nil, err
	}
	defer m.coordinator.Finish(StateMigrationRunning)

	summary := m.newSummary(plan)
	m.execute(runCtx, plan, summary)
	m.finish(summary)
	return summary, nil
}

func (m *MigrationRunner) newSummary(plan MigrationPlan) *models.Summary {
	return &models.Summary{
		ID:        common.NewMigrationID(),
		Kind:      models.SummaryKindMigration,
		Plan:      plan.Name,
		StartedAt: time.Now(),
	}
}

func (m *MigrationRunner) finish(summary *models.Summary) {
	summary.FinishedAt = time.Now()
	if m.summaries != nil {
		if err := m.summaries.SaveSummary(context.Background(), summary); err != nil {
			m.logger.Warn().Err(err).Str("summary_id", summary.ID).Msg("Failed to save migration summary")
		}
	}
	m.sink.OnFinished(summary)
	m.sink.OnPhase(models.PhaseIdle)
}

// execute walks the roster page by page. Converted entries leave the roster,
// so the same page index is fetched again until a page holds only entries
// already attempted in this run; then the index advances.
func (m *MigrationRunner) execute(ctx context.Context, plan MigrationPlan, summary *models.Summary) {
	log := m.logger.WithCorrelationId(summary.ID)
	counters := &summary.Counters
	attempted := make(map[string]struct{})
	pageIndex := 1

	log.Info().Str("plan", plan.Name).Msg("Migration started")
	m.sink.OnPhase(models.PhaseResolving)

	for batch := 0; batch < m.config.MaxBatches; batch++ {
		if ctx.Err() != nil {
			m.cancelled(summary)
			return
		}

		page, err := m.pager.RosterPage(ctx, plan.Source, pageIndex)
		if err != nil {
			rerr := &models.ResolutionError{Source: "roster_" + string(plan.Source), Page: pageIndex, Err: err}
			log.Warn().Err(rerr).Msg("Roster page fetch failed, ending migration")
			if counters.Performed == 0 {
				summary.Status = models.StatusFailed
				summary.Error = rerr.Error()
				return
			}
			break
		}

		var fresh []models.Target
		for _, target := range page.Targets {
			if _, done := attempted[target.DisplayName]; !done {
				fresh = append(fresh, target)
			}
		}

		if batch == 0 && len(fresh) == 0 {
			m.sink.OnPhase(models.PhaseNoTargets)
			summary.Status = models.StatusNoTargets
			summary.Error = models.ErrNoTargets.Error()
			return
		}

		if len(fresh) > 0 {
			if counters.Performed == 0 {
				m.sink.OnPhase(models.PhaseExecuting)
			}
			counters.Plan(counters.Planned + len(fresh))
			m.sink.OnOngoing(counters.Successful, counters.Performed, counters.Planned)
		}

		for _, target := range fresh {
			if ctx.Err() != nil {
				m.cancelled(summary)
				return
			}

			success, cancelled := m.convert(ctx, plan, target)
			if cancelled {
				m.cancelled(summary)
				return
			}

			attempted[target.DisplayName] = struct{}{}
			counters.Record(success)
			if success {
				summary.Targets = append(summary.Targets, models.TargetRef{ID: target.ID, Name: target.DisplayName})
			} else {
				log.Warn().Str("target", target.DisplayName).Msg("Migration entry failed")
			}
			m.sink.OnOngoing(counters.Successful, counters.Performed, counters.Planned)

			if err := m.sleep(ctx, m.config.EntryPause.Std()); err != nil {
				m.cancelled(summary)
				return
			}
		}

		full := len(page.Targets) >= m.config.PageSize && page.End == models.PageMore
		if !full {
			break
		}
		if len(fresh) == 0 {
			pageIndex++
		}

		log.Debug().Int("batch", batch+1).Int("page_index", pageIndex).Msg("Migration batch done")
		if err := m.sleep(ctx, m.config.BatchPause.Std()); err != nil {
			m.cancelled(summary)
			return
		}
	}

	m.sink.OnPhase(models.PhaseCompleted)
	summary.Status = models.StatusCompleted
	log.Info().
		Int("performed", counters.Performed).
		Int("successful", counters.Successful).
		Msg("Migration finished")
}

// convert runs the plan's pipeline for one entry. A failed step skips the rest.
func (m *MigrationRunner) convert(ctx context.Context, plan MigrationPlan, target models.Target) (success bool, cancelled bool) {
	for _, step := range plan.Steps {
		result := m.runner.Run(ctx, m.sink, step.Mode, target.ID, models.KindsOf(step.Kind), 0)
		if result.Cancelled {
			return false, true
		}
		if result.Outcome.Kind != models.OutcomeSuccess {
			return false, false
		}
	}
	return true, false
}

func (m *MigrationRunner) cancelled(summary *models.Summary) {
	m.sink.OnPhase(models.PhaseCancelled)
	summary.Status = models.StatusCancelled
	summary.Cancelled = true
}
