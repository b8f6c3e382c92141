package engine

import (
	"context"
	"iter"
	"sync"

	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

type fakeIdentifier struct {
	err error
}

func (f *fakeIdentifier) Identify(ctx context.Context) (*models.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Client{Name: "me", ID: "1"}, nil
}

// sliceSource yields fixed targets; a non-nil resolve overrides them
type sliceSource struct {
	targets []models.Target
	resolve func(ctx context.Context, job *models.Job) iter.Seq[models.Target]
}

func (s *sliceSource) Resolve(ctx context.Context, job *models.Job) iter.Seq[models.Target] {
	if s.resolve != nil {
		return s.resolve(ctx, job)
	}
	return func(yield func(models.Target) bool) {
		for _, target := range s.targets {
			if !yield(target) {
				return
			}
		}
	}
}

type mapResolver map[string]string

func (m mapResolver) ResolveID(ctx context.Context, name string) string {
	if id, ok := m[name]; ok {
		return id
	}
	return "0"
}

type runCall struct {
	Mode     models.Mode
	TargetID string
	Kinds    models.Kinds
}

// funcRunner records calls and delegates the result to fn
type funcRunner struct {
	mu    sync.Mutex
	calls []runCall
	fn    func(ctx context.Context, call runCall) models.RunResult
}

func (r *funcRunner) Run(ctx context.Context, sink interfaces.ProgressSink, mode models.Mode, targetID string, kinds models.Kinds, maxAttempts int) models.RunResult {
	call := runCall{Mode: mode, TargetID: targetID, Kinds: kinds}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	if r.fn == nil {
		return models.RunResult{Outcome: models.Success(), Attempts: 1}
	}
	return r.fn(ctx, call)
}

func (r *funcRunner) Calls() []runCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runCall(nil), r.calls...)
}

type ongoing struct {
	Successful, Performed, Planned int
}

// recordingSink captures every progress callback
type recordingSink struct {
	mu        sync.Mutex
	phases    []models.Phase
	ongoing   []ongoing
	finished  []*models.Summary
	snapshots [][]models.JobInfo
}

func (s *recordingSink) OnOngoing(successful, performed, planned int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ongoing = append(s.ongoing, ongoing{successful, performed, planned})
}

func (s *recordingSink) OnCooldown(remaining int) {}

func (s *recordingSink) OnPhase(phase models.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases = append(s.phases, phase)
}

func (s *recordingSink) OnFinished(summary *models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, summary)
}

func (s *recordingSink) OnQueueSnapshot(pending []models.JobInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, pending)
}

func (s *recordingSink) Phases() []models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Phase(nil), s.phases...)
}

func (s *recordingSink) Ongoing() []ongoing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ongoing(nil), s.ongoing...)
}

func (s *recordingSink) Finished() []*models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Summary(nil), s.finished...)
}

// memorySummaries is an in-memory SummaryStorage
type memorySummaries struct {
	mu    sync.Mutex
	saved map[string]*models.Summary
}

func (m *memorySummaries) SaveSummary(ctx context.Context, summary *models.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]*models.Summary)
	}
	m.saved[summary.ID] = summary
	return nil
}

func (m *memorySummaries) GetSummary(ctx context.Context, id string) (*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if summary, ok := m.saved[id]; ok {
		return summary, nil
	}
	return nil, models.ErrNotFound
}

func (m *memorySummaries) ListSummaries(ctx context.Context, limit int) ([]*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Summary
	for _, summary := range m.saved {
		out = append(out, summary)
	}
	return out, nil
}
