package engine

import (
	"context"
	"sync"

	"github.com/ternarybob/engel/internal/models"
)

// OperationState says which long-running operation, if any, is active
type OperationState int

const (
	StateIdle OperationState = iota
	StateQueueRunning
	StateMigrationRunning
)

func (s OperationState) String() string {
	switch s {
	case StateQueueRunning:
		return "QUEUE_RUNNING"
	case StateMigrationRunning:
		return "MIGRATION_RUNNING"
	}
	return "IDLE"
}

// MarshalText lets the state appear by name in JSON
func (s OperationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OperationLock admits at most one queue drain or migration at a time
type OperationLock struct {
	mu    sync.Mutex
	state OperationState
}

// TryAcquire moves the lock from IDLE to state. It fails when another
// operation holds it.
func (l *OperationLock) TryAcquire(state OperationState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateIdle {
		return false
	}
	l.state = state
	return true
}

// Release returns the lock to IDLE if state holds it
func (l *OperationLock) Release(state OperationState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == state {
		l.state = StateIdle
	}
}

// State returns the current holder
func (l *OperationLock) State() OperationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// CancellationSignal is the cancellation token of the active operation.
// Once set it stays set until the operation unwinds and clears it.
type CancellationSignal struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	set    bool
}

// Begin returns the context the next operation runs under
func (s *CancellationSignal) Begin(parent context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.set = false
	return ctx
}

// Cancel sets the signal. It is ignored when no operation is active.
func (s *CancellationSignal) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}
	s.set = true
	s.cancel()
	return true
}

// IsSet reports whether cancellation was requested for the active operation
func (s *CancellationSignal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Clear resets the signal for the next operation
func (s *CancellationSignal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.set = false
}

// Coordinator pairs the shared lock with the cancellation signal. The queue
// and migrations share one coordinator so they exclude each other.
type Coordinator struct {
	lock   OperationLock
	signal CancellationSignal
}

// NewCoordinator creates an idle coordinator
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Start acquires the lock for state and returns the operation's context
func (c *Coordinator) Start(parent context.Context, state OperationState) (context.Context, error) {
	if !c.lock.TryAcquire(state) {
		return nil, models.ErrOperationActive
	}
	return c.signal.Begin(parent), nil
}

// Finish clears the signal and releases the lock held for state
func (c *Coordinator) Finish(state OperationState) {
	c.signal.Clear()
	c.lock.Release(state)
}

// Cancel requests cancellation of the active operation
func (c *Coordinator) Cancel() bool {
	return c.signal.Cancel()
}

// Cancelled reports whether the active operation was asked to stop
func (c *Coordinator) Cancelled() bool {
	return c.signal.IsSet()
}

// State returns the active operation
func (c *Coordinator) State() OperationState {
	return c.lock.State()
}
