package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// OngoingAggregator throttles ongoing counter events for slow consumers.
// The first event of a burst is forwarded immediately, later ones are held
// and only the latest is forwarded on the next periodic flush.
type OngoingAggregator struct {
	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
	pending  *OngoingPayload

	// Callback to forward counters (e.g. WebSocket broadcast)
	onFlush func(ctx context.Context, payload OngoingPayload)

	logger arbor.ILogger
}

// NewOngoingAggregator creates an aggregator. A zero interval forwards every event.
func NewOngoingAggregator(
	interval time.Duration,
	onFlush func(ctx context.Context, payload OngoingPayload),
	logger arbor.ILogger,
) *OngoingAggregator {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &OngoingAggregator{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		onFlush:  onFlush,
		logger:   logger,
	}
}

// Record forwards payload now if the rate allows, otherwise holds it
func (a *OngoingAggregator) Record(ctx context.Context, payload OngoingPayload) {
	a.mu.Lock()
	if !a.limiter.Allow() {
		a.pending = &payload
		a.mu.Unlock()
		return
	}
	a.pending = nil
	a.mu.Unlock()

	a.safeOnFlush(ctx, payload)
}

// FlushAll forwards the held payload, if any. Used before terminal events so
// the last counters arrive ahead of the summary.
func (a *OngoingAggregator) FlushAll(ctx context.Context) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if pending != nil {
		a.safeOnFlush(ctx, *pending)
	}
}

// safeOnFlush wraps onFlush with panic recovery to prevent crashes
func (a *OngoingAggregator) safeOnFlush(ctx context.Context, payload OngoingPayload) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Int("performed", payload.Performed).
				Msg("PANIC in OngoingAggregator.onFlush - recovered")
		}
	}()
	a.onFlush(ctx, payload)
}

// StartPeriodicFlush starts a background goroutine that forwards held payloads every interval
func (a *OngoingAggregator) StartPeriodicFlush(ctx context.Context) {
	if a.interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				a.FlushAll(context.Background())
				return
			case <-ticker.C:
				a.FlushAll(ctx)
			}
		}
	}()
}
