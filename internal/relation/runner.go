package relation

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

// SleepFunc waits for d unless ctx ends first
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner wraps an ActionExecutor with throttle detection, cooldown waits
// and bounded retry. Only THROTTLED outcomes are retried.
type Runner struct {
	executor    interfaces.ActionExecutor
	maxAttempts int
	cooldown    time.Duration
	sleep       SleepFunc
	logger      arbor.ILogger
}

// NewRunner creates a runner using the relation config for retry bounds
func NewRunner(executor interfaces.ActionExecutor, cfg common.RelationConfig, logger arbor.ILogger) *Runner {
	return &Runner{
		executor:    executor,
		maxAttempts: cfg.MaxAttempts,
		cooldown:    cfg.Cooldown.Std(),
		sleep:       common.SleepContext,
		logger:      logger,
	}
}

// WithSleep replaces the cooldown tick function
func (r *Runner) WithSleep(sleep SleepFunc) *Runner {
	r.sleep = sleep
	return r
}

// Run performs the action, waiting out throttles between attempts.
// maxAttempts <= 0 uses the configured bound. Cancellation is observed
// before each attempt and on every cooldown tick.
func (r *Runner) Run(ctx context.Context, sink interfaces.ProgressSink, mode models.Mode, targetID string, kinds models.Kinds, maxAttempts int) models.RunResult {
	if maxAttempts <= 0 {
		maxAttempts = r.maxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	result := models.RunResult{}
	for {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result
		}

		result.Attempts++
		outcome := r.executor.Perform(ctx, mode, targetID, kinds)
		if outcome.Cancelled {
			result.Cancelled = true
			return result
		}
		result.Outcome = outcome

		if outcome.Kind != models.OutcomeThrottled {
			return result
		}

		if result.Attempts >= maxAttempts {
			r.logger.Warn().
				Str("target_id", targetID).
				Int("attempts", result.Attempts).
				Msg("Giving up after repeated throttling")
			result.Outcome = models.Failed()
			return result
		}

		if !r.waitCooldown(ctx, sink, r.cooldownSeconds(outcome)) {
			result.Cancelled = true
			return result
		}
	}
}

func (r *Runner) cooldownSeconds(outcome models.ActionOutcome) int {
	if outcome.RetryAfterSeconds > 0 {
		return outcome.RetryAfterSeconds
	}
	return int((r.cooldown + time.Second - 1) / time.Second)
}

// waitCooldown counts down one second at a time. Returns false when
// cancelled during the wait.
func (r *Runner) waitCooldown(ctx context.Context, sink interfaces.ProgressSink, seconds int) bool {
	r.logger.Info().Int("seconds", seconds).Msg("Throttled, cooling down")

	if sink != nil {
		sink.OnPhase(models.PhaseCooldown)
		defer sink.OnPhase(models.PhaseExecuting)
	}

	for remaining := seconds; remaining > 0; remaining-- {
		if sink != nil {
			sink.OnCooldown(remaining)
		}
		if err := r.sleep(ctx, time.Second); err != nil || ctx.Err() != nil {
			r.logger.Info().Int("remaining", remaining).Msg("Cooldown cancelled")
			return false
		}
	}

	if sink != nil {
		sink.OnCooldown(0)
	}
	return true
}
