package models

import "fmt"

// OutcomeKind classifies the result of one relation action
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "SUCCESS"
	OutcomeThrottled OutcomeKind = "THROTTLED" // always retryable
	OutcomeFailed    OutcomeKind = "FAILED"    // terminal for the target
)

// ActionOutcome is the aggregate result of the requested relation kinds for one target
type ActionOutcome struct {
	Kind              OutcomeKind `json:"kind"`
	RetryAfterSeconds int         `json:"retry_after_seconds,omitempty"` // server hint, 0 when absent
	Cancelled         bool        `json:"-"`                             // remaining kinds were not issued
}

// Success returns a SUCCESS outcome
func Success() ActionOutcome { return ActionOutcome{Kind: OutcomeSuccess} }

// Failed returns a FAILED outcome
func Failed() ActionOutcome { return ActionOutcome{Kind: OutcomeFailed} }

// Interrupted returns the outcome of a target whose kinds were cut short by
// cancellation. It is neither a success nor a failure and must not be counted.
func Interrupted() ActionOutcome { return ActionOutcome{Cancelled: true} }

// Throttled returns a THROTTLED outcome with an optional retry hint
func Throttled(retryAfterSeconds int) ActionOutcome {
	return ActionOutcome{Kind: OutcomeThrottled, RetryAfterSeconds: retryAfterSeconds}
}

// AggregateOutcomes folds per-kind outcomes. An interrupted kind interrupts
// the target. Otherwise any THROTTLED makes the whole target THROTTLED, else
// any FAILED makes it FAILED, else SUCCESS.
func AggregateOutcomes(outcomes ...ActionOutcome) ActionOutcome {
	result := Success()
	for _, o := range outcomes {
		if o.Cancelled {
			return Interrupted()
		}
		switch o.Kind {
		case OutcomeThrottled:
			if result.Kind != OutcomeThrottled || o.RetryAfterSeconds > result.RetryAfterSeconds {
				result = o
			}
		case OutcomeFailed:
			if result.Kind == OutcomeSuccess {
				result = o
			}
		}
	}
	return result
}

// RunResult is the final result of a retried relation action. A cancelled
// run has no meaningful outcome and must not be counted.
type RunResult struct {
	Outcome   ActionOutcome
	Cancelled bool
	Attempts  int
}

// ThrottledError reports an HTTP 429 from the relation endpoint
type ThrottledError struct {
	Kind       RelationKind
	RetryAfter int
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s relation throttled (retry after %ds)", e.Kind, e.RetryAfter)
}

// TerminalActionError reports a permanent failure of one relation call
type TerminalActionError struct {
	Kind   RelationKind
	Status int
	Reason string
}

func (e *TerminalActionError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s relation failed: status %d: %s", e.Kind, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s relation failed: %s", e.Kind, e.Reason)
}

// OutcomeFromError maps a per-kind call error to an outcome
func OutcomeFromError(err error) ActionOutcome {
	switch e := err.(type) {
	case nil:
		return Success()
	case *ThrottledError:
		return Throttled(e.RetryAfter)
	default:
		return Failed()
	}
}
