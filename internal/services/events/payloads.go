package events

import "github.com/ternarybob/engel/internal/models"

// OngoingPayload carries the live counters of the running job or migration
type OngoingPayload struct {
	Successful int `json:"successful"`
	Performed  int `json:"performed"`
	Planned    int `json:"planned"`
}

// CooldownPayload carries the seconds left in a throttle cooldown
type CooldownPayload struct {
	Remaining int `json:"remaining"`
}

// PhasePayload carries a state machine transition
type PhasePayload struct {
	Phase models.Phase `json:"phase"`
}

// QueuePayload carries the pending jobs
type QueuePayload struct {
	Pending []models.JobInfo `json:"pending"`
}
