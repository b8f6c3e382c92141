package events

import (
	"context"

	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

// Sink adapts the event bus to the engine's ProgressSink
type Sink struct {
	events interfaces.EventService
}

// NewSink creates a progress sink publishing to events
func NewSink(events interfaces.EventService) *Sink {
	return &Sink{events: events}
}

func (s *Sink) publish(eventType interfaces.EventType, payload interface{}) {
	// Handler errors are logged by the service
	_ = s.events.PublishSync(context.Background(), interfaces.Event{Type: eventType, Payload: payload})
}

func (s *Sink) OnOngoing(successful, performed, planned int) {
	s.publish(interfaces.EventOngoing, OngoingPayload{Successful: successful, Performed: performed, Planned: planned})
}

func (s *Sink) OnCooldown(remainingSeconds int) {
	s.publish(interfaces.EventCooldown, CooldownPayload{Remaining: remainingSeconds})
}

func (s *Sink) OnPhase(phase models.Phase) {
	s.publish(interfaces.EventPhase, PhasePayload{Phase: phase})
}

func (s *Sink) OnFinished(summary *models.Summary) {
	s.publish(interfaces.EventFinished, summary)
}

func (s *Sink) OnQueueSnapshot(pending []models.JobInfo) {
	if pending == nil {
		pending = []models.JobInfo{}
	}
	s.publish(interfaces.EventQueue, QueuePayload{Pending: pending})
}
