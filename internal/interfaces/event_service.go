package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventOngoing  EventType = "ongoing"
	EventCooldown EventType = "cooldown"
	EventPhase    EventType = "phase"
	EventFinished EventType = "finished"
	EventQueue    EventType = "queue"
)

// AllEventTypes lists every progress event type
var AllEventTypes = []EventType{EventOngoing, EventCooldown, EventPhase, EventFinished, EventQueue}

// Event represents a system event
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
