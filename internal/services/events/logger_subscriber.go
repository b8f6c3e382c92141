package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs progress events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		switch payload := event.Payload.(type) {
		case OngoingPayload:
			logger.Debug().
				Int("successful", payload.Successful).
				Int("performed", payload.Performed).
				Int("planned", payload.Planned).
				Msg("Progress")
		case CooldownPayload:
			if payload.Remaining%10 == 0 {
				logger.Debug().Int("remaining", payload.Remaining).Msg("Cooldown")
			}
		case PhasePayload:
			logger.Debug().Str("phase", string(payload.Phase)).Msg("Phase changed")
		case QueuePayload:
			logger.Debug().Int("pending", len(payload.Pending)).Msg("Queue changed")
		case *models.Summary:
			logger.Info().
				Str("id", payload.ID).
				Str("kind", payload.Kind).
				Str("status", string(payload.Status)).
				Int("planned", payload.Counters.Planned).
				Int("performed", payload.Counters.Performed).
				Int("successful", payload.Counters.Successful).
				Bool("cancelled", payload.Cancelled).
				Msg("Operation finished")
		default:
			logger.Debug().Str("event_type", string(event.Type)).Msg("Event published")
		}
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all progress event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range interfaces.AllEventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(interfaces.AllEventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
