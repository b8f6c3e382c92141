package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/services/events"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Canceller sets the cancellation signal of the active operation
type Canceller interface {
	Cancel() bool
}

// WSMessage is the envelope of every message sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// HelloPayload is sent once to every client on connect
type HelloPayload struct {
	ServerInstanceID string `json:"serverInstanceId"` // Unique ID per server startup - clients clear state on change
	Version          string `json:"version"`
}

// WebSocketHandler streams progress events to connected clients. Losing the
// last client counts as losing the progress surface and can cancel the
// active operation.
type WebSocketHandler struct {
	logger             arbor.ILogger
	clients            map[*websocket.Conn]*sync.Mutex
	mu                 sync.RWMutex
	canceller          Canceller
	cancelOnDisconnect bool
	aggregator         *events.OngoingAggregator
	serverInstanceID   string
}

// NewWebSocketHandler creates the handler and subscribes it to every progress
// event type. Ongoing counters are throttled by OngoingThrottle; every other
// event flushes the held counters first so clients see them in order.
func NewWebSocketHandler(
	ctx context.Context,
	eventService interfaces.EventService,
	canceller Canceller,
	config *common.Config,
	logger arbor.ILogger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:             logger,
		clients:            make(map[*websocket.Conn]*sync.Mutex),
		canceller:          canceller,
		cancelOnDisconnect: config.Server.CancelOnDisconnect,
		serverInstanceID:   uuid.New().String(),
	}

	h.aggregator = events.NewOngoingAggregator(
		config.WebSocket.OngoingThrottle.Std(),
		func(ctx context.Context, payload events.OngoingPayload) {
			h.broadcast(string(interfaces.EventOngoing), payload)
		},
		logger,
	)
	h.aggregator.StartPeriodicFlush(ctx)

	logger.Info().
		Str("server_instance_id", h.serverInstanceID).
		Dur("ongoing_throttle", config.WebSocket.OngoingThrottle.Std()).
		Bool("cancel_on_disconnect", h.cancelOnDisconnect).
		Msg("WebSocket handler initialized")

	if eventService != nil {
		h.subscribe(eventService)
	}

	return h
}

func (h *WebSocketHandler) subscribe(eventService interfaces.EventService) {
	for _, eventType := range interfaces.AllEventTypes {
		if err := eventService.Subscribe(eventType, h.handleEvent); err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe WebSocket handler")
		}
	}
}

func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	if event.Type == interfaces.EventOngoing {
		payload, ok := event.Payload.(events.OngoingPayload)
		if !ok {
			return fmt.Errorf("unexpected ongoing payload %T", event.Payload)
		}
		h.aggregator.Record(ctx, payload)
		return nil
	}

	h.aggregator.FlushAll(ctx)
	h.broadcast(string(event.Type), event.Payload)
	return nil
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	mutex := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = mutex
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client connected")

	h.send(conn, mutex, "hello", HelloPayload{
		ServerInstanceID: h.serverInstanceID,
		Version:          common.GetVersion(),
	})

	// Handle client disconnection
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")

		if remaining == 0 && h.cancelOnDisconnect && h.canceller != nil && h.canceller.Cancel() {
			h.logger.Warn().Msg("Last progress client disconnected - active operation cancelled")
		}
	}()

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// broadcast sends one message to all connected clients
func (h *WebSocketHandler) broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, mutex := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, mutex)
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		if err := h.write(conn, mutexes[i], data); err != nil {
			h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to send message to client")
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, mutex *sync.Mutex, msgType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return
	}
	if err := h.write(conn, mutex, data); err != nil {
		h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to send message to client")
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, mutex *sync.Mutex, data []byte) error {
	mutex.Lock()
	defer mutex.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
