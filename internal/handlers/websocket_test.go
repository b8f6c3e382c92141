package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
	"github.com/ternarybob/engel/internal/services/events"
)

type countingCanceller struct {
	calls atomic.Int32
}

func (c *countingCanceller) Cancel() bool {
	c.calls.Add(1)
	return true
}

type rawMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsFixture struct {
	events    interfaces.EventService
	handler   *WebSocketHandler
	canceller *countingCanceller
	url       string
}

func newWSFixture(t *testing.T, throttle time.Duration, cancelOnDisconnect bool) *wsFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	config := common.NewDefaultConfig()
	config.WebSocket.OngoingThrottle = common.Duration(throttle)
	config.Server.CancelOnDisconnect = cancelOnDisconnect

	logger := arbor.NewNoOpLogger()
	eventService := events.NewService(logger)
	canceller := &countingCanceller{}
	handler := NewWebSocketHandler(ctx, eventService, canceller, config, logger)

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	return &wsFixture{
		events:    eventService,
		handler:   handler,
		canceller: canceller,
		url:       "ws" + strings.TrimPrefix(server.URL, "http"),
	}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)

	hello := readMessage(t, conn)
	require.Equal(t, "hello", hello.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg rawMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_BroadcastsProgressEvents(t *testing.T) {
	f := newWSFixture(t, 0, false)
	conn := f.dial(t)
	defer conn.Close()

	sink := events.NewSink(f.events)
	sink.OnPhase(models.PhaseExecuting)
	sink.OnOngoing(1, 2, 5)
	sink.OnCooldown(42)

	phase := readMessage(t, conn)
	assert.Equal(t, "phase", phase.Type)
	assert.JSONEq(t, `{"phase":"EXECUTING"}`, string(phase.Payload))

	ongoing := readMessage(t, conn)
	assert.Equal(t, "ongoing", ongoing.Type)
	assert.JSONEq(t, `{"successful":1,"performed":2,"planned":5}`, string(ongoing.Payload))

	cooldown := readMessage(t, conn)
	assert.Equal(t, "cooldown", cooldown.Type)
	assert.JSONEq(t, `{"remaining":42}`, string(cooldown.Payload))
}

func TestWebSocket_ThrottledOngoingFlushedBeforeFinished(t *testing.T) {
	f := newWSFixture(t, time.Hour, false)
	conn := f.dial(t)
	defer conn.Close()

	sink := events.NewSink(f.events)
	sink.OnOngoing(0, 1, 3)
	sink.OnOngoing(1, 2, 3)
	sink.OnOngoing(2, 3, 3)
	sink.OnFinished(&models.Summary{ID: "job-1", Kind: models.SummaryKindJob, Status: models.StatusCompleted})

	first := readMessage(t, conn)
	assert.Equal(t, "ongoing", first.Type)
	assert.JSONEq(t, `{"successful":0,"performed":1,"planned":3}`, string(first.Payload))

	// Only the latest held counters survive the throttle
	last := readMessage(t, conn)
	assert.Equal(t, "ongoing", last.Type)
	assert.JSONEq(t, `{"successful":2,"performed":3,"planned":3}`, string(last.Payload))

	finished := readMessage(t, conn)
	assert.Equal(t, "finished", finished.Type)
	var summary models.Summary
	require.NoError(t, json.Unmarshal(finished.Payload, &summary))
	assert.Equal(t, "job-1", summary.ID)
	assert.Equal(t, models.StatusCompleted, summary.Status)
}

func TestWebSocket_LastClientDisconnectCancels(t *testing.T) {
	f := newWSFixture(t, 0, true)

	first := f.dial(t)
	second := f.dial(t)
	require.Equal(t, 2, f.handler.ClientCount())

	first.Close()
	require.Eventually(t, func() bool { return f.handler.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), f.canceller.calls.Load())

	second.Close()
	require.Eventually(t, func() bool { return f.canceller.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_DisconnectWithoutCancelOption(t *testing.T) {
	f := newWSFixture(t, 0, false)

	conn := f.dial(t)
	conn.Close()

	require.Eventually(t, func() bool { return f.handler.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), f.canceller.calls.Load())
}
