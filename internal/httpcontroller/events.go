package httpcontroller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jtoivola/fretwatch-go/internal/analysis/detector"
	"github.com/jtoivola/fretwatch-go/internal/observability"
)

const (
	sseClientBuffer = 100
	sseHeartbeat    = 30 * time.Second
)

// EventHub fans detection events out to connected SSE clients. It satisfies
// the processor's event sink.
type EventHub struct {
	clients map[chan detector.Event]bool
	mu      sync.Mutex
	closed  bool
	metrics *observability.Metrics
}

// NewEventHub creates an empty hub. metrics may be nil.
func NewEventHub(m *observability.Metrics) *EventHub {
	return &EventHub{
		clients: make(map[chan detector.Event]bool),
		metrics: m,
	}
}

// Broadcast delivers the event to every connected client. Clients with a
// full buffer are skipped rather than blocked on.
func (h *EventHub) Broadcast(event detector.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for clientChan := range h.clients {
		select {
		case clientChan <- event:
		default:
		}
	}
}

// Close disconnects every client. Further subscriptions are rejected.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for clientChan := range h.clients {
		delete(h.clients, clientChan)
		close(clientChan)
	}
}

func (h *EventHub) subscribe() (chan detector.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}
	clientChan := make(chan detector.Event, sseClientBuffer)
	h.clients[clientChan] = true
	if h.metrics != nil {
		h.metrics.HTTP.AddSSEClient(1)
	}
	return clientChan, true
}

func (h *EventHub) unsubscribe(clientChan chan detector.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientChan]; !ok {
		return
	}
	delete(h.clients, clientChan)
	close(clientChan)
	if h.metrics != nil {
		h.metrics.HTTP.AddSSEClient(-1)
	}
}

// serveSSE streams detection events to the client.
// API: GET /api/v1/events
func (s *Server) serveSSE(c echo.Context) error {
	clientChan, ok := s.Hub.subscribe()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is shutting down")
	}
	defer s.Hub.unsubscribe(clientChan)

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, open := <-clientChan:
			if !open {
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("failed to marshal event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
				return err
			}
			c.Response().Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(c.Response(), ":\n\n"); err != nil {
				return err
			}
			c.Response().Flush()
		}
	}
}
