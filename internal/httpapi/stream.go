package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProgressEvent is one iteration snapshot broadcast to SSE subscribers.
type ProgressEvent struct {
	SolveID   string     `json:"solveId"`
	State     SolveState `json:"state"`
	Iteration int        `json:"iteration"`
	XNorm     float64    `json:"xNorm"`
	YNorm     float64    `json:"yNorm"`
	Timestamp time.Time  `json:"timestamp"`
}

// EventBroadcaster fans out ProgressEvents to SSE clients per solve ID,
// identical in structure to the teacher's stream.go broadcaster.
type EventBroadcaster struct {
	mu        sync.RWMutex
	clients   map[string]map[chan ProgressEvent]bool
	lastEvent map[string]ProgressEvent
}

// NewEventBroadcaster creates an empty broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients:   make(map[string]map[chan ProgressEvent]bool),
		lastEvent: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a client channel for a solve ID.
func (eb *EventBroadcaster) Subscribe(solveID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, 10)
	if eb.clients[solveID] == nil {
		eb.clients[solveID] = make(map[chan ProgressEvent]bool)
	}
	eb.clients[solveID][ch] = true

	if last, ok := eb.lastEvent[solveID]; ok {
		select {
		case ch <- last:
		default:
		}
	}
	return ch
}

// Unsubscribe removes and closes a client channel.
func (eb *EventBroadcaster) Unsubscribe(solveID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if clients, ok := eb.clients[solveID]; ok {
		delete(clients, ch)
		close(ch)
		if len(clients) == 0 {
			delete(eb.clients, solveID)
		}
	}
}

// Broadcast fans an event out to every subscriber for its solve ID,
// dropping it for any client whose buffer is full rather than blocking.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	eb.lastEvent[event.SolveID] = event
	clients, ok := eb.clients[event.SolveID]
	if !ok {
		return
	}
	for ch := range clients {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE channel full, dropping event", "solve_id", event.SolveID)
		}
	}
}

// CleanupSolve releases every subscriber and cached event for a solve ID.
func (eb *EventBroadcaster) CleanupSolve(solveID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if clients, ok := eb.clients[solveID]; ok {
		for ch := range clients {
			close(ch)
		}
		delete(eb.clients, solveID)
	}
	delete(eb.lastEvent, solveID)
}

// handleSolveStream serves GET /api/v1/solves/:id/stream as SSE.
func (s *Server) handleSolveStream(w http.ResponseWriter, r *http.Request, solveID string) {
	solve, exists := s.jobManager.GetSolve(solveID)
	if !exists {
		http.Error(w, "Solve not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	eventChan := s.jobManager.broadcaster.Subscribe(solveID)
	defer s.jobManager.broadcaster.Unsubscribe(solveID, eventChan)

	initial := ProgressEvent{
		SolveID:   solve.ID,
		State:     solve.State,
		Iteration: solve.Iterations,
		Timestamp: time.Now(),
	}
	if err := writeSSEEvent(w, initial); err != nil {
		slog.Error("failed to write initial SSE event", "error", err)
		return
	}
	flusher.Flush()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("failed to write SSE event", "error", err)
				return
			}
			flusher.Flush()
		case <-pingTicker.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal SSE event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
