package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestEventBroadcaster(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("solve1")
	defer eb.Unsubscribe("solve1", ch)

	event := ProgressEvent{
		SolveID:   "solve1",
		State:     StateRunning,
		Iteration: 10,
		XNorm:     1.5,
		YNorm:     0.75,
		Timestamp: time.Now(),
	}
	eb.Broadcast(event)

	select {
	case received := <-ch:
		if received.SolveID != "solve1" {
			t.Errorf("Expected solveID solve1, got %s", received.SolveID)
		}
		if received.Iteration != 10 {
			t.Errorf("Expected iteration 10, got %d", received.Iteration)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for event")
	}

	eb.CleanupSolve("solve1")
}

func TestEventBroadcaster_ReplaysLastEventToNewSubscriber(t *testing.T) {
	eb := NewEventBroadcaster()

	eb.Broadcast(ProgressEvent{SolveID: "solve2", State: StateRunning, Iteration: 3})

	ch := eb.Subscribe("solve2")
	defer eb.Unsubscribe("solve2", ch)

	select {
	case received := <-ch:
		if received.Iteration != 3 {
			t.Errorf("Expected replayed iteration 3, got %d", received.Iteration)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for replayed event")
	}
}

func TestServer_SolveStream_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewServer(":0", tmpDir)

	req := httptest.NewRequest("GET", "/api/v1/solves/nonexistent/stream", nil)
	w := httptest.NewRecorder()

	s.handleSolveStream(w, req, "nonexistent")

	if w.Code != 404 {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
