package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/cwbudde/prostsolve/internal/dispatch"
)

func TestRunSolve_Success(t *testing.T) {
	tmpDir := t.TempDir()

	jm := NewJobManager()
	req := CreateSolveRequest{
		ProblemDesc: gradientProblemDesc(10),
		BackendDesc: dispatch.BackendDesc{Stepsize: "pdhg"},
		Options:     dispatch.Options{MaxIters: 50},
	}
	solve := jm.CreateSolve(req)

	err := runSolve(context.Background(), jm, tmpDir, solve.ID)
	if err != nil {
		t.Errorf("runSolve should succeed: %v", err)
	}

	updated, _ := jm.GetSolve(solve.ID)
	if updated.State != StateCompleted {
		t.Errorf("Solve should be completed, got %s", updated.State)
	}
	if updated.Result == nil {
		t.Fatal("Result should be set")
	}
	if len(updated.Result.X) != 10 {
		t.Errorf("Expected 10 X values, got %d", len(updated.Result.X))
	}
}

func TestRunSolve_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()

	jm := NewJobManager()
	pd := gradientProblemDesc(10)
	pd.Blocks[0].Kind = "not_a_real_block_kind"

	req := CreateSolveRequest{
		ProblemDesc: pd,
		BackendDesc: dispatch.BackendDesc{Stepsize: "pdhg"},
		Options:     dispatch.Options{MaxIters: 50},
	}
	solve := jm.CreateSolve(req)

	err := runSolve(context.Background(), jm, tmpDir, solve.ID)
	if err == nil {
		t.Error("runSolve should fail with an unrecognized block kind")
	}

	updated, _ := jm.GetSolve(solve.ID)
	if updated.State != StateFailed {
		t.Errorf("Solve should be failed, got %s", updated.State)
	}
	if updated.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestRunSolve_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	jm := NewJobManager()

	err := runSolve(context.Background(), jm, tmpDir, "nonexistent")
	if err == nil {
		t.Error("runSolve should fail for an unregistered solve ID")
	}
}

func TestRunSolve_BroadcastsProgress(t *testing.T) {
	tmpDir := t.TempDir()
	jm := NewJobManager()

	req := CreateSolveRequest{
		ProblemDesc: gradientProblemDesc(10),
		BackendDesc: dispatch.BackendDesc{Stepsize: "pdhg"},
		Options:     dispatch.Options{MaxIters: 50},
	}
	solve := jm.CreateSolve(req)

	ch := jm.broadcaster.Subscribe(solve.ID)
	defer jm.broadcaster.Unsubscribe(solve.ID, ch)

	done := make(chan error, 1)
	go func() {
		done <- runSolve(context.Background(), jm, tmpDir, solve.ID)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runSolve failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runSolve did not complete in time")
	}

	sawCompleted := false
	for {
		select {
		case ev := <-ch:
			if ev.State == StateCompleted {
				sawCompleted = true
			}
		default:
			if !sawCompleted {
				t.Error("expected at least one completed progress event")
			}
			return
		}
	}
}
