package resultio

import (
	"errors"
	"testing"
	"time"
)

func TestSaveAndLoadResult(t *testing.T) {
	tmpDir := t.TempDir()
	solveID := "solve-abc"

	want := &Result{
		SolveID:      solveID,
		X:            []float64{1, 2, 3},
		Y:            []float64{4, 5, 6},
		ResultString: "Converged",
		Iterations:   42,
		CreatedAt:    time.Now().Truncate(time.Second),
	}

	if err := SaveResult(tmpDir, solveID, want); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := LoadResult(tmpDir, solveID)
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}

	if got.ResultString != want.ResultString || got.Iterations != want.Iterations {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.X) != len(want.X) || len(got.Y) != len(want.Y) {
		t.Errorf("X/Y length mismatch: got %+v", got)
	}
}

func TestLoadResultNotFound(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := LoadResult(tmpDir, "does-not-exist")
	if !errors.Is(err, &NotFoundError{}) {
		t.Errorf("got %v, want NotFoundError", err)
	}
}

func TestSaveResultRequiresSolveID(t *testing.T) {
	tmpDir := t.TempDir()
	if err := SaveResult(tmpDir, "", &Result{}); err == nil {
		t.Error("expected error for empty solveID")
	}
}
