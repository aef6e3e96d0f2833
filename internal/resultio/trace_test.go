package resultio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTraceWriterWriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	solveID := "solve-trace-1"

	writer, err := NewTraceWriter(tmpDir, solveID)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}

	entries := []TraceEntry{
		{Iteration: 0, XNorm: 1.0, YNorm: 1.0, Timestamp: time.Now()},
		{Iteration: 50, XNorm: 0.1, YNorm: 0.2, Timestamp: time.Now()},
		{Iteration: 100, XNorm: 0.01, YNorm: 0.02, Timestamp: time.Now()},
	}
	for _, e := range entries {
		if err := writer.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tracePath := filepath.Join(tmpDir, "solves", solveID, "trace.jsonl")
	if _, err := os.Stat(tracePath); err != nil {
		t.Fatalf("trace file not created: %v", err)
	}

	reader, err := NewTraceReader(tmpDir, solveID)
	if err != nil {
		t.Fatalf("NewTraceReader: %v", err)
	}
	defer reader.Close()

	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range got {
		if e.Iteration != entries[i].Iteration {
			t.Errorf("entry %d: iteration = %d, want %d", i, e.Iteration, entries[i].Iteration)
		}
	}
}

func TestTraceReaderNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := NewTraceReader(tmpDir, "missing-solve")
	if !errors.Is(err, &NotFoundError{}) {
		t.Errorf("got %v, want NotFoundError", err)
	}
}
