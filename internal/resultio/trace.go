package resultio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceEntry is one scheduled-callback snapshot during a solve. The
// intermediate callback only ever receives (iteration, x, y) per the
// dispatch contract, so the trace records their norms rather than the
// backend's internal residuals, which aren't visible at the callback site.
type TraceEntry struct {
	Iteration int       `json:"iteration"`
	XNorm     float64   `json:"xNorm"`
	YNorm     float64   `json:"yNorm"`
	Timestamp time.Time `json:"timestamp"`
}

// TraceWriter appends TraceEntry records to a JSONL file scoped to one
// solve ID, buffered the same way the teacher's store.TraceWriter is.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter creates trace.jsonl under <baseDir>/solves/<solveID>/.
func NewTraceWriter(baseDir, solveID string) (*TraceWriter, error) {
	dir := solveDir(baseDir, solveID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("resultio: create solve directory: %w", err)
	}

	path := filepath.Join(dir, "trace.jsonl")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("resultio: open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends one trace entry; buffered until Flush or Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("resultio: marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("resultio: write trace entry: %w", err)
	}
	return tw.writer.WriteByte('\n')
}

// Flush writes buffered data to disk.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.writer.Flush()
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("resultio: flush on close: %w", err)
	}
	return tw.file.Close()
}

// Path returns the trace file's filesystem path.
func (tw *TraceWriter) Path() string { return tw.path }

// TraceReader reads TraceEntry records back from a JSONL file.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens trace.jsonl for a solve ID.
func NewTraceReader(baseDir, solveID string) (*TraceReader, error) {
	path := filepath.Join(solveDir(baseDir, solveID), "trace.jsonl")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{SolveID: solveID}
		}
		return nil, fmt.Errorf("resultio: open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF when exhausted.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("resultio: scan trace line: %w", err)
		}
		return nil, io.EOF
	}
	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("resultio: unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll drains every remaining entry.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Close closes the underlying file.
func (tr *TraceReader) Close() error {
	return tr.file.Close()
}
