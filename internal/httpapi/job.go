// Package httpapi exposes solve_problem over HTTP: one Solve per
// background goroutine, an SSE progress stream, and a small HTML
// dashboard. Adapted from the teacher's internal/server package, with
// "Job" renamed to "Solve" throughout since a Solve here is one
// dispatch.SolveProblem run rather than an image-fitting job.
package httpapi

import (
	"sync"
	"time"

	"github.com/cwbudde/prostsolve/internal/dispatch"
	"github.com/google/uuid"
)

// SolveState is the lifecycle state of a background Solve.
type SolveState string

const (
	StatePending   SolveState = "pending"
	StateRunning   SolveState = "running"
	StateCompleted SolveState = "completed"
	StateFailed    SolveState = "failed"
	StateCancelled SolveState = "cancelled"
)

// CreateSolveRequest is the POST /api/v1/solves request body.
type CreateSolveRequest struct {
	ProblemDesc dispatch.ProblemDesc `json:"problem_desc"`
	BackendDesc dispatch.BackendDesc `json:"backend_desc"`
	Options     dispatch.Options     `json:"options"`
}

// Solve tracks one background solve_problem invocation.
type Solve struct {
	ID          string                `json:"id"`
	State       SolveState            `json:"state"`
	ProblemDesc dispatch.ProblemDesc  `json:"problemDesc"`
	BackendDesc dispatch.BackendDesc  `json:"backendDesc"`
	Options     dispatch.Options      `json:"options"`
	Result      *dispatch.SolveResult `json:"result,omitempty"`
	Iterations  int                   `json:"iterations"`
	StartTime   time.Time             `json:"startTime"`
	EndTime     *time.Time            `json:"endTime,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// JobManager manages the lifecycle of background Solves (named after the
// teacher's JobManager; "solve" is this module's unit of work).
type JobManager struct {
	mu          sync.RWMutex
	solves      map[string]*Solve
	broadcaster *EventBroadcaster
}

// NewJobManager creates an empty solve registry.
func NewJobManager() *JobManager {
	return &JobManager{
		solves:      make(map[string]*Solve),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateSolve registers a new pending Solve and returns it.
func (jm *JobManager) CreateSolve(req CreateSolveRequest) *Solve {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	s := &Solve{
		ID:          uuid.New().String(),
		State:       StatePending,
		ProblemDesc: req.ProblemDesc,
		BackendDesc: req.BackendDesc,
		Options:     req.Options,
		StartTime:   time.Now(),
	}
	jm.solves[s.ID] = s
	return s
}

// GetSolve retrieves a Solve by ID.
func (jm *JobManager) GetSolve(id string) (*Solve, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	s, ok := jm.solves[id]
	return s, ok
}

// ListSolves returns every tracked Solve.
func (jm *JobManager) ListSolves() []*Solve {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	out := make([]*Solve, 0, len(jm.solves))
	for _, s := range jm.solves {
		out = append(out, s)
	}
	return out
}

// UpdateSolve atomically mutates a tracked Solve.
func (jm *JobManager) UpdateSolve(id string, fn func(*Solve)) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	s, ok := jm.solves[id]
	if !ok {
		return false
	}
	fn(s)
	return true
}
