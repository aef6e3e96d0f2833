package httpapi

import (
	"testing"
	"time"

	"github.com/cwbudde/prostsolve/internal/dispatch"
)

func gradientProblemDesc(n int) dispatch.ProblemDesc {
	perCoord := make([]dispatch.Coeffs, n)
	for i := range perCoord {
		perCoord[i] = dispatch.Coeffs{A: 1, B: -0.5, C: 1}
	}
	return dispatch.ProblemDesc{
		NRows:        n,
		NCols:        n,
		Blocks:       []dispatch.BlockDesc{{Kind: "gradient", Dims: []int{n}, Boundary: "neumann"}},
		G:            []dispatch.ProxDesc{{Kind: "separable1d", Idx: 0, Size: n, Fn: "square", DiagSteps: true, PerCoord: perCoord}},
		FStar:        []dispatch.ProxDesc{{Kind: "separable1d", Idx: 0, Size: n, Fn: "ind_box01", DiagSteps: true, Shared: dispatch.Coeffs{A: 5, B: 0.5, C: 1}}},
		Precond:      "alpha",
		PrecondAlpha: 1,
	}
}

func TestJobManager_CreateSolve(t *testing.T) {
	jm := NewJobManager()

	req := CreateSolveRequest{
		ProblemDesc: gradientProblemDesc(10),
		BackendDesc: dispatch.BackendDesc{Stepsize: "pdhg"},
		Options:     dispatch.Options{MaxIters: 100},
	}

	solve := jm.CreateSolve(req)

	if solve.ID == "" {
		t.Error("Solve ID should not be empty")
	}
	if solve.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", solve.State)
	}
	if solve.ProblemDesc.NRows != 10 {
		t.Errorf("ProblemDesc not set correctly")
	}
}

func TestJobManager_GetSolve(t *testing.T) {
	jm := NewJobManager()

	req := CreateSolveRequest{ProblemDesc: gradientProblemDesc(4), BackendDesc: dispatch.BackendDesc{Stepsize: "pdhg"}}
	solve := jm.CreateSolve(req)

	retrieved, exists := jm.GetSolve(solve.ID)
	if !exists {
		t.Error("Solve should exist")
	}
	if retrieved.ID != solve.ID {
		t.Error("Retrieved wrong solve")
	}

	_, exists = jm.GetSolve("nonexistent")
	if exists {
		t.Error("Should not find nonexistent solve")
	}
}

func TestJobManager_ListSolves(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListSolves()) != 0 {
		t.Error("Should start with no solves")
	}

	jm.CreateSolve(CreateSolveRequest{ProblemDesc: gradientProblemDesc(4)})
	jm.CreateSolve(CreateSolveRequest{ProblemDesc: gradientProblemDesc(4)})

	solves := jm.ListSolves()
	if len(solves) != 2 {
		t.Errorf("Expected 2 solves, got %d", len(solves))
	}
}

func TestJobManager_UpdateSolve(t *testing.T) {
	jm := NewJobManager()

	solve := jm.CreateSolve(CreateSolveRequest{ProblemDesc: gradientProblemDesc(4)})

	ok := jm.UpdateSolve(solve.ID, func(s *Solve) {
		s.State = StateRunning
		s.Iterations = 10
	})
	if !ok {
		t.Error("Update should succeed")
	}

	updated, _ := jm.GetSolve(solve.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Iterations != 10 {
		t.Error("Iterations should be updated")
	}

	ok = jm.UpdateSolve("nonexistent", func(s *Solve) {})
	if ok {
		t.Error("Update of nonexistent solve should fail")
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	solve := jm.CreateSolve(CreateSolveRequest{ProblemDesc: gradientProblemDesc(4)})

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(iteration int) {
			jm.UpdateSolve(solve.ID, func(s *Solve) {
				s.Iterations = iteration
				time.Sleep(time.Millisecond)
			})
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	_, exists := jm.GetSolve(solve.ID)
	if !exists {
		t.Error("Solve should still exist after concurrent updates")
	}
}
