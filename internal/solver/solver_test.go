package solver

import (
	"context"
	"testing"

	"github.com/cwbudde/prostsolve/internal/backend"
	"github.com/cwbudde/prostsolve/internal/linop"
	"github.com/cwbudde/prostsolve/internal/problem"
	"github.com/cwbudde/prostsolve/internal/prox"
)

func buildTestProblem(t *testing.T, n int) *problem.Problem[float64] {
	t.Helper()
	k := linop.NewLinearOperator[float64](n, n)
	grad := linop.NewGradient[float64](0, 0, []int{n}, linop.BoundaryNeumann)
	if err := k.AddBlock(grad); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if err := k.Initialize(linop.PrecondConfig{Exponents: []float64{1}}); err != nil {
		t.Fatalf("Initialize operator: %v", err)
	}

	g := prox.NewSeparable1D[float64](0, n, prox.Square, true)
	g.PerCoord = make([]prox.Coeffs, n)
	for i := range g.PerCoord {
		g.PerCoord[i] = prox.Coeffs{A: 1, B: -0.5, C: 1}
	}
	fStar := prox.NewSeparable1D[float64](0, n, prox.IndBox01, true)
	fStar.Shared = prox.Coeffs{A: 1 / (2 * 0.1), B: 0.5, C: 1}

	prob := problem.New[float64](k, []prox.Prox[float64]{g}, []prox.Prox[float64]{fStar}, problem.PrecondAlpha, 1)
	if err := prob.Initialize(); err != nil {
		t.Fatalf("Problem.Initialize: %v", err)
	}
	return prob
}

func TestBuildSchedule(t *testing.T) {
	s := buildSchedule(100, 5)
	want := []int{0, 24, 49, 74, 99}
	for _, w := range want {
		if !s[w] {
			t.Errorf("schedule missing expected point %d: %v", w, s)
		}
	}
	if len(s) != len(want) {
		t.Errorf("schedule has %d points, want %d: %v", len(s), len(want), s)
	}

	if s := buildSchedule(100, 1); len(s) != 0 {
		t.Errorf("numCbackCalls=1 should disable scheduling, got %v", s)
	}
	if s := buildSchedule(100, 0); len(s) != 0 {
		t.Errorf("numCbackCalls=0 should disable scheduling, got %v", s)
	}
}

func TestSolveRunsToMaxIters(t *testing.T) {
	n := 20
	prob := buildTestProblem(t, n)
	be, err := backend.New[float64](prob, backend.DefaultOptions[float64](), nil, nil)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	opts := Options[float64]{MaxIters: 50, NumCbackCalls: 5}
	result, err := Solve[float64](context.Background(), prob, be, opts)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(result.X) != n {
		t.Errorf("len(X) = %d, want %d", len(result.X), n)
	}
	if result.Stop != StoppedMaxIters && result.Stop != Converged {
		t.Errorf("Stop = %v, want StoppedMaxIters or Converged", result.Stop)
	}
}

func TestSolveSwapsOrientationWhenDualized(t *testing.T) {
	n := 20
	prob := buildTestProblem(t, n)
	origNCols := prob.K.NCols()
	origNRows := prob.K.NRows()

	prob.Dualize()
	be, err := backend.New[float64](prob, backend.DefaultOptions[float64](), nil, nil)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	opts := Options[float64]{MaxIters: 10, NumCbackCalls: 0}
	result, err := Solve[float64](context.Background(), prob, be, opts)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(result.X) != origNCols {
		t.Errorf("len(X) = %d, want %d (original primal dimension)", len(result.X), origNCols)
	}
	if len(result.Y) != origNRows {
		t.Errorf("len(Y) = %d, want %d (original dual dimension)", len(result.Y), origNRows)
	}
	if prob.Dualized() {
		t.Error("Solve left the Problem dualized; expected orientation to be restored")
	}
}

func TestSolveStopsOnCancelledContext(t *testing.T) {
	n := 20
	prob := buildTestProblem(t, n)
	be, err := backend.New[float64](prob, backend.DefaultOptions[float64](), nil, nil)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options[float64]{MaxIters: 1000, NumCbackCalls: 0}
	result, err := Solve[float64](ctx, prob, be, opts)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.Stop != StoppedUser {
		t.Errorf("Stop = %v, want StoppedUser", result.Stop)
	}
	if result.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1 (stop polled after first iteration)", result.Iterations)
	}
}
