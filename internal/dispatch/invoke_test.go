package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cwbudde/prostsolve/internal/solverr"
)

func gradientProblemDesc(n int) ProblemDesc {
	perCoord := make([]Coeffs, n)
	for i := range perCoord {
		perCoord[i] = Coeffs{A: 1, B: -0.5, C: 1}
	}
	return ProblemDesc{
		NRows: n,
		NCols: n,
		Blocks: []BlockDesc{
			{Kind: "gradient", Dims: []int{n}, Boundary: "neumann"},
		},
		G: []ProxDesc{
			{Kind: "separable1d", Idx: 0, Size: n, Fn: "square", DiagSteps: true, PerCoord: perCoord},
		},
		FStar: []ProxDesc{
			{Kind: "separable1d", Idx: 0, Size: n, Fn: "ind_box01", DiagSteps: true, Shared: Coeffs{A: 5, B: 0.5, C: 1}},
		},
		Precond:      "alpha",
		PrecondAlpha: 1,
	}
}

// structToAny round-trips a typed descriptor through the same
// marshal path a real host embedder would use: plain nested
// map[string]any / []any values, never the Go struct itself.
func structToAny(t *testing.T, v any) any {
	t.Helper()
	buf, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestInvokeLifecycle(t *testing.T) {
	ctx := context.Background()

	if _, err := Invoke(ctx, "init", nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := Invoke(ctx, "set_gpu", map[string]any{"id": 0}); err != nil {
		t.Fatalf("set_gpu: %v", err)
	}
	gpus, err := Invoke(ctx, "list_gpus", nil)
	if err != nil {
		t.Fatalf("list_gpus: %v", err)
	}
	if _, ok := gpus.([]GPUInfo); !ok {
		t.Errorf("list_gpus returned %T, want []GPUInfo", gpus)
	}
	if _, err := Invoke(ctx, "release", nil); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestInvokeSolveProblem(t *testing.T) {
	ctx := context.Background()
	n := 30
	args := map[string]any{
		"problem_desc": structToAny(t, gradientProblemDesc(n)),
		"backend_desc": structToAny(t, BackendDesc{}),
		"options":      structToAny(t, Options{MaxIters: 200, NumCbackCalls: 3}),
	}

	out, err := Invoke(ctx, "solve_problem", args)
	if err != nil {
		t.Fatalf("solve_problem: %v", err)
	}
	res, ok := out.(*SolveResult)
	if !ok {
		t.Fatalf("solve_problem returned %T, want *SolveResult", out)
	}
	if len(res.X) != n {
		t.Errorf("len(X) = %d, want %d", len(res.X), n)
	}
	if len(res.Y) != n {
		t.Errorf("len(Y) = %d, want %d", len(res.Y), n)
	}
	if res.ResultString == "" {
		t.Error("ResultString is empty")
	}
}

func TestInvokeEvalLinop(t *testing.T) {
	n := 10
	rhs := make([]any, n)
	for i := range rhs {
		rhs[i] = float64(i)
	}
	args := map[string]any{
		"block_list":     structToAny(t, gradientProblemDesc(n)),
		"rhs":            rhs,
		"transpose_flag": false,
	}

	out, err := Invoke(context.Background(), "eval_linop", args)
	if err != nil {
		t.Fatalf("eval_linop: %v", err)
	}
	res, ok := out.(*EvalLinopResult)
	if !ok {
		t.Fatalf("eval_linop returned %T, want *EvalLinopResult", out)
	}
	if len(res.Result) != n {
		t.Errorf("len(Result) = %d, want %d", len(res.Result), n)
	}
	if len(res.RowSums) != n || len(res.ColSums) != n {
		t.Errorf("RowSums/ColSums length = %d/%d, want %d/%d", len(res.RowSums), len(res.ColSums), n, n)
	}
}

func TestInvokeEvalProx(t *testing.T) {
	n := 8
	arg := make([]any, n)
	for i := range arg {
		arg[i] = 0.3
	}
	pd := ProxDesc{Kind: "separable1d", Idx: 0, Size: n, Fn: "square", DiagSteps: true, Shared: Coeffs{A: 1, B: 0, C: 1}}
	args := map[string]any{
		"prox_desc":  structToAny(t, pd),
		"arg":        arg,
		"scalar_tau": 0.5,
	}

	out, err := Invoke(context.Background(), "eval_prox", args)
	if err != nil {
		t.Fatalf("eval_prox: %v", err)
	}
	res, ok := out.(*EvalProxResult)
	if !ok {
		t.Fatalf("eval_prox returned %T, want *EvalProxResult", out)
	}
	if len(res.Result) != n {
		t.Errorf("len(Result) = %d, want %d", len(res.Result), n)
	}
}

func TestInvokeConfigErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := Invoke(ctx, "bogus_command", nil); !errors.Is(err, solverr.ConfigError) {
		t.Errorf("unrecognized command: got %v, want ConfigError", err)
	}

	if _, err := Invoke(ctx, "solve_problem", map[string]any{}); !errors.Is(err, solverr.ConfigError) {
		t.Errorf("missing problem_desc: got %v, want ConfigError", err)
	}

	badBlock := gradientProblemDesc(5)
	badBlock.Blocks[0].Kind = "not_a_real_kind"
	args := map[string]any{
		"problem_desc": structToAny(t, badBlock),
		"backend_desc": structToAny(t, BackendDesc{}),
		"options":      structToAny(t, Options{MaxIters: 10}),
	}
	if _, err := Invoke(ctx, "solve_problem", args); !errors.Is(err, solverr.ConfigError) {
		t.Errorf("unrecognized block kind: got %v, want ConfigError", err)
	}

	if _, err := Invoke(ctx, "eval_prox", map[string]any{
		"prox_desc": structToAny(t, ProxDesc{Kind: "separable1d", Size: 4}),
		"arg":       []any{0.1, 0.2, 0.3, 0.4},
	}); !errors.Is(err, solverr.ConfigError) {
		t.Errorf("missing scalar_tau: got %v, want ConfigError", err)
	}
}
