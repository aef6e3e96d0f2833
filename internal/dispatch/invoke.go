package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cwbudde/prostsolve/internal/backend"
	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/problem"
	"github.com/cwbudde/prostsolve/internal/solver"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

// Invoke is the single command-dispatch entry point: init, release,
// set_gpu, list_gpus, solve_problem, eval_linop, eval_prox.
func Invoke(ctx context.Context, cmd string, args map[string]any) (any, error) {
	switch cmd {
	case "init":
		return nil, solver.Init()
	case "release":
		return nil, solver.Release()
	case "set_gpu":
		id, err := requireInt(args, "id")
		if err != nil {
			return nil, err
		}
		return nil, solver.SetGPU(id)
	case "list_gpus":
		return listGPUs()
	case "solve_problem":
		return solveProblem(ctx, args)
	case "eval_linop":
		return evalLinop(args)
	case "eval_prox":
		return evalProx(args)
	default:
		return nil, configErrorf("unrecognized command %q", cmd)
	}
}

// decodeInto round-trips an arbitrary map[string]any into a typed
// struct via its json tags, the same field-mapping contract
// encoding/json-based config decode uses everywhere else in this
// module (CLI flags, HTTP job bodies).
func decodeInto(args map[string]any, key string, dst any) error {
	raw, ok := args[key]
	if !ok {
		return configErrorf("missing required key %q", key)
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return solverr.Wrap(solverr.KindConfigError, "encoding "+key, err)
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return solverr.Wrap(solverr.KindConfigError, "decoding "+key, err)
	}
	return nil
}

func requireInt(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, configErrorf("missing required key %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, configErrorf("key %q must be an integer", key)
	}
}

func listGPUs() ([]GPUInfo, error) {
	platforms, err := solver.ListGPUs()
	if err != nil {
		return nil, err
	}
	var out []GPUInfo
	for _, p := range platforms {
		for _, d := range p.Devices {
			out = append(out, GPUInfo{ID: d.ID, Name: d.Name, MemoryBytes: d.MemoryBytes, Cores: d.MaxComputeUnits})
		}
	}
	return out, nil
}

func solveProblem(ctx context.Context, args map[string]any) (*SolveResult, error) {
	var pd ProblemDesc
	if err := decodeInto(args, "problem_desc", &pd); err != nil {
		return nil, err
	}
	var bd BackendDesc
	if err := decodeInto(args, "backend_desc", &bd); err != nil {
		return nil, err
	}
	var opts Options
	if err := decodeInto(args, "options", &opts); err != nil {
		return nil, err
	}
	return SolveProblem(ctx, pd, bd, opts)
}

// SolveProblem is the Go-native counterpart to Invoke("solve_problem", ...):
// a typed entry point for embedders that already hold decoded descriptors
// and, unlike the map[string]any contract, can supply a live Options.Callback
// closure (a Go func can't survive the json round trip Invoke uses).
func SolveProblem(ctx context.Context, pd ProblemDesc, bd BackendDesc, opts Options) (*SolveResult, error) {
	alpha := resolvePrecondAlpha(pd, opts)
	k, err := decodeOperator(pd, alpha)
	if err != nil {
		return nil, err
	}
	g, err := decodeProxList(pd.G)
	if err != nil {
		return nil, err
	}
	fStar, err := decodeProxList(pd.FStar)
	if err != nil {
		return nil, err
	}

	precondMode, err := decodePrecond(firstNonEmpty(opts.Precond, pd.Precond))
	if err != nil {
		return nil, err
	}

	prob := problem.New[float64](k, g, fStar, precondMode, alpha)
	if err := prob.Initialize(); err != nil {
		return nil, solverr.Wrap(solverr.KindConfigError, "Failed to initialize the problem. Reason", err)
	}

	if opts.SolveDualProblem {
		prob.Dualize()
	}

	backendOpts := decodeBackendOptions(bd, opts)
	be, err := backend.New[float64](prob, backendOpts, opts.X0, opts.Y0)
	if err != nil {
		return nil, solverr.Wrap(solverr.KindConfigError, "Failed to initialize the backend. Reason", err)
	}
	defer be.Release()

	maxIters := opts.MaxIters
	if maxIters <= 0 {
		maxIters = 10000
	}
	solveOpts := solver.Options[float64]{
		MaxIters:      maxIters,
		NumCbackCalls: opts.NumCbackCalls,
		Verbose:       opts.Verbose,
		Callback:      opts.Callback,
	}

	res, err := solver.Solve[float64](ctx, prob, be, solveOpts)
	if err != nil {
		return nil, err
	}

	return &SolveResult{X: res.X, Kx: res.Kx, Y: res.Y, Kty: res.Kty, ResultString: res.Stop.String(), Iterations: res.Iterations}, nil
}

func decodeBackendOptions(bd BackendDesc, opts Options) backend.Options[float64] {
	o := backend.DefaultOptions[float64]()
	switch firstNonEmpty(bd.Stepsize, opts.Stepsize) {
	case "alg2":
		o.Stepsize = backend.StepsizeAlg2
	case "goldstein":
		o.Stepsize = backend.StepsizeGoldstein
	default:
		o.Stepsize = backend.StepsizePDHG
	}
	switch firstNonEmpty(bd.Adapt, opts.Adapt) {
	case "balance":
		o.Adapt = backend.AdaptBalance
	default:
		o.Adapt = backend.AdaptOff
	}
	if bd.TolAbs != 0 {
		o.TolAbs = bd.TolAbs
	}
	if bd.TolRel != 0 {
		o.TolRel = bd.TolRel
	}
	if opts.TolAbs != 0 {
		o.TolAbs = opts.TolAbs
	}
	if opts.TolRel != 0 {
		o.TolRel = opts.TolRel
	}
	if bd.Theta != 0 {
		o.Theta = bd.Theta
	}
	if bd.Gamma != 0 {
		o.Gamma = bd.Gamma
	}
	if bd.GoldsteinAlpha != 0 {
		o.GoldsteinAlpha = bd.GoldsteinAlpha
	}
	if bd.GoldsteinEta != 0 {
		o.GoldsteinEta = bd.GoldsteinEta
	}
	if bd.GoldsteinDelta != 0 {
		o.GoldsteinDelta = bd.GoldsteinDelta
	}
	if bd.GoldsteinMaxBT != 0 {
		o.GoldsteinMaxBT = bd.GoldsteinMaxBT
	}
	if bd.BalanceWindow != 0 {
		o.BalanceWindow = bd.BalanceWindow
	}
	if bd.BalanceGrow != 0 {
		o.BalanceGrow = bd.BalanceGrow
	}
	if bd.BalanceShrink != 0 {
		o.BalanceShrink = bd.BalanceShrink
	}
	if bd.BalanceLo != 0 {
		o.BalanceLo = bd.BalanceLo
	}
	if bd.BalanceHi != 0 {
		o.BalanceHi = bd.BalanceHi
	}
	return o
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func evalLinop(args map[string]any) (*EvalLinopResult, error) {
	var pd ProblemDesc
	if err := decodeInto(args, "block_list", &pd); err != nil {
		return nil, err
	}
	var rhs []float64
	if err := decodeInto(args, "rhs", &rhs); err != nil {
		return nil, err
	}
	transpose, _ := args["transpose_flag"].(bool)

	k, err := decodeOperator(pd, resolvePrecondAlpha(pd, Options{}))
	if err != nil {
		return nil, err
	}

	in := device.FromHost(rhs, nil)
	var out *device.Vector[float64]
	start := time.Now()
	if transpose {
		if in.Len() != k.NRows() {
			return nil, solverr.New(solverr.KindShapeMismatch, "eval_linop: rhs length must equal nrows for transpose")
		}
		out = device.Alloc[float64](k.NCols(), nil)
		err = k.EvalAdjoint(out.Full(), in.Full())
	} else {
		if in.Len() != k.NCols() {
			return nil, solverr.New(solverr.KindShapeMismatch, "eval_linop: rhs length must equal ncols")
		}
		out = device.Alloc[float64](k.NRows(), nil)
		err = k.Eval(out.Full(), in.Full())
	}
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	rowSums := make([]float64, k.NRows())
	for i := range rowSums {
		s, err := k.RowSum(i, 1)
		if err != nil {
			return nil, err
		}
		rowSums[i] = s
	}
	colSums := make([]float64, k.NCols())
	for j := range colSums {
		s, err := k.ColSum(j, 1)
		if err != nil {
			return nil, err
		}
		colSums[j] = s
	}

	return &EvalLinopResult{
		Result:  out.CopyToHost(),
		RowSums: rowSums,
		ColSums: colSums,
		TimeMs:  float64(elapsed.Microseconds()) / 1000,
	}, nil
}

func evalProx(args map[string]any) (*EvalProxResult, error) {
	var pxd ProxDesc
	if err := decodeInto(args, "prox_desc", &pxd); err != nil {
		return nil, err
	}
	var arg []float64
	if err := decodeInto(args, "arg", &arg); err != nil {
		return nil, err
	}
	tau, err := requireFloat(args, "scalar_tau")
	if err != nil {
		return nil, err
	}
	var tauDiag []float64
	if _, ok := args["tau_diag"]; ok {
		if err := decodeInto(args, "tau_diag", &tauDiag); err != nil {
			return nil, err
		}
	} else {
		tauDiag = make([]float64, len(arg))
	}

	px, err := decodeProx(pxd)
	if err != nil {
		return nil, err
	}

	argVec := device.FromHost(arg, nil)
	tauDiagVec := device.FromHost(tauDiag, nil)
	result := device.Alloc[float64](len(arg), nil)

	start := time.Now()
	px.Eval(result.Full(), argVec.Full(), tauDiagVec.Full(), tau, false)
	elapsed := time.Since(start)

	return &EvalProxResult{Result: result.CopyToHost(), TimeMs: float64(elapsed.Microseconds()) / 1000}, nil
}

func requireFloat(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, configErrorf("missing required key %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, configErrorf("key %q must be a number", key)
	}
}
