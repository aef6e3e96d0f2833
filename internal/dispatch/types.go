// Package dispatch implements the command-dispatch handler side: the
// single Invoke(command, args) entry point a host embedder (CLI, HTTP
// API, or a foreign marshaling layer we don't build) calls with a
// parameter dictionary, decoded here into the typed descriptors that
// construct a Problem/Backend/Solver run.
package dispatch

// BlockDesc describes one leaf linear-operator block. Kind selects
// which linop constructor fields below feed; unused fields for a given
// Kind are ignored.
type BlockDesc struct {
	Kind     string `json:"kind"`
	RowOffset int   `json:"row_offset"`
	ColOffset int   `json:"col_offset"`

	// sparse_csr / sparse_csc
	NRows  int       `json:"nrows"`
	NCols  int       `json:"ncols"`
	RowPtr []int     `json:"row_ptr"`
	ColPtr []int     `json:"col_ptr"`
	ColIdx []int     `json:"col_idx"`
	RowIdx []int     `json:"row_idx"`
	Values []float64 `json:"values"`

	// dense
	Matrix [][]float64 `json:"matrix"`

	// diagonal / identity(n) / zero(nrows,ncols)
	Diagonal []float64 `json:"diagonal"`
	N        int       `json:"n"`

	// gradient
	Dims     []int  `json:"dims"`
	Boundary string `json:"boundary"` // "neumann" | "dirichlet"

	// dct / dst
	Size int `json:"size"`

	// prefactored
	Inner *BlockDesc `json:"inner"`
	Scale []float64  `json:"scale"`
}

// Coeffs mirrors prox.Coeffs for decode purposes.
type Coeffs struct {
	A, B, C, D, E float64
}

// ProxDesc describes one leaf or wrapper prox operator.
type ProxDesc struct {
	Kind      string `json:"kind"`
	Idx       int    `json:"idx"`
	Size      int    `json:"size"`
	DiagSteps bool   `json:"diag_steps"`

	// separable1d
	Fn         string   `json:"fn"`
	HuberDelta float64  `json:"huber_delta"`
	Shared     Coeffs   `json:"shared"`
	PerCoord   []Coeffs `json:"per_coord"`

	// norm2group
	GroupSize int     `json:"group_size"`
	Weight    float64 `json:"weight"`

	// simplex / ball
	Dim    int     `json:"dim"`
	Scale  float64 `json:"scale"`
	Radius float64 `json:"radius"`

	// quadratic_diag
	Diag []float64 `json:"diag"`

	// svd
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// wrappers: moreau / permute / affine, over Inner
	Inner *ProxDesc `json:"inner"`
	Perm  []int     `json:"perm"`
	A     float64   `json:"a"`
	B     float64   `json:"b"`
	C     float64   `json:"c"`
	D     float64   `json:"d"`
	E     float64   `json:"e"`
}

// ProblemDesc assembles the composite operator and the G/F* prox lists.
type ProblemDesc struct {
	NRows        int         `json:"nrows"`
	NCols        int         `json:"ncols"`
	Blocks       []BlockDesc `json:"blocks"`
	G            []ProxDesc  `json:"g"`
	FStar        []ProxDesc  `json:"f_star"`
	Precond      string      `json:"precond"`       // "off" | "alpha"
	PrecondAlpha float64     `json:"precond_alpha"`
}

// BackendDesc configures the PDHG backend's stepsize/adapt strategy and
// tuning constants; zero-valued fields fall back to backend.DefaultOptions.
type BackendDesc struct {
	Stepsize string  `json:"stepsize"` // "pdhg" | "alg2" | "goldstein"
	Adapt    string  `json:"adapt"`    // "off" | "balance"
	TolAbs   float64 `json:"tol_abs"`
	TolRel   float64 `json:"tol_rel"`
	Theta    float64 `json:"theta"`
	Gamma    float64 `json:"gamma"`

	GoldsteinAlpha float64 `json:"goldstein_alpha"`
	GoldsteinEta   float64 `json:"goldstein_eta"`
	GoldsteinDelta float64 `json:"goldstein_delta"`
	GoldsteinMaxBT int     `json:"goldstein_max_bt"`

	BalanceWindow int     `json:"balance_window"`
	BalanceGrow   float64 `json:"balance_grow"`
	BalanceShrink float64 `json:"balance_shrink"`
	BalanceLo     float64 `json:"balance_lo"`
	BalanceHi     float64 `json:"balance_hi"`
}

// Options is the solve_problem options schema from spec section 6.
type Options struct {
	MaxIters         int       `json:"max_iters"`
	NumCbackCalls    int       `json:"num_cback_calls"`
	TolAbs           float64   `json:"tol_abs"`
	TolRel           float64   `json:"tol_rel"`
	Verbose          bool      `json:"verbose"`
	SolveDualProblem bool      `json:"solve_dual_problem"`
	Precond          string    `json:"precond"`
	PrecondAlpha     float64   `json:"precond_alpha"`
	Stepsize         string    `json:"stepsize"`
	Adapt            string    `json:"adapt"`
	X0               []float64 `json:"x0"`
	Y0               []float64 `json:"y0"`

	// Callback is a Go function reference; only reachable from native Go
	// callers (never decoded out of a map[string]any — a foreign host
	// environment has no way to hand us a Go closure).
	Callback func(iteration int, x, y []float64) bool `json:"-"`
}

// SolveResult is solve_problem's return struct.
type SolveResult struct {
	X, Kx, Y, Kty []float64
	ResultString  string
	Iterations    int
}

// EvalLinopResult is eval_linop's return struct.
type EvalLinopResult struct {
	Result  []float64
	RowSums []float64
	ColSums []float64
	TimeMs  float64
}

// EvalProxResult is eval_prox's return struct.
type EvalProxResult struct {
	Result []float64
	TimeMs float64
}

// GPUInfo is one list_gpus entry: (id, name, memory_bytes, cores).
type GPUInfo struct {
	ID          int
	Name        string
	MemoryBytes uint64
	Cores       uint32
}
