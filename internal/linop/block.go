// Package linop implements the composite linear operator K: a set of
// typed leaf Blocks placed at disjoint (row, col) offsets inside a
// shared output/input index space, dispatched through LinearOperator.
package linop

import (
	"strconv"

	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

func formatExponent(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

// PrecondConfig carries the row/col absolute-value-power exponents the
// Problem preconditioner needs. Typically {1, 2-alpha, alpha}; Block
// implementations compute and cache sums for exactly these exponents at
// Initialize time rather than materializing the full matrix.
type PrecondConfig struct {
	Exponents []float64
}

// Block is one typed leaf linear map placed at (RowOffset, ColOffset)
// inside the composite K, covering NRows x NCols of K's output/input space.
type Block[T device.Scalar] interface {
	// Initialize pre-moves static parameters to device storage and
	// computes/caches RowSum/ColSum for every exponent in cfg.Exponents.
	Initialize(cfg PrecondConfig) error

	// EvalAdd computes out += M*in. out is a row-slice [RowOffset,
	// RowOffset+NRows), in is a col-slice [ColOffset, ColOffset+NCols).
	EvalAdd(out, in device.View[T])

	// EvalAdjointAdd computes out += Mᵀ*in on the swapped slices.
	EvalAdjointAdd(out, in device.View[T])

	// RowSum returns Σ|M_ij|^p for global row i, zero if i falls outside
	// this block's row range. Errors if p was not among the exponents
	// passed to Initialize — a cache miss here means a caller derived a
	// preconditioner exponent the block was never told to prepare for,
	// which must fail loudly rather than silently return 0.
	RowSum(i int, p float64) (float64, error)
	// ColSum returns Σ|M_ij|^p for global column j, zero if j falls
	// outside this block's column range. Same cache-miss contract as
	// RowSum.
	ColSum(j int, p float64) (float64, error)

	RowOffset() int
	ColOffset() int
	NRows() int
	NCols() int
}

// base implements the offset/shape bookkeeping and the row/col sum
// cache shared by every concrete Block, so each leaf only has to supply
// its Eval kernels and an analytic/iterative sum computation.
type base struct {
	rowOffset, colOffset int
	nrows, ncols         int
	rowSums              map[float64][]float64 // exponent -> per-row sum, length nrows
	colSums              map[float64][]float64 // exponent -> per-col sum, length ncols
}

func newBase(rowOffset, colOffset, nrows, ncols int) base {
	return base{rowOffset: rowOffset, colOffset: colOffset, nrows: nrows, ncols: ncols}
}

func (b *base) RowOffset() int { return b.rowOffset }
func (b *base) ColOffset() int { return b.colOffset }
func (b *base) NRows() int     { return b.nrows }
func (b *base) NCols() int     { return b.ncols }

func (b *base) cacheSums(cfg PrecondConfig, rowSumFn, colSumFn func(p float64) []float64) {
	b.rowSums = make(map[float64][]float64, len(cfg.Exponents))
	b.colSums = make(map[float64][]float64, len(cfg.Exponents))
	for _, p := range cfg.Exponents {
		b.rowSums[p] = rowSumFn(p)
		b.colSums[p] = colSumFn(p)
	}
}

// sumCacheMiss is the hard-error cache-miss diagnostic shared by
// rowSum/colSum below: a miss means some caller queried a
// preconditioner exponent this block was never Initialize'd with, which
// silently degenerated into an inert (all-ones) preconditioner before
// this check existed.
func sumCacheMiss(kind string, p float64) error {
	return solverr.New(solverr.KindInvalidState,
		"Block."+kind+"Sum: no cached sum for exponent "+formatExponent(p)+" (Initialize was not called with this exponent)")
}

func (b *base) rowSum(i int, p float64) (float64, error) {
	local := i - b.rowOffset
	if local < 0 || local >= b.nrows {
		return 0, nil
	}
	sums, ok := b.rowSums[p]
	if !ok {
		return 0, sumCacheMiss("Row", p)
	}
	return sums[local], nil
}

func (b *base) colSum(j int, p float64) (float64, error) {
	local := j - b.colOffset
	if local < 0 || local >= b.ncols {
		return 0, nil
	}
	sums, ok := b.colSums[p]
	if !ok {
		return 0, sumCacheMiss("Col", p)
	}
	return sums[local], nil
}

func checkEvalShape(out, in interface{ Len() int }, wantOut, wantIn int) error {
	if out.Len() != wantOut || in.Len() != wantIn {
		return solverr.New(solverr.KindShapeMismatch, "Block.Eval: view length mismatch")
	}
	return nil
}
