package linop

import (
	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

// Operator is the interface Problem depends on, satisfied by
// LinearOperator itself and by NegTranspose (the K -> -Kᵀ view
// Dualize() needs). Keeping Problem decoupled from the concrete
// composite type lets Dualize swap the operator without copying any
// block storage.
type Operator[T device.Scalar] interface {
	Eval(out, in device.View[T]) error
	EvalAdjoint(out, in device.View[T]) error
	RowSum(i int, p float64) (float64, error)
	ColSum(j int, p float64) (float64, error)
	NRows() int
	NCols() int
}

// NegTranspose presents -Kᵀ as an Operator without copying any block
// storage: forward Eval calls the wrapped operator's EvalAdjoint and
// negates, adjoint calls Eval and negates; row/col sums are swapped and
// unaffected by the negation since they are absolute-value sums.
type NegTranspose[T device.Scalar] struct {
	Inner Operator[T]
}

func (n NegTranspose[T]) NRows() int { return n.Inner.NCols() }
func (n NegTranspose[T]) NCols() int { return n.Inner.NRows() }

func (n NegTranspose[T]) Eval(out, in device.View[T]) error {
	if err := n.Inner.EvalAdjoint(out, in); err != nil {
		return err
	}
	negate(out)
	return nil
}

func (n NegTranspose[T]) EvalAdjoint(out, in device.View[T]) error {
	if err := n.Inner.Eval(out, in); err != nil {
		return err
	}
	negate(out)
	return nil
}

func (n NegTranspose[T]) RowSum(i int, p float64) (float64, error) { return n.Inner.ColSum(i, p) }
func (n NegTranspose[T]) ColSum(j int, p float64) (float64, error) { return n.Inner.RowSum(j, p) }

func negate[T device.Scalar](v device.View[T]) {
	data := v.Raw()
	for i := range data {
		data[i] = -data[i]
	}
}

// LinearOperator is the composite K: an ordered set of Blocks sharing a
// common (nrows, ncols) index space. Lifecycle: empty -> AddBlock (any
// number of times) -> Initialize (finalizes, validates non-overlap,
// triggers each Block's own Initialize) -> immutable, usable from Eval/
// EvalAdjoint/RowSum/ColSum.
type LinearOperator[T device.Scalar] struct {
	blocks      []Block[T]
	nrows       int
	ncols       int
	initialized bool
}

// NewLinearOperator creates an empty composite over the given output/
// input dimensions.
func NewLinearOperator[T device.Scalar](nrows, ncols int) *LinearOperator[T] {
	return &LinearOperator[T]{nrows: nrows, ncols: ncols}
}

// NRows and NCols return the composite's cached shape.
func (k *LinearOperator[T]) NRows() int { return k.nrows }
func (k *LinearOperator[T]) NCols() int { return k.ncols }

// AddBlock appends a Block. Fails with InvalidState once Initialize has
// run, and with InvalidStructure if the block would exceed K's bounds.
func (k *LinearOperator[T]) AddBlock(b Block[T]) error {
	if k.initialized {
		return solverr.New(solverr.KindInvalidState, "LinearOperator.AddBlock: called after Initialize")
	}
	if b.RowOffset()+b.NRows() > k.nrows || b.ColOffset()+b.NCols() > k.ncols {
		return solverr.New(solverr.KindInvalidStructure, "LinearOperator.AddBlock: block exceeds operator bounds")
	}
	k.blocks = append(k.blocks, b)
	return nil
}

// Initialize finalizes the composite: validates that no two blocks
// write the same output cell, initializes each block (row/col sum
// caches), and marks K immutable.
func (k *LinearOperator[T]) Initialize(cfg PrecondConfig) error {
	if k.initialized {
		return solverr.New(solverr.KindInvalidState, "LinearOperator.Initialize: already initialized")
	}
	if err := k.validateNoOverlap(); err != nil {
		return err
	}
	for _, b := range k.blocks {
		if err := b.Initialize(cfg); err != nil {
			return err
		}
	}
	k.initialized = true
	return nil
}

// validateNoOverlap enforces that no two blocks claim overlapping
// (row, col) rectangles in the composite's index space.
func (k *LinearOperator[T]) validateNoOverlap() error {
	for i := 0; i < len(k.blocks); i++ {
		a := k.blocks[i]
		for j := i + 1; j < len(k.blocks); j++ {
			b := k.blocks[j]
			if rectOverlap(a, b) {
				return solverr.New(solverr.KindInvalidStructure, "LinearOperator.Initialize: overlapping blocks")
			}
		}
	}
	return nil
}

func rectOverlap[T device.Scalar](a, b Block[T]) bool {
	rowOverlap := a.RowOffset() < b.RowOffset()+b.NRows() && b.RowOffset() < a.RowOffset()+a.NRows()
	colOverlap := a.ColOffset() < b.ColOffset()+b.NCols() && b.ColOffset() < a.ColOffset()+a.NCols()
	return rowOverlap && colOverlap
}

// Eval computes out = K*in: zeroes out, then dispatches EvalAdd on
// every block.
func (k *LinearOperator[T]) Eval(out, in device.View[T]) error {
	if err := k.checkState(); err != nil {
		return err
	}
	if out.Len() != k.nrows || in.Len() != k.ncols {
		return solverr.New(solverr.KindShapeMismatch, "LinearOperator.Eval: size mismatch")
	}
	zero(out)
	for _, b := range k.blocks {
		b.EvalAdd(out.View(b.RowOffset(), b.RowOffset()+b.NRows()), in.View(b.ColOffset(), b.ColOffset()+b.NCols()))
	}
	return nil
}

// EvalAdjoint computes out = Kᵀ*in: zeroes out, then dispatches
// EvalAdjointAdd on every block with row/col swapped.
func (k *LinearOperator[T]) EvalAdjoint(out, in device.View[T]) error {
	if err := k.checkState(); err != nil {
		return err
	}
	if out.Len() != k.ncols || in.Len() != k.nrows {
		return solverr.New(solverr.KindShapeMismatch, "LinearOperator.EvalAdjoint: size mismatch")
	}
	zero(out)
	for _, b := range k.blocks {
		b.EvalAdjointAdd(out.View(b.ColOffset(), b.ColOffset()+b.NCols()), in.View(b.RowOffset(), b.RowOffset()+b.NRows()))
	}
	return nil
}

// RowSum returns Σ_c|K_ic|^p by summing the contribution of every
// block whose row range covers i. Fails if any block has no cached sum
// for p (i.e. Initialize was never driven with this exponent).
func (k *LinearOperator[T]) RowSum(i int, p float64) (float64, error) {
	var s float64
	for _, b := range k.blocks {
		v, err := b.RowSum(i, p)
		if err != nil {
			return 0, err
		}
		s += v
	}
	return s, nil
}

// ColSum returns Σ_r|K_rj|^p by summing the contribution of every
// block whose col range covers j. Same cache-miss contract as RowSum.
func (k *LinearOperator[T]) ColSum(j int, p float64) (float64, error) {
	var s float64
	for _, b := range k.blocks {
		v, err := b.ColSum(j, p)
		if err != nil {
			return 0, err
		}
		s += v
	}
	return s, nil
}

func (k *LinearOperator[T]) checkState() error {
	if !k.initialized {
		return solverr.New(solverr.KindInvalidState, "LinearOperator: used before Initialize")
	}
	return nil
}

func zero[T device.Scalar](v device.View[T]) {
	data := v.Raw()
	for i := range data {
		data[i] = 0
	}
}
