// Package problem implements the saddle-point Problem: a reference to
// the composite operator K plus the G/F* prox lists, owning the
// preconditioner diagonals tau/sigma derived from K's row/col sums.
package problem

import (
	"fmt"

	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/linop"
	"github.com/cwbudde/prostsolve/internal/prox"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

// PrecondMode selects the preconditioner strategy: off uses a constant
// step of 1 everywhere (no K-derived scaling); alpha uses the
// Pock-Chambolle family tau_c = 1/Sum_r|K_rc|^(2-alpha), sigma_r =
// 1/Sum_c|K_rc|^alpha.
type PrecondMode int

const (
	PrecondOff PrecondMode = iota
	PrecondAlpha
)

// Problem references K and the primal/dual prox lists, and owns the
// preconditioner diagonals Tau (length ncols) and Sigma (length nrows).
type Problem[T device.Scalar] struct {
	K     linop.Operator[T]
	G     []prox.Prox[T]
	FStar []prox.Prox[T]

	Mode  PrecondMode
	Alpha float64 // in [0, 2]; 1 is the Pock-Chambolle default

	Tau   *device.Vector[T]
	Sigma *device.Vector[T]

	initialized bool
	dualized    bool
}

// New constructs a Problem over an already-built operator and prox lists.
func New[T device.Scalar](k linop.Operator[T], g, fStar []prox.Prox[T], mode PrecondMode, alpha float64) *Problem[T] {
	return &Problem[T]{K: k, G: g, FStar: fStar, Mode: mode, Alpha: alpha}
}

// Initialize derives Tau/Sigma from K's row/col sums. For PrecondAlpha,
// tau_c = 1/Sum_r|K_rc|^(2-alpha), sigma_r = 1/Sum_c|K_rc|^alpha, with
// a zero sum floored to 1 so that a fully decoupled row/column still
// gets a finite, inert preconditioner entry rather than a division by
// zero. For PrecondOff, both diagonals are all-ones.
func (p *Problem[T]) Initialize() error {
	if p.initialized {
		return solverr.New(solverr.KindInvalidState, "Problem.Initialize: already initialized")
	}
	if err := validatePartition(p.G, p.K.NCols()); err != nil {
		return solverr.Wrap(solverr.KindInvalidStructure, "Problem.Initialize: G ranges", err)
	}
	if err := validatePartition(p.FStar, p.K.NRows()); err != nil {
		return solverr.Wrap(solverr.KindInvalidStructure, "Problem.Initialize: F* ranges", err)
	}

	ncols, nrows := p.K.NCols(), p.K.NRows()
	tau := make([]T, ncols)
	sigma := make([]T, nrows)

	switch p.Mode {
	case PrecondOff:
		for i := range tau {
			tau[i] = 1
		}
		for i := range sigma {
			sigma[i] = 1
		}
	case PrecondAlpha:
		alpha := p.Alpha
		// tau_c = 1/Sum_r|K_rc|^(2-alpha): a fixed column summed over
		// rows is exactly ColSum's definition (Sum over the index NOT
		// named in the call). K's sum caches were built with exactly
		// these two exponents (see dispatch.resolvePrecondAlpha, which
		// both decodeOperator and this Problem's Alpha are derived
		// from), so a cache-miss error here means the caller drove
		// K.Initialize with a different alpha than this Problem's Alpha.
		for c := 0; c < ncols; c++ {
			s, err := p.K.ColSum(c, 2-alpha)
			if err != nil {
				return solverr.Wrap(solverr.KindInvalidState, "Problem.Initialize: ColSum", err)
			}
			tau[c] = T(1 / floorNonzero(s))
		}
		// sigma_r = 1/Sum_c|K_rc|^alpha: a fixed row summed over columns.
		for r := 0; r < nrows; r++ {
			s, err := p.K.RowSum(r, alpha)
			if err != nil {
				return solverr.Wrap(solverr.KindInvalidState, "Problem.Initialize: RowSum", err)
			}
			sigma[r] = T(1 / floorNonzero(s))
		}
	}

	p.Tau = device.FromHost(tau, nil)
	p.Sigma = device.FromHost(sigma, nil)
	p.initialized = true
	return nil
}

func floorNonzero(s float64) float64 {
	if s <= 0 {
		return 1
	}
	return s
}

// Dualize swaps G<->F*, K<->-Kᵀ, and the primal/dual preconditioners,
// toggling the dualized flag the Solver checks when restoring
// orientation before returning results.
func (p *Problem[T]) Dualize() {
	p.G, p.FStar = p.FStar, p.G
	if nt, ok := p.K.(linop.NegTranspose[T]); ok {
		p.K = nt.Inner
	} else {
		p.K = linop.NegTranspose[T]{Inner: p.K}
	}
	p.Tau, p.Sigma = p.Sigma, p.Tau
	p.dualized = !p.dualized
}

// Dualized reports whether Dualize has been called an odd number of times.
func (p *Problem[T]) Dualized() bool { return p.dualized }

func validatePartition[T device.Scalar](proxes []prox.Prox[T], dim int) error {
	covered := make([]bool, dim)
	for _, px := range proxes {
		idx, size := px.Range()
		if idx < 0 || idx+size > dim {
			return solverr.New(solverr.KindInvalidStructure, "prox range out of bounds")
		}
		for i := idx; i < idx+size; i++ {
			if covered[i] {
				return solverr.New(solverr.KindInvalidStructure, "prox ranges overlap")
			}
			covered[i] = true
		}
	}
	for i, c := range covered {
		if !c {
			return solverr.New(solverr.KindInvalidStructure, fmt.Sprintf("prox ranges leave a gap at index %d", i))
		}
	}
	return nil
}
