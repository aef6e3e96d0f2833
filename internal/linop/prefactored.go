package linop

import (
	"math"

	"github.com/cwbudde/prostsolve/internal/device"
)

// Prefactored wraps an inner Block with a diagonal left-scale D, giving
// the dataterm-prefactored combination K' = D*K seen in imaging
// problems where the data term has been folded into the operator ahead
// of time. Shares the Diagonal block's sums algebra: Σ|d_i*K_ij|^p can
// be split as |d_i|^p * Σ_j|K_ij|^p per row, so row sums scale directly
// and column sums require re-deriving from the inner block's per-row
// entries weighted by |d_i|^p — computed once at Initialize.
type Prefactored[T device.Scalar] struct {
	base
	inner Block[T]
	scale []T // length nrows, one entry per output row
}

func NewPrefactored[T device.Scalar](inner Block[T], scale []T) *Prefactored[T] {
	return &Prefactored[T]{
		base:  newBase(inner.RowOffset(), inner.ColOffset(), inner.NRows(), inner.NCols()),
		inner: inner,
		scale: scale,
	}
}

// Initialize builds the row/col sum caches for K' = D*K. Row sums split
// exactly as |d_i|^p * Σ_j|K_ij|^p, so they reuse the inner block's
// cached row sums directly. Column sums do not split that way unless D
// is uniform (Σ_i|d_i*K_ij|^p collapses to a scalar multiply only when
// every d_i is equal): for a uniform scale the cheap path below reuses
// inner.ColSum, otherwise colSumsWeighted re-derives the exact weighted
// sum by probing inner with unit columns, since the inner block's
// cached (unweighted) column sums alone cannot recover the per-row
// weighting once D varies across rows.
func (p *Prefactored[T]) Initialize(cfg PrecondConfig) error {
	if err := p.inner.Initialize(cfg); err != nil {
		return err
	}
	uniform := isUniform(p.scale)
	p.rowSums = make(map[float64][]float64, len(cfg.Exponents))
	p.colSums = make(map[float64][]float64, len(cfg.Exponents))
	for _, pw := range cfg.Exponents {
		rows := make([]float64, p.nrows)
		for i := 0; i < p.nrows; i++ {
			inner, err := p.inner.RowSum(p.rowOffset+i, pw)
			if err != nil {
				return err
			}
			rows[i] = absPow(float64(p.scale[i]), pw) * inner
		}
		p.rowSums[pw] = rows

		if uniform {
			weight := 1.0
			if len(p.scale) > 0 {
				weight = absPow(float64(p.scale[0]), pw)
			}
			cols := make([]float64, p.ncols)
			for j := 0; j < p.ncols; j++ {
				inner, err := p.inner.ColSum(p.colOffset+j, pw)
				if err != nil {
					return err
				}
				cols[j] = weight * inner
			}
			p.colSums[pw] = cols
		} else {
			p.colSums[pw] = p.colSumsWeighted(pw)
		}
	}
	return nil
}

// colSumsWeighted computes Σ_i|d_i*K_ij|^p exactly for a non-uniform
// scale by probing the inner block with unit columns: inner.EvalAdd on
// e_j returns K's j-th column, which is then weighted per row by
// |d_i|^p and summed. O(ncols) inner evaluations, paid once at
// Initialize.
func (p *Prefactored[T]) colSumsWeighted(pw float64) []float64 {
	ncols, nrows := p.inner.NCols(), p.inner.NRows()
	unitVec := device.Alloc[T](ncols, nil)
	outVec := device.Alloc[T](nrows, nil)
	unitView, outView := unitVec.Full(), outVec.Full()
	unitRaw, outRaw := unitView.Raw(), outView.Raw()

	sums := make([]float64, p.ncols)
	for j := 0; j < ncols; j++ {
		for k := range unitRaw {
			unitRaw[k] = 0
		}
		unitRaw[j] = 1
		for k := range outRaw {
			outRaw[k] = 0
		}
		p.inner.EvalAdd(outView, unitView)
		var s float64
		for i, v := range outRaw {
			s += absPow(float64(p.scale[i]), pw) * absPow(float64(v), pw)
		}
		sums[j] = s
	}
	return sums
}

func absPow(v, p float64) float64 {
	return math.Pow(math.Abs(v), p)
}

func (p *Prefactored[T]) EvalAdd(out, in device.View[T]) {
	scratch := make([]T, p.nrows)
	scratchView := device.FromHost(scratch, nil).Full()
	p.inner.EvalAdd(scratchView, in)
	o := out.Raw()
	s := scratchView.Raw()
	for i := range s {
		o[i] += p.scale[i] * s[i]
	}
}

func (p *Prefactored[T]) EvalAdjointAdd(out, in device.View[T]) {
	scaled := make([]T, in.Len())
	x := in.Raw()
	for i := range x {
		scaled[i] = p.scale[i] * x[i]
	}
	scaledView := device.FromHost(scaled, nil).Full()
	p.inner.EvalAdjointAdd(out, scaledView)
}

func (p *Prefactored[T]) RowSum(i int, p2 float64) (float64, error) { return p.rowSum(i, p2) }
func (p *Prefactored[T]) ColSum(j int, p2 float64) (float64, error) { return p.colSum(j, p2) }

func isUniform[T device.Scalar](v []T) bool {
	if len(v) == 0 {
		return true
	}
	for _, x := range v {
		if x != v[0] {
			return false
		}
	}
	return true
}
