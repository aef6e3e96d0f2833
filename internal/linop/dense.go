package linop

import (
	"math"

	"github.com/katalvlaran/lvlath/matrix"

	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

// Dense is a fully materialized leaf block backed by lvlath/matrix.Dense.
// Its transpose is computed once at Initialize and cached, so
// EvalAdjointAdd is a plain matrix.MatVec rather than a re-transpose
// per call.
type Dense[T device.Scalar] struct {
	base
	m      *matrix.Dense
	mT     matrix.Matrix
	scratch []float64 // unused: EvalAdd/EvalAdjointAdd allocate a fresh input slice per call
}

// NewDense builds a Dense block from a row-major value grid, values[i][j].
func NewDense[T device.Scalar](rowOffset, colOffset int, values [][]T) (*Dense[T], error) {
	nrows := len(values)
	ncols := 0
	if nrows > 0 {
		ncols = len(values[0])
	}
	m, err := matrix.NewDense(nrows, ncols)
	if err != nil {
		return nil, solverr.Wrap(solverr.KindConfigError, "Dense: NewDense", err)
	}
	for i := 0; i < nrows; i++ {
		for j := 0; j < ncols; j++ {
			if err := m.Set(i, j, float64(values[i][j])); err != nil {
				return nil, solverr.Wrap(solverr.KindConfigError, "Dense: Set", err)
			}
		}
	}
	return &Dense[T]{base: newBase(rowOffset, colOffset, nrows, ncols), m: m}, nil
}

func (d *Dense[T]) Initialize(cfg PrecondConfig) error {
	mT, err := matrix.Transpose(d.m)
	if err != nil {
		return solverr.Wrap(solverr.KindInvalidStructure, "Dense.Initialize: Transpose", err)
	}
	d.mT = mT

	d.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, d.nrows)
		for i := 0; i < d.nrows; i++ {
			var s float64
			for j := 0; j < d.ncols; j++ {
				v, _ := d.m.At(i, j)
				s += math.Pow(math.Abs(v), p)
			}
			sums[i] = s
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, d.ncols)
		for j := 0; j < d.ncols; j++ {
			var s float64
			for i := 0; i < d.nrows; i++ {
				v, _ := d.m.At(i, j)
				s += math.Pow(math.Abs(v), p)
			}
			sums[j] = s
		}
		return sums
	})
	return nil
}

func (d *Dense[T]) EvalAdd(out, in device.View[T]) {
	x := toFloat64(in.Raw())
	y, _ := matrix.MatVec(d.m, x)
	addInto(out.Raw(), y)
}

func (d *Dense[T]) EvalAdjointAdd(out, in device.View[T]) {
	x := toFloat64(in.Raw())
	y, _ := matrix.MatVec(d.mT, x)
	addInto(out.Raw(), y)
}

func (d *Dense[T]) RowSum(i int, p float64) (float64, error) { return d.rowSum(i, p) }
func (d *Dense[T]) ColSum(j int, p float64) (float64, error) { return d.colSum(j, p) }

func toFloat64[T device.Scalar](x []T) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func addInto[T device.Scalar](dst []T, src []float64) {
	for i, v := range src {
		dst[i] += T(v)
	}
}
