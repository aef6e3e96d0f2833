package linop

import (
	"math"

	"github.com/cwbudde/prostsolve/internal/device"
)

// Diagonal is a square leaf block M = diag(Values). Values lives in
// ordinary host memory; the per-Solve constant-memory reset
// (solver.resetConstantMemory) is a no-op and does not touch it.
type Diagonal[T device.Scalar] struct {
	base
	Values []T
}

func NewDiagonal[T device.Scalar](offset int, values []T) *Diagonal[T] {
	n := len(values)
	return &Diagonal[T]{base: newBase(offset, offset, n, n), Values: values}
}

func (d *Diagonal[T]) Initialize(cfg PrecondConfig) error {
	d.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, d.nrows)
		for i, v := range d.Values {
			sums[i] = math.Pow(math.Abs(float64(v)), p)
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, d.ncols)
		for i, v := range d.Values {
			sums[i] = math.Pow(math.Abs(float64(v)), p)
		}
		return sums
	})
	return nil
}

func (d *Diagonal[T]) EvalAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for i, v := range d.Values {
		o[i] += v * x[i]
	}
}

func (d *Diagonal[T]) EvalAdjointAdd(out, in device.View[T]) {
	d.EvalAdd(out, in) // diagonal matrices are self-adjoint
}

func (d *Diagonal[T]) RowSum(i int, p float64) (float64, error) { return d.rowSum(i, p) }
func (d *Diagonal[T]) ColSum(j int, p float64) (float64, error) { return d.colSum(j, p) }
