package linop

import "github.com/cwbudde/prostsolve/internal/device"

// Zero is a degenerate block contributing nothing. Useful as a
// structural placeholder when a prox range needs a K row with no
// coupling to some column range.
type Zero[T device.Scalar] struct{ base }

func NewZero[T device.Scalar](rowOffset, colOffset, nrows, ncols int) *Zero[T] {
	return &Zero[T]{base: newBase(rowOffset, colOffset, nrows, ncols)}
}

func (z *Zero[T]) Initialize(cfg PrecondConfig) error {
	z.cacheSums(cfg, func(float64) []float64 { return make([]float64, z.nrows) }, func(float64) []float64 { return make([]float64, z.ncols) })
	return nil
}
func (z *Zero[T]) EvalAdd(out, in device.View[T])        {}
func (z *Zero[T]) EvalAdjointAdd(out, in device.View[T]) {}
func (z *Zero[T]) RowSum(i int, p float64) (float64, error) { return z.rowSum(i, p) }
func (z *Zero[T]) ColSum(j int, p float64) (float64, error) { return z.colSum(j, p) }

// Identity is the degenerate square block M = I: forward and adjoint
// both copy the input through unchanged.
type Identity[T device.Scalar] struct{ base }

func NewIdentity[T device.Scalar](offset, n int) *Identity[T] {
	return &Identity[T]{base: newBase(offset, offset, n, n)}
}

func (id *Identity[T]) Initialize(cfg PrecondConfig) error {
	id.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, id.nrows)
		for i := range sums {
			sums[i] = 1
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, id.ncols)
		for i := range sums {
			sums[i] = 1
		}
		return sums
	})
	return nil
}

func (id *Identity[T]) EvalAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for i := range x {
		o[i] += x[i]
	}
}
func (id *Identity[T]) EvalAdjointAdd(out, in device.View[T]) { id.EvalAdd(out, in) }
func (id *Identity[T]) RowSum(i int, p float64) (float64, error) { return id.rowSum(i, p) }
func (id *Identity[T]) ColSum(j int, p float64) (float64, error) { return id.colSum(j, p) }
