package linop

import (
	"math"

	"github.com/cwbudde/prostsolve/internal/device"
)

// DCTBlock applies an orthonormal type-II DCT (forward) / type-III DCT
// (adjoint, since an orthonormal DCT-II's transpose is its inverse
// DCT-III) over a 1D tile of length N = NCols = NRows. Computed as a
// direct O(N^2) sum rather than an FFT factorization: no DCT library
// exists anywhere in the retrieved pack, and a direct sum is accurate
// and fast enough at the tile sizes this solver targets (imaging
// patches, not general-purpose transform coding) — stdlib-justified,
// see DESIGN.md.
type DCTBlock[T device.Scalar] struct {
	base
	n     int
	basis [][]float64 // basis[k][i] = cos(pi/N*(i+0.5)*k) * norm(k)
}

func NewDCTBlock[T device.Scalar](offset, n int) *DCTBlock[T] {
	d := &DCTBlock[T]{base: newBase(offset, offset, n, n), n: n}
	d.basis = make([][]float64, n)
	for k := 0; k < n; k++ {
		norm := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			norm = math.Sqrt(1.0 / float64(n))
		}
		row := make([]float64, n)
		for i := 0; i < n; i++ {
			row[i] = norm * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		d.basis[k] = row
	}
	return d
}

func (d *DCTBlock[T]) Initialize(cfg PrecondConfig) error {
	d.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, d.n)
		for k := 0; k < d.n; k++ {
			var s float64
			for i := 0; i < d.n; i++ {
				s += math.Pow(math.Abs(d.basis[k][i]), p)
			}
			sums[k] = s
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, d.n)
		for i := 0; i < d.n; i++ {
			var s float64
			for k := 0; k < d.n; k++ {
				s += math.Pow(math.Abs(d.basis[k][i]), p)
			}
			sums[i] = s
		}
		return sums
	})
	return nil
}

// EvalAdd computes the forward orthonormal DCT-II: out[k] += Σ_i basis[k][i]*in[i].
func (d *DCTBlock[T]) EvalAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for k := 0; k < d.n; k++ {
		var acc float64
		row := d.basis[k]
		for i := 0; i < d.n; i++ {
			acc += row[i] * float64(x[i])
		}
		o[k] += T(acc)
	}
}

// EvalAdjointAdd computes the inverse DCT-III, the transpose of an
// orthonormal DCT-II basis: out[i] += Σ_k basis[k][i]*in[k].
func (d *DCTBlock[T]) EvalAdjointAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for i := 0; i < d.n; i++ {
		var acc float64
		for k := 0; k < d.n; k++ {
			acc += d.basis[k][i] * float64(x[k])
		}
		o[i] += T(acc)
	}
}

func (d *DCTBlock[T]) RowSum(i int, p float64) (float64, error) { return d.rowSum(i, p) }
func (d *DCTBlock[T]) ColSum(j int, p float64) (float64, error) { return d.colSum(j, p) }

// DSTBlock applies an orthonormal type-I DST over a 1D tile. Same
// direct-sum rationale as DCTBlock; DST-I is self-adjoint (and its own
// inverse up to the same normalization), so EvalAdjointAdd reuses the
// forward kernel.
type DSTBlock[T device.Scalar] struct {
	base
	n     int
	basis [][]float64
}

func NewDSTBlock[T device.Scalar](offset, n int) *DSTBlock[T] {
	d := &DSTBlock[T]{base: newBase(offset, offset, n, n), n: n}
	norm := math.Sqrt(2.0 / float64(n+1))
	d.basis = make([][]float64, n)
	for k := 0; k < n; k++ {
		row := make([]float64, n)
		for i := 0; i < n; i++ {
			row[i] = norm * math.Sin(math.Pi/float64(n+1)*float64(i+1)*float64(k+1))
		}
		d.basis[k] = row
	}
	return d
}

func (d *DSTBlock[T]) Initialize(cfg PrecondConfig) error {
	d.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, d.n)
		for k := 0; k < d.n; k++ {
			var s float64
			for i := 0; i < d.n; i++ {
				s += math.Pow(math.Abs(d.basis[k][i]), p)
			}
			sums[k] = s
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, d.n)
		for i := 0; i < d.n; i++ {
			var s float64
			for k := 0; k < d.n; k++ {
				s += math.Pow(math.Abs(d.basis[k][i]), p)
			}
			sums[i] = s
		}
		return sums
	})
	return nil
}

func (d *DSTBlock[T]) EvalAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for k := 0; k < d.n; k++ {
		var acc float64
		row := d.basis[k]
		for i := 0; i < d.n; i++ {
			acc += row[i] * float64(x[i])
		}
		o[k] += T(acc)
	}
}

func (d *DSTBlock[T]) EvalAdjointAdd(out, in device.View[T]) { d.EvalAdd(out, in) }

func (d *DSTBlock[T]) RowSum(i int, p float64) (float64, error) { return d.rowSum(i, p) }
func (d *DSTBlock[T]) ColSum(j int, p float64) (float64, error) { return d.colSum(j, p) }
