package linop

import (
	"math"

	"github.com/cwbudde/prostsolve/internal/device"
)

// SparseCSR is a row-compressed sparse leaf block: RowPtr has length
// nrows+1, ColIdx/Values are parallel arrays of length RowPtr[nrows].
// Hand-rolled: no sparse matrix type is available anywhere in the
// retrieved pack (gonum ships no canonical sparse package, lvlath's
// matrix.Matrix implementations are all dense-backed), so this format
// and its kernels are plain Go rather than a wired third-party type.
type SparseCSR[T device.Scalar] struct {
	base
	RowPtr []int
	ColIdx []int
	Values []T
}

// NewSparseCSR constructs a CSR block occupying NRows x NCols at the
// given offsets. RowPtr/ColIdx/Values are taken by reference.
func NewSparseCSR[T device.Scalar](rowOffset, colOffset, nrows, ncols int, rowPtr, colIdx []int, values []T) *SparseCSR[T] {
	return &SparseCSR[T]{base: newBase(rowOffset, colOffset, nrows, ncols), RowPtr: rowPtr, ColIdx: colIdx, Values: values}
}

func (m *SparseCSR[T]) Initialize(cfg PrecondConfig) error {
	m.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, m.nrows)
		for i := 0; i < m.nrows; i++ {
			var s float64
			for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
				s += math.Pow(math.Abs(float64(m.Values[k])), p)
			}
			sums[i] = s
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, m.ncols)
		for i := 0; i < m.nrows; i++ {
			for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
				sums[m.ColIdx[k]] += math.Pow(math.Abs(float64(m.Values[k])), p)
			}
		}
		return sums
	})
	return nil
}

func (m *SparseCSR[T]) EvalAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for i := 0; i < m.nrows; i++ {
		var acc T
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			acc += m.Values[k] * x[m.ColIdx[k]]
		}
		o[i] += acc
	}
}

func (m *SparseCSR[T]) EvalAdjointAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for i := 0; i < m.nrows; i++ {
		xv := x[i]
		if xv == 0 {
			continue
		}
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			o[m.ColIdx[k]] += m.Values[k] * xv
		}
	}
}

func (m *SparseCSR[T]) RowSum(i int, p float64) (float64, error) { return m.rowSum(i, p) }
func (m *SparseCSR[T]) ColSum(j int, p float64) (float64, error) { return m.colSum(j, p) }

// SparseCSC is the column-compressed dual of SparseCSR: ColPtr has
// length ncols+1, RowIdx/Values are parallel arrays of length
// ColPtr[ncols]. Forward Eval walks columns (natural for CSC), adjoint
// walks the same structure with row/col swapped.
type SparseCSC[T device.Scalar] struct {
	base
	ColPtr []int
	RowIdx []int
	Values []T
}

func NewSparseCSC[T device.Scalar](rowOffset, colOffset, nrows, ncols int, colPtr, rowIdx []int, values []T) *SparseCSC[T] {
	return &SparseCSC[T]{base: newBase(rowOffset, colOffset, nrows, ncols), ColPtr: colPtr, RowIdx: rowIdx, Values: values}
}

func (m *SparseCSC[T]) Initialize(cfg PrecondConfig) error {
	m.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, m.nrows)
		for j := 0; j < m.ncols; j++ {
			for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
				sums[m.RowIdx[k]] += math.Pow(math.Abs(float64(m.Values[k])), p)
			}
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, m.ncols)
		for j := 0; j < m.ncols; j++ {
			var s float64
			for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
				s += math.Pow(math.Abs(float64(m.Values[k])), p)
			}
			sums[j] = s
		}
		return sums
	})
	return nil
}

func (m *SparseCSC[T]) EvalAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for j := 0; j < m.ncols; j++ {
		xv := x[j]
		if xv == 0 {
			continue
		}
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			o[m.RowIdx[k]] += m.Values[k] * xv
		}
	}
}

func (m *SparseCSC[T]) EvalAdjointAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for j := 0; j < m.ncols; j++ {
		var acc T
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			acc += m.Values[k] * x[m.RowIdx[k]]
		}
		o[j] += acc
	}
}

func (m *SparseCSC[T]) RowSum(i int, p float64) (float64, error) { return m.rowSum(i, p) }
func (m *SparseCSC[T]) ColSum(j int, p float64) (float64, error) { return m.colSum(j, p) }
