package device

import (
	"math"

	"golang.org/x/sys/cpu"
	"gonum.org/v1/gonum/floats"
)

// AXPY computes y ← y + a*x over the view, the building block every
// extrapolation step (x̄ = x⁺ + θ(x⁺−x)) and residual computation needs.
func (vw View[T]) AXPY(a T, x View[T]) {
	mustMatch(vw, x)
	vw.stream.enqueue(func() {
		switch dst := any(vw.data).(type) {
		case []float64:
			floats.AddScaled(dst, float64(a), any(x.data).([]float64))
		default:
			axpyGeneric(vw.data, x.data, a)
		}
	})
}

func axpyGeneric[T Scalar](y, x []T, a T) {
	for i := range y {
		y[i] += a * x[i]
	}
}

// Scale computes x ← a*x in place.
func (vw View[T]) Scale(a T) {
	vw.stream.enqueue(func() {
		switch dst := any(vw.data).(type) {
		case []float64:
			floats.Scale(float64(a), dst)
		default:
			for i := range vw.data {
				vw.data[i] *= a
			}
		}
	})
}

// Mul computes z ← x*y elementwise, written into the receiver.
func (vw View[T]) Mul(x, y View[T]) {
	mustMatch(vw, x)
	mustMatch(vw, y)
	vw.stream.enqueue(func() {
		switch dst := any(vw.data).(type) {
		case []float64:
			floats.MulTo(dst, any(x.data).([]float64), any(y.data).([]float64))
		default:
			for i := range vw.data {
				vw.data[i] = x.data[i] * y.data[i]
			}
		}
	})
}

// MaxElemwise computes z ← max(x, y) elementwise.
func (vw View[T]) MaxElemwise(x, y View[T]) {
	mustMatch(vw, x)
	mustMatch(vw, y)
	vw.stream.enqueue(func() {
		for i := range vw.data {
			if x.data[i] >= y.data[i] {
				vw.data[i] = x.data[i]
			} else {
				vw.data[i] = y.data[i]
			}
		}
	})
}

// MinElemwise computes z ← min(x, y) elementwise.
func (vw View[T]) MinElemwise(x, y View[T]) {
	mustMatch(vw, x)
	mustMatch(vw, y)
	vw.stream.enqueue(func() {
		for i := range vw.data {
			if x.data[i] <= y.data[i] {
				vw.data[i] = x.data[i]
			} else {
				vw.data[i] = y.data[i]
			}
		}
	})
}

// CopyInto copies the view's contents into dst (same length).
func (vw View[T]) CopyInto(dst View[T]) {
	mustMatch(vw, dst)
	vw.stream.enqueue(func() {
		copy(dst.data, vw.data)
	})
}

// NormL2 returns the Euclidean norm, blocking the host for the
// reduction (one of the three suspension points allowed by §5).
func (vw View[T]) NormL2() T {
	vw.stream.Sync()
	switch data := any(vw.data).(type) {
	case []float64:
		return T(floats.Norm(data, 2))
	default:
		var sum float64
		for _, v := range vw.data {
			f := float64(v)
			sum += f * f
		}
		return T(math.Sqrt(sum))
	}
}

// NormLInf returns the max-absolute-value norm.
func (vw View[T]) NormLInf() T {
	vw.stream.Sync()
	var m float64
	for _, v := range vw.data {
		a := math.Abs(float64(v))
		if a > m {
			m = a
		}
	}
	return T(m)
}

// useASMPath records at package init whether the CPU has AVX2 or ASIMD.
// It is only reported through HasWideSIMD; SumAbs and the other kernels
// choose their path by element type (gonum/floats for float64, a
// portable loop otherwise), not by CPU features.
var useASMPath = cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD

// HasWideSIMD reports whether the host CPU exposes the wide SIMD
// instruction sets (AVX2/NEON ASIMD) that gonum/floats' float64 kernels
// are compiled to use. Surfaced for diagnostics (verbose logging of the
// active backend), mirroring the teacher's ActiveSADBackend.
func HasWideSIMD() bool { return useASMPath }

// SumAbs returns Σ|v_i|, i.e. the L1 norm.
func (vw View[T]) SumAbs() T {
	vw.stream.Sync()
	switch data := any(vw.data).(type) {
	case []float64:
		return T(floats.Norm(data, 1))
	default:
		return T(sumAbsScalar(vw.data))
	}
}

func sumAbsScalar[T Scalar](data []T) float64 {
	var sum float64
	for _, v := range data {
		sum += math.Abs(float64(v))
	}
	return sum
}

// PartialSumAbs returns Σ|v_i| over [begin, end) without requiring the
// caller to materialize a sub-View first.
func (vw View[T]) PartialSumAbs(begin, end int) T {
	return vw.View(begin, end).SumAbs()
}

// View returns the aliasing sub-range [begin, end) of a View.
func (vw View[T]) View(begin, end int) View[T] {
	if begin < 0 || end > len(vw.data) || begin > end {
		panic("device: View out of range")
	}
	return View[T]{data: vw.data[begin:end], stream: vw.stream}
}

// Dot returns the inner product ⟨vw, x⟩, used by adjoint-consistency
// tests and by the backtracking descent-inequality check.
func (vw View[T]) Dot(x View[T]) T {
	mustMatch(vw, x)
	vw.stream.Sync()
	switch data := any(vw.data).(type) {
	case []float64:
		return T(floats.Dot(data, any(x.data).([]float64)))
	default:
		var sum float64
		for i := range vw.data {
			sum += float64(vw.data[i]) * float64(x.data[i])
		}
		return T(sum)
	}
}

func mustMatch[T Scalar](a, b View[T]) {
	if len(a.data) != len(b.data) {
		panic("device: view length mismatch")
	}
}
