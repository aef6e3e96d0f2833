package prox

import "github.com/cwbudde/prostsolve/internal/device"

// QuadraticDiag is the prox of f(x) = (1/2) x^T D x for a diagonal
// Hessian D: x* = v / (1 + s*D_k) per coordinate.
type QuadraticDiag[T device.Scalar] struct {
	rangeBase
	Diag []float64 // length size
}

func NewQuadraticDiag[T device.Scalar](idx int, diag []float64, diagSteps bool) *QuadraticDiag[T] {
	return &QuadraticDiag[T]{rangeBase: rangeBase{idx: idx, size: len(diag), diagSteps: diagSteps}, Diag: diag}
}

func (q *QuadraticDiag[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	res, a := result.Raw(), arg.Raw()
	var diag []T
	if q.diagSteps {
		diag = tauDiag.Raw()
	}
	for k := 0; k < q.size; k++ {
		i := q.idx + k
		sk := float64(stepSize(tau, diag, q.idx, k, q.diagSteps, invert))
		res[i] = T(float64(a[i]) / (1 + sk*q.Diag[k]))
	}
}
