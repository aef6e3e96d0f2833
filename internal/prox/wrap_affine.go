package prox

import "github.com/cwbudde/prostsolve/internal/device"

// AffineTransform wraps an inner prox P = prox_f and evaluates the
// prox of c*f(a*x+b) + d*x + (e/2)*x^2 over Inner's range, using the
// same derivation as Separable1D's per-coordinate packing (see
// affineQuadraticProx), generalized to an arbitrary inner Prox instead
// of a closed-form base function:
//
//	v'' = (x - s*d) / (1 + s*e), per coordinate, with s = this
//	      coordinate's own step (tau, possibly diagonal, possibly
//	      inverted)
//	w    = b + a*v''
//	lambda = s*c*a^2 / (1 + s*e)
//	u*   = prox_{lambda*f}(w)         (delegated to Inner.Eval)
//	x*   = (u* - b) / a                (x* = v'' directly when a == 0)
//
// A, B, C, D, E are scalar (uniform across Inner's range), so s*e is
// constant across the range whenever Inner.DiagSteps() is false — s
// itself is then also constant, which is what makes lambda
// representable as a single scalar tau passed to Inner.Eval in that
// case. When Inner.DiagSteps() is true, lambda is passed per
// coordinate through a synthetic diagonal-step vector with tau=1.
type AffineTransform[T device.Scalar] struct {
	Inner            Prox[T]
	A, B, C, D, E float64
}

func NewAffineTransform[T device.Scalar](inner Prox[T], a, b, c, d, e float64) *AffineTransform[T] {
	return &AffineTransform[T]{Inner: inner, A: a, B: b, C: c, D: d, E: e}
}

func (w *AffineTransform[T]) Range() (int, int) { return w.Inner.Range() }
func (w *AffineTransform[T]) DiagSteps() bool   { return w.Inner.DiagSteps() }

func (w *AffineTransform[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	idx, size := w.Inner.Range()
	full := arg.Len()
	diagSteps := w.Inner.DiagSteps()

	var diag []T
	if diagSteps {
		diag = tauDiag.Raw()
	}

	a := arg.Raw()
	vpp := make([]float64, size)
	lambda := make([]float64, size)
	for k := 0; k < size; k++ {
		i := idx + k
		s := float64(stepSize(tau, diag, idx, k, diagSteps, invert))
		denom := 1 + s*w.E
		vpp[k] = (float64(a[i]) - s*w.D) / denom
		lambda[k] = s * w.C * w.A * w.A / denom
	}

	if w.A == 0 {
		res := result.Raw()
		for k := 0; k < size; k++ {
			res[idx+k] = T(vpp[k])
		}
		return
	}

	innerArg := make([]T, full)
	copy(innerArg, a)
	for k := 0; k < size; k++ {
		innerArg[idx+k] = T(w.B + w.A*vpp[k])
	}
	innerArgView := device.FromHost(innerArg, nil).Full()
	innerOut := device.Alloc[T](full, nil).Full()

	if diagSteps {
		syntheticDiag := make([]T, full)
		for k := 0; k < size; k++ {
			syntheticDiag[idx+k] = T(lambda[k])
		}
		w.Inner.Eval(innerOut, innerArgView, device.FromHost(syntheticDiag, nil).Full(), T(1), false)
	} else {
		w.Inner.Eval(innerOut, innerArgView, tauDiag, T(lambda[0]), false)
	}

	res := result.Raw()
	ir := innerOut.Raw()
	for k := 0; k < size; k++ {
		i := idx + k
		res[i] = T((float64(ir[i]) - w.B) / w.A)
	}
}
