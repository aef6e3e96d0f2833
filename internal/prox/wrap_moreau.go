package prox

import "github.com/cwbudde/prostsolve/internal/device"

// Moreau wraps an inner prox P = prox_f and evaluates the Moreau
// identity exactly:
//
//	prox_{s*f*}(v) = v - s*prox_{f/s}(v/s)
//
// per coordinate, where s is this wrapper's own step (tau, possibly
// diagonal, possibly inverted — the same stepSize every leaf uses).
// prox_{f/s} is obtained from Inner.Eval by requesting the *inverted*
// step relative to s: Inner.Eval's own stepSize(tau, tauDiag, diagSteps,
// invert) formula means passing invert=!invert here yields exactly 1/s
// regardless of whether this wrapper itself received an inverted step,
// so the composition is correct under nested invert_tau calls too.
// s==0 (tau -> 0 limit) is handled by skipping the division: the s*u
// term is zero regardless of u, so prox_{s*f*}(v) -> v, matching the
// identity's limit.
type Moreau[T device.Scalar] struct {
	Inner Prox[T]
}

func NewMoreau[T device.Scalar](inner Prox[T]) *Moreau[T] { return &Moreau[T]{Inner: inner} }

func (m *Moreau[T]) Range() (int, int)  { return m.Inner.Range() }
func (m *Moreau[T]) DiagSteps() bool    { return m.Inner.DiagSteps() }

func (m *Moreau[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	idx, size := m.Inner.Range()
	diagSteps := m.Inner.DiagSteps()

	full := arg.Len()
	var diag []T
	if diagSteps {
		diag = tauDiag.Raw()
	}

	argRaw := arg.Raw()
	scaled := make([]T, full)
	copy(scaled, argRaw)
	sks := make([]T, size)
	for k := 0; k < size; k++ {
		i := idx + k
		sk := stepSize(tau, diag, idx, k, diagSteps, invert)
		sks[k] = sk
		if sk != 0 {
			scaled[i] = argRaw[i] / sk
		}
	}
	scaledView := device.FromHost(scaled, nil).Full()

	innerOut := device.Alloc[T](full, nil).Full()
	m.Inner.Eval(innerOut, scaledView, tauDiag, tau, !invert)

	res := result.Raw()
	ir := innerOut.Raw()
	for k := 0; k < size; k++ {
		i := idx + k
		res[i] = argRaw[i] - sks[k]*ir[i]
	}
}
