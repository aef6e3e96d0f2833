// Package prox implements the proximal-operator composite: per-range
// leaf prox operators plus the Moreau/Permute/AffineTransform wrappers
// that combine them, matching the index-range-partition contract every
// Problem's G and F* lists rely on.
package prox

import "github.com/cwbudde/prostsolve/internal/device"

// Prox is the public contract every leaf and wrapper satisfies. Eval
// computes result[idx:idx+size) = (I + s*df)^-1(arg[idx:idx+size)),
// where s_k = tau * (DiagSteps() ? tauDiag[idx+k] : 1), inverted first
// if invert is set. result/arg/tauDiag are always full-length device
// vectors; only the [idx, idx+size) slice of result is touched.
type Prox[T device.Scalar] interface {
	Eval(result, arg, tauDiag device.View[T], tau T, invert bool)
	Range() (idx, size int)
	DiagSteps() bool
}

// stepSize derives s_k for local coordinate k inside a leaf's range,
// honoring diagsteps and invert_tau exactly as specified: s_k = tau *
// (diagsteps ? tauDiag[idx+k] : 1); if invert, s_k <- 1/s_k.
func stepSize[T device.Scalar](tau T, tauDiag []T, idx, k int, diagSteps, invert bool) T {
	s := tau
	if diagSteps {
		s *= tauDiag[idx+k]
	}
	if invert {
		if s == 0 {
			return 0
		}
		s = 1 / s
	}
	return s
}

// rangeBase holds the [idx, idx+size) partition assignment and the
// diagsteps flag shared by every leaf prox.
type rangeBase struct {
	idx, size int
	diagSteps bool
}

func (r rangeBase) Range() (int, int) { return r.idx, r.size }
func (r rangeBase) DiagSteps() bool   { return r.diagSteps }
