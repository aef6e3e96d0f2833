package prox

import (
	"math"

	"github.com/cwbudde/prostsolve/internal/device"
)

// Norm2Group is the Euclidean-norm grouped prox: [idx, idx+size) is
// partitioned into fixed-size groups (e.g. the two gradient components
// at one pixel), each penalized by Weight*||x_group||_2. Groups are
// shrunk by soft-thresholding the group norm:
//
//	x_group* = max(1 - s*Weight/||v_group||, 0) * v_group
//
// Diagonal steps within one group are collapsed to the step at the
// group's first coordinate — a group norm with per-coordinate step
// sizes isn't separable in general, so this is a documented
// simplification rather than an exact per-coordinate honoring.
type Norm2Group[T device.Scalar] struct {
	rangeBase
	GroupSize int
	Weight    float64
}

func NewNorm2Group[T device.Scalar](idx, size, groupSize int, weight float64, diagSteps bool) *Norm2Group[T] {
	return &Norm2Group[T]{rangeBase: rangeBase{idx: idx, size: size, diagSteps: diagSteps}, GroupSize: groupSize, Weight: weight}
}

func (g *Norm2Group[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	res, a := result.Raw(), arg.Raw()
	var diag []T
	if g.diagSteps {
		diag = tauDiag.Raw()
	}
	for base := 0; base < g.size; base += g.GroupSize {
		sk := stepSize(tau, diag, g.idx, base, g.diagSteps, invert)
		s := float64(sk)

		var normSq float64
		for k := 0; k < g.GroupSize; k++ {
			v := float64(a[g.idx+base+k])
			normSq += v * v
		}
		norm := math.Sqrt(normSq)

		scale := 1.0
		if norm > 0 {
			scale = math.Max(1-s*g.Weight/norm, 0)
		}
		for k := 0; k < g.GroupSize; k++ {
			i := g.idx + base + k
			res[i] = T(scale * float64(a[i]))
		}
	}
}
