package prox

import (
	"math"

	"github.com/cwbudde/prostsolve/internal/device"
)

// ScalarFunc identifies the base 1D convex function phi that
// Separable1D applies per coordinate, before the affine/quadratic
// packing c*phi(a*x+b) + d*x + (e/2)x^2 from the coefficient packing.
type ScalarFunc int

const (
	Zero ScalarFunc = iota
	Abs
	Square
	Huber
	L0
	IndLeq0
	IndGeq0
	IndEq0
	IndBox01
	MaxPos0
)

// Coeffs packs the per-range or per-coordinate weights (a,b,c,d,e) from
// phi(a*x+b) weighted c*phi+d*x+(e/2)x^2.
type Coeffs struct {
	A, B, C, D, E float64
}

var identityCoeffs = Coeffs{A: 1, C: 1}

// Separable1D is the pointwise leaf prox: each coordinate in
// [idx, idx+size) is evaluated independently against Fn and, when
// PerCoord is non-nil, its own Coeffs; otherwise every coordinate shares
// Shared.
type Separable1D[T device.Scalar] struct {
	rangeBase
	Fn        ScalarFunc
	HuberDelt float64 // delta for Huber, ignored otherwise
	Shared    Coeffs
	PerCoord  []Coeffs // optional, length size; overrides Shared per-coordinate
}

// NewSeparable1D builds a uniform (same coefficients at every
// coordinate) separable prox with identity coefficients (a=1,c=1,
// b=d=e=0) unless overridden via Shared.
func NewSeparable1D[T device.Scalar](idx, size int, fn ScalarFunc, diagSteps bool) *Separable1D[T] {
	return &Separable1D[T]{
		rangeBase: rangeBase{idx: idx, size: size, diagSteps: diagSteps},
		Fn:        fn,
		Shared:    identityCoeffs,
	}
}

func (s *Separable1D[T]) coeffsAt(k int) Coeffs {
	if s.PerCoord != nil {
		return s.PerCoord[k]
	}
	return s.Shared
}

func (s *Separable1D[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	res, a := result.Raw(), arg.Raw()
	var diag []T
	if s.diagSteps {
		diag = tauDiag.Raw()
	}
	for k := 0; k < s.size; k++ {
		i := s.idx + k
		sk := stepSize(tau, diag, s.idx, k, s.diagSteps, invert)
		c := s.coeffsAt(k)
		v := float64(a[i])
		res[i] = T(affineQuadraticProx(s.Fn, s.HuberDelt, c, float64(sk), v))
	}
}

// affineQuadraticProx solves x* = argmin_x{ s*(c*phi(a*x+b) + d*x +
// (e/2)x^2) + (1/2)(x-v)^2 } by reducing to a single prox evaluation of
// the unweighted base function phi, derived by completing the square in
// the quadratic/linear terms and then substituting u = a*x+b:
//
//	v'' = (v - s*d) / (1 + s*e)
//	w   = b + a*v''
//	u*  = prox_{lambda*phi}(w),  lambda = s*c*a^2 / (1 + s*e)
//	x*  = (u* - b) / a            (x* = v'' directly when a == 0)
func affineQuadraticProx(fn ScalarFunc, delta float64, c Coeffs, s, v float64) float64 {
	denom := 1 + s*c.E
	vpp := (v - s*c.D) / denom
	if c.A == 0 {
		return vpp
	}
	w := c.B + c.A*vpp
	lambda := s * c.C * c.A * c.A / denom
	u := scalarBaseProx(fn, delta, lambda, w)
	return (u - c.B) / c.A
}

// scalarBaseProx returns prox_{lambda*phi}(w) for the unweighted base
// function phi, lambda >= 0.
func scalarBaseProx(fn ScalarFunc, delta, lambda, w float64) float64 {
	switch fn {
	case Zero:
		return w
	case Abs:
		return softThreshold(w, lambda)
	case Square:
		return w / (1 + lambda)
	case Huber:
		if delta <= 0 {
			delta = 1
		}
		if math.Abs(w) <= delta*(1+lambda) {
			return w / (1 + lambda)
		}
		return w - lambda*delta*sign(w)
	case L0:
		if math.Abs(w) > math.Sqrt(2*lambda) {
			return w
		}
		return 0
	case IndLeq0:
		if w < 0 {
			return w
		}
		return 0
	case IndGeq0:
		if w > 0 {
			return w
		}
		return 0
	case IndEq0:
		return 0
	case IndBox01:
		return clamp(w, 0, 1)
	case MaxPos0:
		switch {
		case w > lambda:
			return w - lambda
		case w < 0:
			return w
		default:
			return 0
		}
	default:
		return w
	}
}

func softThreshold(v, lambda float64) float64 {
	if v > lambda {
		return v - lambda
	}
	if v < -lambda {
		return v + lambda
	}
	return 0
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
