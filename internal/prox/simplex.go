package prox

import (
	"math"
	"sort"

	"github.com/cwbudde/prostsolve/internal/device"
)

// SimplexProj projects each group of Dim coordinates in [idx,idx+size)
// onto the scaled probability simplex {x : x>=0, sum(x)=Scale}. Prox of
// an indicator is independent of tau, so step sizes are ignored.
// Standard sort-and-waterfill algorithm.
type SimplexProj[T device.Scalar] struct {
	rangeBase
	Dim   int
	Scale float64
}

func NewSimplexProj[T device.Scalar](idx, size, dim int, scale float64) *SimplexProj[T] {
	return &SimplexProj[T]{rangeBase: rangeBase{idx: idx, size: size}, Dim: dim, Scale: scale}
}

func (p *SimplexProj[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	res, a := result.Raw(), arg.Raw()
	buf := make([]float64, p.Dim)
	for base := 0; base < p.size; base += p.Dim {
		for k := 0; k < p.Dim; k++ {
			buf[k] = float64(a[p.idx+base+k])
		}
		projectSimplex(buf, p.Scale)
		for k := 0; k < p.Dim; k++ {
			res[p.idx+base+k] = T(buf[k])
		}
	}
}

// projectSimplex overwrites v in place with its projection onto
// {x : x>=0, sum(x) = scale}.
func projectSimplex(v []float64, scale float64) {
	n := len(v)
	sorted := make([]float64, n)
	copy(sorted, v)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var cumsum float64
	rho := -1
	theta := 0.0
	for i := 0; i < n; i++ {
		cumsum += sorted[i]
		t := (cumsum - scale) / float64(i+1)
		if sorted[i]-t > 0 {
			rho = i
			theta = t
		}
	}
	if rho < 0 {
		theta = (cumsum - scale) / float64(n)
	}
	for i := range v {
		v[i] = math.Max(v[i]-theta, 0)
	}
}

// BallProj projects each group of Dim coordinates onto the L2 ball of
// radius Radius centered at the origin.
type BallProj[T device.Scalar] struct {
	rangeBase
	Dim    int
	Radius float64
}

func NewBallProj[T device.Scalar](idx, size, dim int, radius float64) *BallProj[T] {
	return &BallProj[T]{rangeBase: rangeBase{idx: idx, size: size}, Dim: dim, Radius: radius}
}

func (p *BallProj[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	res, a := result.Raw(), arg.Raw()
	for base := 0; base < p.size; base += p.Dim {
		var normSq float64
		for k := 0; k < p.Dim; k++ {
			v := float64(a[p.idx+base+k])
			normSq += v * v
		}
		norm := math.Sqrt(normSq)
		scale := 1.0
		if norm > p.Radius && norm > 0 {
			scale = p.Radius / norm
		}
		for k := 0; k < p.Dim; k++ {
			i := p.idx + base + k
			res[i] = T(scale * float64(a[i]))
		}
	}
}
