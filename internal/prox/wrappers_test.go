package prox

import (
	"math"
	"testing"

	"github.com/cwbudde/prostsolve/internal/device"
)

func TestPermuteMatchesDirectEvalUnderRelabeling(t *testing.T) {
	base := NewSeparable1D[float64](0, 3, Abs, false)
	perm := NewPermute[float64](base, []int{2, 0, 1})

	arg := vec([]float64{1, -5, 3})
	tauDiag := vec([]float64{0, 0, 0})

	got := device.Alloc[float64](3, nil).Full()
	perm.Eval(got, arg, tauDiag, 0.5, false)

	// Position k reads from source Perm[k]; soft-threshold at tau=0.5
	// applied to the permuted values, then scattered back.
	want := make([]float64, 3)
	permuted := []float64{arg.Raw()[2], arg.Raw()[0], arg.Raw()[1]}
	thresholded := make([]float64, 3)
	for i, v := range permuted {
		thresholded[i] = softThreshold(v, 0.5)
	}
	for k, src := range []int{2, 0, 1} {
		want[src] = thresholded[k]
	}

	approxEqual(t, got.Raw(), want, 1e-12, "permute wrapper")
}

func TestAffineTransformSquareShift(t *testing.T) {
	// c*f(a*x+b) with f=square, a=1,b=0,c=1,d=0,e=0 must reduce to the
	// plain square prox.
	inner := NewSeparable1D[float64](0, 3, Square, false)
	aff := NewAffineTransform[float64](inner, 1, 0, 1, 0, 0)

	arg := vec([]float64{1, 2, 3})
	tauDiag := vec([]float64{0, 0, 0})

	got := device.Alloc[float64](3, nil).Full()
	aff.Eval(got, arg, tauDiag, 1, false)

	approxEqual(t, got.Raw(), []float64{0.5, 1.0, 1.5}, 1e-9, "affine identity reduces to square prox")
}

func TestSimplexProjectionSumsToOne(t *testing.T) {
	p := NewSimplexProj[float64](0, 3, 3, 1.0)
	arg := vec([]float64{0.2, 0.5, -0.1})
	tauDiag := vec([]float64{0, 0, 0})
	got := device.Alloc[float64](3, nil).Full()
	p.Eval(got, arg, tauDiag, 0, false)

	var sum float64
	for _, v := range got.Raw() {
		if v < -1e-12 {
			t.Errorf("simplex projection produced negative entry %v", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("simplex projection sum = %v, want 1", sum)
	}
}

func TestBallProjectionClampsNorm(t *testing.T) {
	p := NewBallProj[float64](0, 2, 2, 1.0)
	arg := vec([]float64{3, 4}) // norm 5
	tauDiag := vec([]float64{0, 0})
	got := device.Alloc[float64](2, nil).Full()
	p.Eval(got, arg, tauDiag, 0, false)

	norm := math.Hypot(got.Raw()[0], got.Raw()[1])
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("ball projection norm = %v, want 1", norm)
	}
}

func TestQuadraticDiagProx(t *testing.T) {
	q := NewQuadraticDiag[float64](0, []float64{1, 3}, false)
	arg := vec([]float64{2, 8})
	tauDiag := vec([]float64{0, 0})
	got := device.Alloc[float64](2, nil).Full()
	q.Eval(got, arg, tauDiag, 1, false)
	approxEqual(t, got.Raw(), []float64{1, 2}, 1e-12, "quadratic diag prox")
}
