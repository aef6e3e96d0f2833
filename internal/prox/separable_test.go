package prox

import (
	"math"
	"testing"

	"github.com/cwbudde/prostsolve/internal/device"
)

func vec(data []float64) device.View[float64] {
	return device.FromHost(data, nil).Full()
}

func approxEqual(t *testing.T, got, want []float64, tol float64, msg string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length mismatch got %d want %d", msg, len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("%s: [%d] = %v, want %v", msg, i, got[i], want[i])
		}
	}
}

// TestSquareProx is scenario S3.
func TestSquareProx(t *testing.T) {
	p := NewSeparable1D[float64](0, 3, Square, false)
	arg := vec([]float64{1, 2, 3})
	result := device.Alloc[float64](3, nil).Full()
	tauDiag := vec([]float64{0, 0, 0})
	p.Eval(result, arg, tauDiag, 1, false)
	approxEqual(t, result.Raw(), []float64{0.5, 1.0, 1.5}, 1e-12, "square prox")
}

// TestBoxIndicatorProx is scenario S4.
func TestBoxIndicatorProx(t *testing.T) {
	p := NewSeparable1D[float64](0, 3, IndBox01, false)
	arg := vec([]float64{-0.3, 0.5, 1.7})
	result := device.Alloc[float64](3, nil).Full()
	tauDiag := vec([]float64{0, 0, 0})
	p.Eval(result, arg, tauDiag, 1, false)
	approxEqual(t, result.Raw(), []float64{0, 0.5, 1.0}, 1e-12, "box indicator prox")
}

// TestMoreauAbsIsClip is scenario S5: for inner prox = 1D abs with
// threshold (weight c) 0.5, the Moreau wrapper is the projection onto
// [-0.5, 0.5], whatever the step (evaluated here at tau = 0.5).
func TestMoreauAbsIsClip(t *testing.T) {
	inner := NewSeparable1D[float64](0, 3, Abs, false)
	inner.Shared.C = 0.5
	m := NewMoreau[float64](inner)
	arg := vec([]float64{-1, 0.2, 0.7})
	result := device.Alloc[float64](3, nil).Full()
	tauDiag := vec([]float64{0, 0, 0})
	m.Eval(result, arg, tauDiag, 0.5, false)
	approxEqual(t, result.Raw(), []float64{-0.5, 0.2, 0.5}, 1e-9, "moreau of abs")
}

// TestIndicatorProxIsIdempotent checks property 3's fixed-point clause:
// P(P(x)) == P(x) exactly for an indicator prox.
func TestIndicatorProxIsIdempotent(t *testing.T) {
	p := NewSeparable1D[float64](0, 3, IndBox01, false)
	arg := vec([]float64{-0.3, 0.5, 1.7})
	tauDiag := vec([]float64{0, 0, 0})

	once := device.Alloc[float64](3, nil).Full()
	p.Eval(once, arg, tauDiag, 1, false)

	twice := device.Alloc[float64](3, nil).Full()
	onceAsArg := vec(append([]float64(nil), once.Raw()...))
	p.Eval(twice, onceAsArg, tauDiag, 1, false)

	approxEqual(t, twice.Raw(), once.Raw(), 0, "idempotent indicator prox")
}

// TestMoreauIdentity checks property 3's general clause:
// prox_{tau f}(x) + tau*prox_{f*/tau}(x/tau) == x within sqrt(eps).
func TestMoreauIdentity(t *testing.T) {
	tau := 0.7
	arg := []float64{-1.3, 0.4, 2.2}

	base := NewSeparable1D[float64](0, 3, Abs, false)
	tauDiag := vec([]float64{0, 0, 0})

	proxF := device.Alloc[float64](3, nil).Full()
	base.Eval(proxF, vec(arg), tauDiag, tau, false)

	// prox_{f*/tau}(x/tau), via the Moreau-wrapped prox evaluated at
	// x/tau with the inverted step 1/tau.
	moreau := NewMoreau[float64](base)
	scaledArg := make([]float64, 3)
	for i, v := range arg {
		scaledArg[i] = v / tau
	}
	proxFStar := device.Alloc[float64](3, nil).Full()
	moreau.Eval(proxFStar, vec(scaledArg), tauDiag, tau, true)

	sum := make([]float64, 3)
	for i := range sum {
		sum[i] = proxF.Raw()[i] + tau*proxFStar.Raw()[i]
	}
	approxEqual(t, sum, arg, math.Sqrt(1e-12), "moreau identity")
}

// TestDoubleMoreau checks property 4: Moreau(Moreau(P)) approx P within sqrt(eps).
func TestDoubleMoreau(t *testing.T) {
	base := NewSeparable1D[float64](0, 3, Abs, false)
	once := NewMoreau[float64](base)
	twice := NewMoreau[float64](once)

	arg := vec([]float64{-1, 0.3, 2.5})
	tauDiag := vec([]float64{0, 0, 0})
	tau := float64(0.6)

	want := device.Alloc[float64](3, nil).Full()
	base.Eval(want, arg, tauDiag, tau, false)

	got := device.Alloc[float64](3, nil).Full()
	twice.Eval(got, arg, tauDiag, tau, false)

	approxEqual(t, got.Raw(), want.Raw(), math.Sqrt(1e-9), "double moreau")
}
