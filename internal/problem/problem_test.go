package problem

import (
	"math"
	"testing"

	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/linop"
	"github.com/cwbudde/prostsolve/internal/prox"
)

func build1DGradientProblem(t *testing.T, n int) (*Problem[float64], *linop.LinearOperator[float64]) {
	t.Helper()
	k := linop.NewLinearOperator[float64](n, n)
	g := linop.NewGradient[float64](0, 0, []int{n}, linop.BoundaryNeumann)
	if err := k.AddBlock(g); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if err := k.Initialize(linop.PrecondConfig{Exponents: []float64{1}}); err != nil {
		t.Fatalf("Initialize operator: %v", err)
	}

	gProx := []prox.Prox[float64]{prox.NewSeparable1D[float64](0, n, prox.Zero, false)}
	fProx := []prox.Prox[float64]{prox.NewSeparable1D[float64](0, n, prox.Abs, false)}

	p := New[float64](k, gProx, fProx, PrecondAlpha, 1)
	if err := p.Initialize(); err != nil {
		t.Fatalf("Problem.Initialize: %v", err)
	}
	return p, k
}

// TestPreconditionerDiagonals is scenario S6.
func TestPreconditionerDiagonals(t *testing.T) {
	n := 10
	p, _ := build1DGradientProblem(t, n)

	tau := p.Tau.CopyToHost()
	sigma := p.Sigma.CopyToHost()

	if math.Abs(tau[0]-1) > 1e-12 {
		t.Errorf("tau[0] = %v, want 1 (boundary)", tau[0])
	}
	for c := 1; c < n-1; c++ {
		if math.Abs(tau[c]-0.5) > 1e-12 {
			t.Errorf("tau[%d] = %v, want 0.5 (interior)", c, tau[c])
		}
	}
	if math.Abs(tau[n-1]-1) > 1e-12 {
		t.Errorf("tau[%d] = %v, want 1 (boundary)", n-1, tau[n-1])
	}

	for r := 0; r < n-1; r++ {
		if math.Abs(sigma[r]-0.5) > 1e-12 {
			t.Errorf("sigma[%d] = %v, want 0.5 (interior)", r, sigma[r])
		}
	}
	if math.Abs(sigma[n-1]-1) > 1e-12 {
		t.Errorf("sigma[%d] = %v, want 1 (boundary)", n-1, sigma[n-1])
	}
}

// TestDualizeTwiceIsIdentity checks that Dualize applied twice restores
// the original K/G/F*/preconditioners, the building block property 6
// (dualization symmetry) relies on.
func TestDualizeTwiceIsIdentity(t *testing.T) {
	p, k := build1DGradientProblem(t, 6)

	origG, origFStar := p.G, p.FStar
	origTau, origSigma := p.Tau, p.Sigma

	p.Dualize()
	if !p.Dualized() {
		t.Fatal("expected Dualized() true after one Dualize call")
	}
	if p.K.NRows() != k.NCols() || p.K.NCols() != k.NRows() {
		t.Fatalf("dualized operator shape = (%d,%d), want (%d,%d)", p.K.NRows(), p.K.NCols(), k.NCols(), k.NRows())
	}

	p.Dualize()
	if p.Dualized() {
		t.Fatal("expected Dualized() false after two Dualize calls")
	}
	if len(p.G) != len(origG) || len(p.FStar) != len(origFStar) {
		t.Fatal("G/F* not restored after double Dualize")
	}
	if p.Tau != origTau || p.Sigma != origSigma {
		t.Fatal("Tau/Sigma not restored after double Dualize")
	}
}

func vec(data []float64) device.View[float64] {
	return device.FromHost(data, nil).Full()
}
