package linop

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/prostsolve/internal/device"
)

// TestGradient1DPreconditionerDiagonals reproduces the 1D forward
// gradient preconditioner scenario: n=10, alpha=1, interior sums=2,
// boundary sums=1 for both row and column queries.
func TestGradient1DPreconditionerDiagonals(t *testing.T) {
	n := 10
	g := NewGradient[float64](0, 0, []int{n}, BoundaryNeumann)
	if err := g.Initialize(PrecondConfig{Exponents: []float64{1}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for i := 0; i < n-1; i++ {
		if got := mustSum(t, g.RowSum(i, 1)); got != 2 {
			t.Errorf("RowSum(%d,1) = %v, want 2 (interior)", i, got)
		}
	}
	if got := mustSum(t, g.RowSum(n-1, 1)); got != 1 {
		t.Errorf("RowSum(%d,1) = %v, want 1 (boundary)", n-1, got)
	}

	if got := mustSum(t, g.ColSum(0, 1)); got != 1 {
		t.Errorf("ColSum(0,1) = %v, want 1 (boundary)", got)
	}
	for j := 1; j < n-1; j++ {
		if got := mustSum(t, g.ColSum(j, 1)); got != 2 {
			t.Errorf("ColSum(%d,1) = %v, want 2 (interior)", j, got)
		}
	}
	if got := mustSum(t, g.ColSum(n-1, 1)); got != 1 {
		t.Errorf("ColSum(%d,1) = %v, want 1 (boundary)", n-1, got)
	}
}

// mustSum unwraps a (float64, error) Block sum result, failing the test
// on a cache-miss error instead of silently propagating it as 0.
func mustSum(t *testing.T, v float64, err error) float64 {
	t.Helper()
	if err != nil {
		t.Fatalf("sum query failed: %v", err)
	}
	return v
}

// TestGradient2DAdjointConsistency is scenario S2: adjointness gap on a
// 16x16 image must be well below 1e-6 in double precision.
func TestGradient2DAdjointConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows, cols := 16, 16
	n := rows * cols
	g := NewGradient[float64](0, 0, []int{rows, cols}, BoundaryNeumann)
	if err := g.Initialize(PrecondConfig{Exponents: []float64{1}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	u := make([]float64, n)
	v := make([]float64, 2*n)
	for i := range u {
		u[i] = rng.NormFloat64()
	}
	for i := range v {
		v[i] = rng.NormFloat64()
	}

	gu := device.Alloc[float64](2*n, nil).Full()
	g.EvalAdd(gu, vec(u))
	gtv := device.Alloc[float64](n, nil).Full()
	g.EvalAdjointAdd(gtv, vec(v))

	lhs := dot(gu.Raw(), v)
	rhs := dot(u, gtv.Raw())
	gap := math.Abs(lhs - rhs)
	if gap >= 1e-6 {
		t.Errorf("2D gradient adjointness gap = %v, want < 1e-6", gap)
	}
}

func TestGradientDirichletBoundary(t *testing.T) {
	n := 4
	g := NewGradient[float64](0, 0, []int{n}, BoundaryDirichlet)
	if err := g.Initialize(PrecondConfig{Exponents: []float64{1}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	in := vec([]float64{1, 2, 3, 4})
	out := device.Alloc[float64](n, nil).Full()
	g.EvalAdd(out, in)
	want := []float64{1, 1, 1, -4} // x1-x0, x2-x1, x3-x2, 0-x3
	for i, w := range want {
		if out.Raw()[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out.Raw()[i], w)
		}
	}
}
