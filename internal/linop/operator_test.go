package linop

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/prostsolve/internal/device"
)

func vec(data []float64) device.View[float64] {
	return device.FromHost(data, nil).Full()
}

func buildDiagOperator(t *testing.T, n int, values []float64) *LinearOperator[float64] {
	t.Helper()
	op := NewLinearOperator[float64](n, n)
	if err := op.AddBlock(NewDiagonal[float64](0, values)); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if err := op.Initialize(PrecondConfig{Exponents: []float64{1, 2}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return op
}

func TestLinearOperatorDiagonalEval(t *testing.T) {
	op := buildDiagOperator(t, 3, []float64{2, 3, 4})
	in := vec([]float64{1, 1, 1})
	out := device.Alloc[float64](3, nil).Full()
	if err := op.Eval(out, in); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := []float64{2, 3, 4}
	for i, v := range out.Raw() {
		if v != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestLinearOperatorAddBlockAfterInitializeFails(t *testing.T) {
	op := buildDiagOperator(t, 3, []float64{1, 1, 1})
	if err := op.AddBlock(NewIdentity[float64](0, 3)); err == nil {
		t.Fatal("expected InvalidState error, got nil")
	}
}

func TestLinearOperatorOverlapRejected(t *testing.T) {
	op := NewLinearOperator[float64](2, 2)
	if err := op.AddBlock(NewIdentity[float64](0, 2)); err != nil {
		t.Fatalf("AddBlock 1: %v", err)
	}
	if err := op.AddBlock(NewDiagonal[float64](0, []float64{1, 1})); err != nil {
		t.Fatalf("AddBlock 2: %v", err)
	}
	if err := op.Initialize(PrecondConfig{Exponents: []float64{1}}); err == nil {
		t.Fatal("expected InvalidStructure error on overlapping blocks, got nil")
	}
}

func TestLinearOperatorShapeMismatch(t *testing.T) {
	op := buildDiagOperator(t, 3, []float64{1, 1, 1})
	bad := vec([]float64{1, 1})
	out := device.Alloc[float64](3, nil).Full()
	if err := op.Eval(out, bad); err == nil {
		t.Fatal("expected ShapeMismatch error, got nil")
	}
}

// TestAdjointConsistency checks |<Ku,v> - <u,Ktv>| <= eps*(|u||v|) for a
// composite built from several block kinds glued together, for random u,v.
func TestAdjointConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	op := NewLinearOperator[float64](7, 5)
	if err := op.AddBlock(NewDiagonal[float64](0, []float64{1.5, -2, 3})); err != nil {
		t.Fatalf("AddBlock diag: %v", err)
	}
	sparse := NewSparseCSR[float64](3, 0, 2, 3,
		[]int{0, 2, 4},
		[]int{0, 1, 1, 2},
		[]float64{2, -1, 0.5, 3})
	if err := op.AddBlock(sparse); err != nil {
		t.Fatalf("AddBlock sparse: %v", err)
	}
	dense, err := NewDense[float64](5, 3, [][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("NewDense: %v", err)
	}
	if err := op.AddBlock(dense); err != nil {
		t.Fatalf("AddBlock dense: %v", err)
	}
	if err := op.Initialize(PrecondConfig{Exponents: []float64{1, 2}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	u := make([]float64, 5)
	v := make([]float64, 7)
	for i := range u {
		u[i] = rng.NormFloat64()
	}
	for i := range v {
		v[i] = rng.NormFloat64()
	}

	ku := device.Alloc[float64](7, nil).Full()
	if err := op.Eval(ku, vec(u)); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	ktv := device.Alloc[float64](5, nil).Full()
	if err := op.EvalAdjoint(ktv, vec(v)); err != nil {
		t.Fatalf("EvalAdjoint: %v", err)
	}

	lhs := dot(ku.Raw(), v)
	rhs := dot(u, ktv.Raw())

	normU, normV := norm(u), norm(v)
	gap := math.Abs(lhs - rhs)
	eps := 1e-9
	if gap > eps*(normU*normV+1) {
		t.Errorf("adjoint consistency violated: |<Ku,v>-<u,Ktv>| = %v, bound %v", gap, eps*(normU*normV+1))
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
