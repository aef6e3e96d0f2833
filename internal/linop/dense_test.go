package linop

import (
	"math"
	"testing"

	"github.com/cwbudde/prostsolve/internal/device"
)

// TestDenseSumCorrectness checks row_sum/col_sum against a direct dense
// materialization of the same values for a small matrix.
func TestDenseSumCorrectness(t *testing.T) {
	values := [][]float64{
		{1, -2, 0},
		{3, 4, -5},
	}
	d, err := NewDense[float64](0, 0, values)
	if err != nil {
		t.Fatalf("NewDense: %v", err)
	}
	if err := d.Initialize(PrecondConfig{Exponents: []float64{1, 2}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for i, row := range values {
		for _, p := range []float64{1, 2} {
			var want float64
			for _, v := range row {
				want += math.Pow(math.Abs(v), p)
			}
			got, err := d.RowSum(i, p)
			if err != nil {
				t.Fatalf("RowSum(%d,%v): %v", i, p, err)
			}
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("RowSum(%d,%v) = %v, want %v", i, p, got, want)
			}
		}
	}

	cols := len(values[0])
	for j := 0; j < cols; j++ {
		for _, p := range []float64{1, 2} {
			var want float64
			for _, row := range values {
				want += math.Pow(math.Abs(row[j]), p)
			}
			got, err := d.ColSum(j, p)
			if err != nil {
				t.Fatalf("ColSum(%d,%v): %v", j, p, err)
			}
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("ColSum(%d,%v) = %v, want %v", j, p, got, want)
			}
		}
	}
}

func TestDenseEvalMatchesMatVec(t *testing.T) {
	values := [][]float64{
		{2, 0},
		{1, 3},
		{-1, 1},
	}
	d, err := NewDense[float64](0, 0, values)
	if err != nil {
		t.Fatalf("NewDense: %v", err)
	}
	if err := d.Initialize(PrecondConfig{Exponents: []float64{1}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	in := vec([]float64{2, -1})
	out := device.Alloc[float64](3, nil).Full()
	d.EvalAdd(out, in)
	want := []float64{4, -1, -3}
	for i, w := range want {
		if math.Abs(out.Raw()[i]-w) > 1e-9 {
			t.Errorf("out[%d] = %v, want %v", i, out.Raw()[i], w)
		}
	}
}
