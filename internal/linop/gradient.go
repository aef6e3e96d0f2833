package linop

import "github.com/cwbudde/prostsolve/internal/device"

// BoundaryPolicy selects how a forward-difference stencil treats the
// domain boundary.
type BoundaryPolicy int

const (
	// BoundaryNeumann zero-pads: the forward difference at the last
	// index along an axis is identically zero (reflecting boundary).
	BoundaryNeumann BoundaryPolicy = iota
	// BoundaryDirichlet treats the domain as bordered by a fixed zero
	// value: the forward difference at the last index is -x there.
	BoundaryDirichlet
)

// Gradient is an N-dimensional (N in {1,2,3}) forward-difference
// stencil block. Output is stacked axis-major: rows [a*n, (a+1)*n)
// hold the forward difference along axis a, where n = product(dims).
// Row/col absolute-sum queries are answered analytically rather than by
// sampling, per the requirement that interior pixels contribute sum=2
// (for p=1) and boundary contribute a documented constant — see
// rowSumAnalytic/colSumAnalyticAxis below for the boundary convention.
type Gradient[T device.Scalar] struct {
	base
	dims    []int
	strides []int
	n       int
	naxes   int
	policy  BoundaryPolicy
}

// NewGradient builds a gradient block over a row-major grid of shape
// dims (len(dims) in {1,2,3}), placed with its input column block at
// colOffset (length n = prod(dims)) and its output row block at
// rowOffset (length len(dims)*n).
func NewGradient[T device.Scalar](rowOffset, colOffset int, dims []int, policy BoundaryPolicy) *Gradient[T] {
	n := 1
	for _, d := range dims {
		n *= d
	}
	strides := make([]int, len(dims))
	acc := 1
	for a := len(dims) - 1; a >= 0; a-- {
		strides[a] = acc
		acc *= dims[a]
	}
	return &Gradient[T]{
		base:    newBase(rowOffset, colOffset, len(dims)*n, n),
		dims:    dims,
		strides: strides,
		n:       n,
		naxes:   len(dims),
		policy:  policy,
	}
}

func (g *Gradient[T]) coord(axis, i int) int {
	return (i / g.strides[axis]) % g.dims[axis]
}

func (g *Gradient[T]) Initialize(cfg PrecondConfig) error {
	g.cacheSums(cfg, func(p float64) []float64 {
		sums := make([]float64, g.nrows)
		for a := 0; a < g.naxes; a++ {
			for i := 0; i < g.n; i++ {
				sums[a*g.n+i] = g.rowSumAnalytic(a, i, p)
			}
		}
		return sums
	}, func(p float64) []float64 {
		sums := make([]float64, g.ncols)
		for a := 0; a < g.naxes; a++ {
			for j := 0; j < g.n; j++ {
				sums[j] += g.colSumAnalyticAxis(a, j, p)
			}
		}
		return sums
	})
	return nil
}

// rowSumAnalytic returns Σ|M_ij|^p for the forward-difference row at
// axis a, local input index i. Non-boundary rows have exactly two unit
// entries (sum=2 for any p, since |±1|=1). Boundary rows have a single
// unit entry under Dirichlet; under Neumann the row is structurally
// zero but is reported as 1 rather than 0 so that a preconditioner
// built from it stays finite (1/0 would blow up for a fully decoupled
// output index). colSumAnalyticAxis has no such floor: it counts the
// column's nonzero entries exactly, so a column can report 0 on an axis.
func (g *Gradient[T]) rowSumAnalytic(axis, i int, p float64) float64 {
	if g.coord(axis, i) < g.dims[axis]-1 {
		return 2
	}
	return 1
}

func (g *Gradient[T]) colSumAnalyticAxis(axis, j int, p float64) float64 {
	var s float64
	coord := g.coord(axis, j)
	if coord < g.dims[axis]-1 {
		s += 1
	} else if g.policy == BoundaryDirichlet {
		s += 1
	}
	if coord >= 1 {
		s += 1
	}
	return s
}

func (g *Gradient[T]) EvalAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for a := 0; a < g.naxes; a++ {
		rowBase := a * g.n
		stride := g.strides[a]
		last := g.dims[a] - 1
		for i := 0; i < g.n; i++ {
			if g.coord(a, i) < last {
				o[rowBase+i] += x[i+stride] - x[i]
			} else if g.policy == BoundaryDirichlet {
				o[rowBase+i] += -x[i]
			}
			// BoundaryNeumann: row is identically zero, nothing to add.
		}
	}
}

func (g *Gradient[T]) EvalAdjointAdd(out, in device.View[T]) {
	o, x := out.Raw(), in.Raw()
	for a := 0; a < g.naxes; a++ {
		rowBase := a * g.n
		stride := g.strides[a]
		last := g.dims[a] - 1
		for i := 0; i < g.n; i++ {
			coord := g.coord(a, i)
			v := x[rowBase+i]
			if coord < last {
				o[i] -= v
				o[i+stride] += v
			} else if g.policy == BoundaryDirichlet {
				o[i] -= v
			}
		}
	}
}

func (g *Gradient[T]) RowSum(i int, p float64) (float64, error) { return g.rowSum(i, p) }
func (g *Gradient[T]) ColSum(j int, p float64) (float64, error) { return g.colSum(j, p) }
