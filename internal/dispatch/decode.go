package dispatch

import (
	"fmt"

	"github.com/cwbudde/prostsolve/internal/linop"
	"github.com/cwbudde/prostsolve/internal/problem"
	"github.com/cwbudde/prostsolve/internal/prox"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

func configErrorf(format string, args ...any) error {
	return solverr.New(solverr.KindConfigError, fmt.Sprintf(format, args...))
}

func decodeBlock(d BlockDesc) (linop.Block[float64], error) {
	switch d.Kind {
	case "sparse_csr":
		if d.NRows == 0 || d.NCols == 0 {
			return nil, configErrorf("sparse_csr block: nrows/ncols required")
		}
		return linop.NewSparseCSR[float64](d.RowOffset, d.ColOffset, d.NRows, d.NCols, d.RowPtr, d.ColIdx, d.Values), nil
	case "sparse_csc":
		if d.NRows == 0 || d.NCols == 0 {
			return nil, configErrorf("sparse_csc block: nrows/ncols required")
		}
		return linop.NewSparseCSC[float64](d.RowOffset, d.ColOffset, d.NRows, d.NCols, d.ColPtr, d.RowIdx, d.Values), nil
	case "dense":
		if len(d.Matrix) == 0 {
			return nil, configErrorf("dense block: matrix required")
		}
		dense, err := linop.NewDense[float64](d.RowOffset, d.ColOffset, d.Matrix)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindConfigError, "dense block", err)
		}
		return dense, nil
	case "diagonal":
		if len(d.Diagonal) == 0 {
			return nil, configErrorf("diagonal block: diagonal required")
		}
		return linop.NewDiagonal[float64](d.RowOffset, d.Diagonal), nil
	case "zero":
		return linop.NewZero[float64](d.RowOffset, d.ColOffset, d.NRows, d.NCols), nil
	case "identity":
		if d.N <= 0 {
			return nil, configErrorf("identity block: n required")
		}
		return linop.NewIdentity[float64](d.RowOffset, d.N), nil
	case "gradient":
		if len(d.Dims) == 0 {
			return nil, configErrorf("gradient block: dims required")
		}
		policy, err := decodeBoundary(d.Boundary)
		if err != nil {
			return nil, err
		}
		return linop.NewGradient[float64](d.RowOffset, d.ColOffset, d.Dims, policy), nil
	case "dct":
		if d.Size <= 0 {
			return nil, configErrorf("dct block: size required")
		}
		return linop.NewDCTBlock[float64](d.RowOffset, d.Size), nil
	case "dst":
		if d.Size <= 0 {
			return nil, configErrorf("dst block: size required")
		}
		return linop.NewDSTBlock[float64](d.RowOffset, d.Size), nil
	case "prefactored":
		if d.Inner == nil || len(d.Scale) == 0 {
			return nil, configErrorf("prefactored block: inner and scale required")
		}
		inner, err := decodeBlock(*d.Inner)
		if err != nil {
			return nil, err
		}
		return linop.NewPrefactored[float64](inner, d.Scale), nil
	default:
		return nil, configErrorf("unrecognized block kind %q", d.Kind)
	}
}

func decodeBoundary(s string) (linop.BoundaryPolicy, error) {
	switch s {
	case "", "neumann":
		return linop.BoundaryNeumann, nil
	case "dirichlet":
		return linop.BoundaryDirichlet, nil
	default:
		return 0, configErrorf("unrecognized boundary policy %q", s)
	}
}

func decodeScalarFunc(s string) (prox.ScalarFunc, error) {
	switch s {
	case "zero":
		return prox.Zero, nil
	case "abs":
		return prox.Abs, nil
	case "square":
		return prox.Square, nil
	case "huber":
		return prox.Huber, nil
	case "l0":
		return prox.L0, nil
	case "ind_leq0":
		return prox.IndLeq0, nil
	case "ind_geq0":
		return prox.IndGeq0, nil
	case "ind_eq0":
		return prox.IndEq0, nil
	case "ind_box01":
		return prox.IndBox01, nil
	case "max_pos0":
		return prox.MaxPos0, nil
	default:
		return 0, configErrorf("unrecognized scalar function %q", s)
	}
}

func toCoeffs(c Coeffs) prox.Coeffs { return prox.Coeffs(c) }

func decodeProx(d ProxDesc) (prox.Prox[float64], error) {
	switch d.Kind {
	case "separable1d":
		fn, err := decodeScalarFunc(d.Fn)
		if err != nil {
			return nil, err
		}
		p := prox.NewSeparable1D[float64](d.Idx, d.Size, fn, d.DiagSteps)
		p.HuberDelt = d.HuberDelta
		if d.Shared != (Coeffs{}) {
			p.Shared = toCoeffs(d.Shared)
		}
		if len(d.PerCoord) > 0 {
			if len(d.PerCoord) != d.Size {
				return nil, configErrorf("separable1d: per_coord length %d != size %d", len(d.PerCoord), d.Size)
			}
			p.PerCoord = make([]prox.Coeffs, d.Size)
			for i, c := range d.PerCoord {
				p.PerCoord[i] = toCoeffs(c)
			}
		}
		return p, nil
	case "norm2group":
		if d.GroupSize <= 0 {
			return nil, configErrorf("norm2group: group_size required")
		}
		return prox.NewNorm2Group[float64](d.Idx, d.Size, d.GroupSize, d.Weight, d.DiagSteps), nil
	case "simplex":
		if d.Dim <= 0 {
			return nil, configErrorf("simplex: dim required")
		}
		return prox.NewSimplexProj[float64](d.Idx, d.Size, d.Dim, d.Scale), nil
	case "ball":
		if d.Dim <= 0 {
			return nil, configErrorf("ball: dim required")
		}
		return prox.NewBallProj[float64](d.Idx, d.Size, d.Dim, d.Radius), nil
	case "quadratic_diag":
		if len(d.Diag) == 0 {
			return nil, configErrorf("quadratic_diag: diag required")
		}
		return prox.NewQuadraticDiag[float64](d.Idx, d.Diag, d.DiagSteps), nil
	case "svd":
		if d.Rows <= 0 || d.Cols <= 0 {
			return nil, configErrorf("svd: rows/cols required")
		}
		return prox.NewSVDProx[float64](d.Idx, d.Rows, d.Cols, d.Weight), nil
	case "moreau":
		if d.Inner == nil {
			return nil, configErrorf("moreau: inner required")
		}
		inner, err := decodeProx(*d.Inner)
		if err != nil {
			return nil, err
		}
		return prox.NewMoreau[float64](inner), nil
	case "permute":
		if d.Inner == nil || len(d.Perm) == 0 {
			return nil, configErrorf("permute: inner and perm required")
		}
		inner, err := decodeProx(*d.Inner)
		if err != nil {
			return nil, err
		}
		return prox.NewPermute[float64](inner, d.Perm), nil
	case "affine":
		if d.Inner == nil {
			return nil, configErrorf("affine: inner required")
		}
		inner, err := decodeProx(*d.Inner)
		if err != nil {
			return nil, err
		}
		return prox.NewAffineTransform[float64](inner, d.A, d.B, d.C, d.D, d.E), nil
	default:
		return nil, configErrorf("unrecognized prox kind %q", d.Kind)
	}
}

func decodePrecond(s string) (problem.PrecondMode, error) {
	switch s {
	case "", "alpha":
		return problem.PrecondAlpha, nil
	case "off":
		return problem.PrecondOff, nil
	default:
		return 0, configErrorf("unrecognized precond mode %q", s)
	}
}

// resolvePrecondAlpha applies the documented precedence for the
// preconditioner exponent: an Options.PrecondAlpha set by the caller
// wins, falling back to ProblemDesc.PrecondAlpha, falling back to the
// Pock-Chambolle default of 1. Both decodeOperator (which builds K's
// row/col sum caches) and Problem.Alpha (which queries them) must be
// driven from this same resolved value, or the cache keys diverge
// silently.
func resolvePrecondAlpha(pd ProblemDesc, opts Options) float64 {
	alpha := opts.PrecondAlpha
	if alpha == 0 {
		alpha = pd.PrecondAlpha
	}
	if alpha == 0 {
		alpha = 1
	}
	return alpha
}

// decodeOperator builds and initializes a LinearOperator from a
// ProblemDesc's block list, caching row/col sums for exactly the
// exponents {1, 2-alpha, alpha} that a PrecondAlpha Problem built with
// the same alpha will query.
func decodeOperator(desc ProblemDesc, alpha float64) (*linop.LinearOperator[float64], error) {
	if desc.NRows <= 0 || desc.NCols <= 0 {
		return nil, configErrorf("problem: nrows/ncols must be > 0")
	}
	k := linop.NewLinearOperator[float64](desc.NRows, desc.NCols)
	for i, bd := range desc.Blocks {
		b, err := decodeBlock(bd)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindConfigError, fmt.Sprintf("block %d", i), err)
		}
		if err := k.AddBlock(b); err != nil {
			return nil, err
		}
	}
	if err := k.Initialize(linop.PrecondConfig{Exponents: []float64{1, 2 - alpha, alpha}}); err != nil {
		return nil, err
	}
	return k, nil
}

func decodeProxList(descs []ProxDesc) ([]prox.Prox[float64], error) {
	out := make([]prox.Prox[float64], len(descs))
	for i, d := range descs {
		p, err := decodeProx(d)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindConfigError, fmt.Sprintf("prox %d", i), err)
		}
		out[i] = p
	}
	return out, nil
}
