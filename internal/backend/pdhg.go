package backend

import (
	"math"

	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/problem"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

// PDHG is the Chambolle-Pock primal-dual backend: x_new =
// prox_{tau*G}(x - tau*Kt*y), x_bar = x_new + theta*(x_new - x),
// y_new = prox_{sigma*F*}(y + sigma*K*x_bar). Tau/Sigma vectors come
// from the Problem's preconditioner; tauScalar/sigmaScalar are the
// evolving global multipliers the stepsize variants adapt.
type PDHG[T device.Scalar] struct {
	prob *problem.Problem[T]
	opts Options[T]

	ncols, nrows int

	x, y         *device.Vector[T]
	kx, kty      *device.Vector[T] // K*x, Kt*y for the CURRENT iterate
	tauScalar    T
	sigmaScalar  T
	theta        T
	iter         int
	lastResidual Residuals[T]
}

// New builds a PDHG backend over prob (already Problem.Initialize'd),
// seeded at x0/y0 (nil means zero-initialized).
func New[T device.Scalar](prob *problem.Problem[T], opts Options[T], x0, y0 []T) (*PDHG[T], error) {
	ncols, nrows := prob.K.NCols(), prob.K.NRows()

	x := device.Alloc[T](ncols, nil)
	if x0 != nil {
		if len(x0) != ncols {
			return nil, solverr.New(solverr.KindShapeMismatch, "backend.New: x0 length mismatch")
		}
		x.CopyFromHost(x0)
	}
	y := device.Alloc[T](nrows, nil)
	if y0 != nil {
		if len(y0) != nrows {
			return nil, solverr.New(solverr.KindShapeMismatch, "backend.New: y0 length mismatch")
		}
		y.CopyFromHost(y0)
	}

	kx := device.Alloc[T](nrows, nil)
	if err := prob.K.Eval(kx.Full(), x.Full()); err != nil {
		return nil, solverr.Wrap(solverr.KindResourceError, "backend.New: initial K*x0", err)
	}
	kty := device.Alloc[T](ncols, nil)
	if err := prob.K.EvalAdjoint(kty.Full(), y.Full()); err != nil {
		return nil, solverr.Wrap(solverr.KindResourceError, "backend.New: initial Kt*y0", err)
	}

	theta := opts.Theta
	if theta == 0 {
		theta = 1
	}

	return &PDHG[T]{
		prob: prob, opts: opts,
		ncols: ncols, nrows: nrows,
		x: x, y: y, kx: kx, kty: kty,
		tauScalar: 1, sigmaScalar: 1, theta: theta,
	}, nil
}

// Release drops the backend's device buffers. Problem/operator/prox
// storage is owned elsewhere and untouched.
func (p *PDHG[T]) Release() {
	p.x, p.y, p.kx, p.kty = nil, nil, nil, nil
}

func (p *PDHG[T]) Residuals() Residuals[T] { return p.lastResidual }

func (p *PDHG[T]) CurrentSolution() (x, kx, y, kty []T) {
	return p.x.CopyToHost(), p.kx.CopyToHost(), p.y.CopyToHost(), p.kty.CopyToHost()
}

// PerformIteration runs one PDHG step (alg2/goldstein apply their own
// pre/post adjustments around the core update).
func (p *PDHG[T]) PerformIteration() error {
	if p.opts.Stepsize == StepsizeAlg2 && p.iter > 0 {
		p.applyAlg2Schedule()
	}

	tauUsed, sigmaUsed := p.tauScalar, p.sigmaScalar
	xNew, yNew, kxNew, ktyNew, dx, dy, err := p.step(tauUsed, sigmaUsed)
	if err != nil {
		return err
	}

	if p.opts.Stepsize == StepsizeGoldstein {
		xNew, yNew, kxNew, ktyNew, dx, dy, tauUsed, sigmaUsed, err = p.goldsteinBacktrack(xNew, yNew, kxNew, ktyNew, dx, dy)
		if err != nil {
			return err
		}
	}

	// Residuals must be evaluated at tauUsed/sigmaUsed, the step sizes
	// that actually produced dx/dy/xNew/yNew — not p.tauScalar/
	// p.sigmaScalar, which goldsteinBacktrack may already have grown
	// for the next iteration below.
	residual, err := p.computeResiduals(dx, dy, kxNew, ktyNew, xNew, yNew, tauUsed, sigmaUsed)
	if err != nil {
		return err
	}
	p.lastResidual = residual

	p.x, p.y, p.kx, p.kty = xNew, yNew, kxNew, ktyNew
	p.iter++

	if p.opts.Stepsize == StepsizeGoldstein {
		p.tauScalar = tauUsed * p.opts.GoldsteinDelta
		p.sigmaScalar = sigmaUsed * p.opts.GoldsteinDelta
	}

	if p.opts.Adapt == AdaptBalance && p.iter%max(p.opts.BalanceWindow, 1) == 0 {
		p.rebalance()
	}
	return nil
}

// step computes one PDHG update at the given scalar step sizes,
// returning the new iterates, K*xNew, Kt*yNew, and the primal/dual
// deltas, without mutating backend state (so goldstein backtracking
// can retry at shrunk steps before committing).
func (p *PDHG[T]) step(tauScalar, sigmaScalar T) (xNew, yNew, kxNew, ktyNew, dx, dy *device.Vector[T], err error) {
	tau := p.prob.Tau
	sigma := p.prob.Sigma

	argX := device.Alloc[T](p.ncols, nil)
	p.x.Full().CopyInto(argX.Full())
	scaledKty := device.Alloc[T](p.ncols, nil)
	scaledKty.Full().Mul(tau.Full(), p.kty.Full())
	argX.Full().AXPY(-tauScalar, scaledKty.Full())

	xNew = device.Alloc[T](p.ncols, nil)
	for _, g := range p.prob.G {
		g.Eval(xNew.Full(), argX.Full(), tau.Full(), tauScalar, false)
	}

	dx = device.Alloc[T](p.ncols, nil)
	xNew.Full().CopyInto(dx.Full())
	dx.Full().AXPY(-1, p.x.Full())

	xBar := device.Alloc[T](p.ncols, nil)
	xNew.Full().CopyInto(xBar.Full())
	xBar.Full().AXPY(p.theta, dx.Full())

	kxBar := device.Alloc[T](p.nrows, nil)
	if err = p.prob.K.Eval(kxBar.Full(), xBar.Full()); err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}

	argY := device.Alloc[T](p.nrows, nil)
	p.y.Full().CopyInto(argY.Full())
	scaledKx := device.Alloc[T](p.nrows, nil)
	scaledKx.Full().Mul(sigma.Full(), kxBar.Full())
	argY.Full().AXPY(sigmaScalar, scaledKx.Full())

	yNew = device.Alloc[T](p.nrows, nil)
	for _, f := range p.prob.FStar {
		f.Eval(yNew.Full(), argY.Full(), sigma.Full(), sigmaScalar, false)
	}

	dy = device.Alloc[T](p.nrows, nil)
	yNew.Full().CopyInto(dy.Full())
	dy.Full().AXPY(-1, p.y.Full())

	kxNew = device.Alloc[T](p.nrows, nil)
	if err = p.prob.K.Eval(kxNew.Full(), xNew.Full()); err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	ktyNew = device.Alloc[T](p.ncols, nil)
	if err = p.prob.K.EvalAdjoint(ktyNew.Full(), yNew.Full()); err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}

	return xNew, yNew, kxNew, ktyNew, dx, dy, nil
}

// computeResiduals evaluates primal_res = ||dx/tau - Kt*dy||_1,
// dual_res = ||dy/sigma - K*dx||_1 at the tauScalar/sigmaScalar that
// actually produced dx/dy — the caller's job, not this function's, to
// make sure of that (see PerformIteration).
func (p *PDHG[T]) computeResiduals(dx, dy, kxNew, ktyNew, xNew, yNew *device.Vector[T], tauScalar, sigmaScalar T) (Residuals[T], error) {
	ktDy := device.Alloc[T](p.ncols, nil)
	ktDy.Full().AXPY(1, ktyNew.Full())
	ktDy.Full().AXPY(-1, p.kty.Full())

	kDx := device.Alloc[T](p.nrows, nil)
	kDx.Full().AXPY(1, kxNew.Full())
	kDx.Full().AXPY(-1, p.kx.Full())

	scaledDx := device.Alloc[T](p.ncols, nil)
	divideElemwise(scaledDx.Full(), dx.Full(), p.prob.Tau.Full(), tauScalar)
	primalTerm := device.Alloc[T](p.ncols, nil)
	primalTerm.Full().AXPY(1, scaledDx.Full())
	primalTerm.Full().AXPY(-1, ktDy.Full())

	scaledDy := device.Alloc[T](p.nrows, nil)
	divideElemwise(scaledDy.Full(), dy.Full(), p.prob.Sigma.Full(), sigmaScalar)
	dualTerm := device.Alloc[T](p.nrows, nil)
	dualTerm.Full().AXPY(1, scaledDy.Full())
	dualTerm.Full().AXPY(-1, kDx.Full())

	primalRes := primalTerm.Full().SumAbs()
	dualRes := dualTerm.Full().SumAbs()

	if isNonFinite(primalRes) || isNonFinite(dualRes) {
		return Residuals[T]{}, solverr.New(solverr.KindNumericError, "backend.PerformIteration: non-finite residual")
	}

	epsPri := p.opts.TolAbs*T(math.Sqrt(float64(p.ncols))) + p.opts.TolRel*xNew.Full().NormL2()
	epsDua := p.opts.TolAbs*T(math.Sqrt(float64(p.nrows))) + p.opts.TolRel*yNew.Full().NormL2()

	return Residuals[T]{Primal: primalRes, Dual: dualRes, EpsPrimal: epsPri, EpsDual: epsDua}, nil
}

func divideElemwise[T device.Scalar](dst, num device.View[T], denom device.View[T], scalar T) {
	d, n, s := dst.Raw(), num.Raw(), denom.Raw()
	for i := range d {
		step := scalar * s[i]
		if step == 0 {
			d[i] = 0
			continue
		}
		d[i] = n[i] / step
	}
}

func isNonFinite[T device.Scalar](v T) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// applyAlg2Schedule implements the accelerated (strongly convex G,
// modulus Gamma) stepsize rule: theta_n = 1/sqrt(1+2*Gamma*tau),
// tau <- theta_n*tau, sigma <- sigma/theta_n. The resulting theta is
// used for this iteration's extrapolation.
func (p *PDHG[T]) applyAlg2Schedule() {
	gamma := float64(p.opts.Gamma)
	tau := float64(p.tauScalar)
	thetaN := 1 / math.Sqrt(1+2*gamma*tau)
	p.theta = T(thetaN)
	p.tauScalar = T(thetaN * tau)
	p.sigmaScalar = T(float64(p.sigmaScalar) / thetaN)
}

// goldsteinBacktrack enforces the descent inequality
// 2*tau*sigma*||K(x+-x)||^2 <= alpha*(||x+-x||^2/tau + ||y+-y||^2/sigma),
// shrinking tau/sigma by Eta and retrying (bounded) on violation. It
// returns the tau/sigma actually used to produce the accepted
// xNew/yNew/dx/dy alongside them; it does not touch p.tauScalar/
// p.sigmaScalar — growing those by Delta for the next iteration is the
// caller's job, done only after residuals have been computed at the
// accepted step sizes (see PerformIteration).
func (p *PDHG[T]) goldsteinBacktrack(xNew, yNew, kxNew, ktyNew, dx, dy *device.Vector[T]) (xOut, yOut, kxOut, ktyOut, dxOut, dyOut *device.Vector[T], tauUsed, sigmaUsed T, err error) {
	tau, sigma := p.tauScalar, p.sigmaScalar

	for attempt := 0; attempt < p.opts.GoldsteinMaxBT; attempt++ {
		kDx := device.Alloc[T](p.nrows, nil)
		kDx.Full().AXPY(1, kxNew.Full())
		kDx.Full().AXPY(-1, p.kx.Full())

		normKDxSq := square(kDx.Full().NormL2())
		normDxSq := square(dx.Full().NormL2())
		normDySq := square(dy.Full().NormL2())

		lhs := 2 * tau * sigma * normKDxSq
		rhs := p.opts.GoldsteinAlpha * (normDxSq/tau + normDySq/sigma)

		if lhs <= rhs {
			return xNew, yNew, kxNew, ktyNew, dx, dy, tau, sigma, nil
		}

		tau *= p.opts.GoldsteinEta
		sigma *= p.opts.GoldsteinEta
		xNew, yNew, kxNew, ktyNew, dx, dy, err = p.step(tau, sigma)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, 0, 0, err
		}
	}

	return xNew, yNew, kxNew, ktyNew, dx, dy, tau, sigma, nil
}

func square[T device.Scalar](v T) T { return v * v }

// rebalance rescales tau/sigma (product-preserved) and x/y/Kx/Kty
// symmetrically so the primal/dual residual ratio tracks within
// [BalanceLo, BalanceHi], exploiting PDHG's gauge freedom
// (x,y,tau,sigma) -> (x/s, y*s, tau*s, sigma/s) which leaves every
// update equation invariant.
func (p *PDHG[T]) rebalance() {
	dual := float64(p.lastResidual.Dual)
	if dual == 0 {
		return
	}
	ratio := float64(p.lastResidual.Primal) / dual

	var s float64
	switch {
	case ratio > float64(p.opts.BalanceHi):
		s = float64(p.opts.BalanceGrow)
	case ratio < float64(p.opts.BalanceLo):
		s = float64(p.opts.BalanceShrink)
	default:
		return
	}

	p.tauScalar = T(float64(p.tauScalar) * s)
	p.sigmaScalar = T(float64(p.sigmaScalar) / s)
	p.x.Full().Scale(T(1 / s))
	p.y.Full().Scale(T(s))
	p.kx.Full().Scale(T(1 / s))
	p.kty.Full().Scale(T(s))
}
