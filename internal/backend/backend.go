// Package backend implements the primal-dual iteration engine: the
// Chambolle-Pock PDHG update, its adaptive-step-size and backtracking
// variants, and the residual/convergence bookkeeping the Solver polls
// every iteration.
package backend

import "github.com/cwbudde/prostsolve/internal/device"

// StepsizeMode selects how tau/sigma evolve across iterations.
type StepsizeMode int

const (
	StepsizePDHG StepsizeMode = iota
	StepsizeAlg2
	StepsizeGoldstein
)

// AdaptMode selects the periodic rebalancing strategy.
type AdaptMode int

const (
	AdaptOff AdaptMode = iota
	AdaptBalance
)

// Options configures a Backend instance. TolAbs/TolRel are convergence
// tolerances; Gamma is the strong-convexity modulus alg2 needs;
// Goldstein* tune the backtracking line search; Balance* tune the
// periodic tau/sigma rebalancing.
type Options[T device.Scalar] struct {
	Stepsize StepsizeMode
	Adapt    AdaptMode
	TolAbs   T
	TolRel   T
	Theta    T // extrapolation weight, 1 by default

	// alg2 (accelerated, requires G strongly convex with modulus Gamma > 0)
	Gamma T

	// goldstein backtracking
	GoldsteinAlpha T // descent-inequality slack, in (0,1)
	GoldsteinEta   T // shrink factor on violation, in (0,1)
	GoldsteinDelta T // grow factor on ample slack, > 1
	GoldsteinMaxBT int

	// adapt=balance
	BalanceWindow int // iterations between rebalancing checks
	BalanceGrow   T   // e.g. 1.02
	BalanceShrink T   // e.g. 0.98
	BalanceLo     T   // target primal/dual residual ratio lower bound
	BalanceHi     T   // target primal/dual residual ratio upper bound
}

// DefaultOptions returns the tuning defaults: goldstein alpha=0.95,
// eta=0.8, delta=1.05, maxBT=10; balance window=10, grow=1.02,
// shrink=0.98, ratio target [0.5, 2.0] (the balance values are also
// listed in DESIGN.md).
func DefaultOptions[T device.Scalar]() Options[T] {
	return Options[T]{
		Stepsize:       StepsizePDHG,
		Adapt:          AdaptOff,
		TolAbs:         T(1e-6),
		TolRel:         T(1e-4),
		Theta:          1,
		GoldsteinAlpha: T(0.95),
		GoldsteinEta:   T(0.8),
		GoldsteinDelta: T(1.05),
		GoldsteinMaxBT: 10,
		BalanceWindow:  10,
		BalanceGrow:    T(1.02),
		BalanceShrink:  T(0.98),
		BalanceLo:      T(0.5),
		BalanceHi:      T(2.0),
	}
}

// Residuals holds the primal/dual residual norms and their convergence
// thresholds for the current iterate.
type Residuals[T device.Scalar] struct {
	Primal, Dual       T
	EpsPrimal, EpsDual T
}

// Converged reports whether both residuals are within their epsilons.
func (r Residuals[T]) Converged() bool {
	return r.Primal < r.EpsPrimal && r.Dual < r.EpsDual
}

// Backend is the primal-dual engine contract the Solver drives.
type Backend[T device.Scalar] interface {
	PerformIteration() error
	Residuals() Residuals[T]
	// CurrentSolution materializes the four host-visible observables:
	// x, Kx, y, Ktx (Kᵀy), synchronized before return.
	CurrentSolution() (x, kx, y, kty []T)
	Release()
}
