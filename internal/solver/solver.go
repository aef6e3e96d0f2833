package solver

import (
	"context"
	"log/slog"

	"github.com/cwbudde/prostsolve/internal/backend"
	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/problem"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

// StopReason identifies why a Solve run ended.
type StopReason int

const (
	StoppedMaxIters StopReason = iota
	Converged
	StoppedUser
)

func (r StopReason) String() string {
	switch r {
	case Converged:
		return "Converged"
	case StoppedUser:
		return "StoppedUser"
	default:
		return "StoppedMaxIters"
	}
}

// Options configures one Solve call.
type Options[T device.Scalar] struct {
	MaxIters      int
	NumCbackCalls int
	Verbose       bool

	// StopCallback is polled once per iteration (context cancellation is
	// the idiomatic Go equivalent of the stopping-callback poll, wired
	// in addition to an explicit callback for parity with the described
	// host interrupt mechanism).
	StopCallback func() bool
	Callback     Callback[T]
}

// Result is what Solve returns: the final iterates (already restored to
// the caller's original problem orientation even if solved dualized)
// and the reason iteration stopped.
type Result[T device.Scalar] struct {
	X, Kx, Y, Kty []T
	Stop          StopReason
	Iterations    int
}

// Solve drives be (already constructed over prob, possibly dualized)
// to convergence or a stopping condition, following exactly the
// iteration schedule: PerformIteration, residuals, poll stop, maybe
// fetch+callback, maybe break. prob.Dualized() determines whether x/y
// are swapped when presented to the caller, and Solve re-applies
// Dualize once at the end to restore the Problem's original
// orientation for reuse.
func Solve[T device.Scalar](ctx context.Context, prob *problem.Problem[T], be backend.Backend[T], opts Options[T]) (Result[T], error) {
	if opts.MaxIters <= 0 {
		return Result[T]{}, solverr.New(solverr.KindConfigError, "solver.Solve: max_iters must be > 0")
	}

	resetConstantMemory()
	schedule := buildSchedule(opts.MaxIters, opts.NumCbackCalls)
	wasDualized := prob.Dualized()

	var result Result[T]
	result.Stop = StoppedMaxIters

	for i := 0; i < opts.MaxIters; i++ {
		if err := be.PerformIteration(); err != nil {
			return Result[T]{}, solverr.Wrap(solverr.KindNumericError, "solver.Solve: iteration failed", err)
		}
		res := be.Residuals()

		stoppedUser := ctx.Err() != nil
		if !stoppedUser && opts.StopCallback != nil && opts.StopCallback() {
			stoppedUser = true
		}
		converged := res.Converged()
		isLast := i == opts.MaxIters-1

		if schedule[i] || converged || stoppedUser || isLast {
			x, kx, y, kty := be.CurrentSolution()
			if wasDualized {
				x, y = y, x
				kx, kty = kty, kx
			}
			if opts.Verbose {
				slog.Info(verboseLine(i+1, res))
			}
			if opts.Callback != nil && opts.Callback(i+1, x, y) {
				stoppedUser = true
			}
			result.X, result.Kx, result.Y, result.Kty = x, kx, y, kty
			result.Iterations = i + 1
		}

		if stoppedUser {
			result.Stop = StoppedUser
			break
		}
		if converged {
			result.Stop = Converged
			break
		}
	}

	if wasDualized {
		prob.Dualize()
	}
	return result, nil
}
