package solver

import (
	"fmt"

	"github.com/cwbudde/prostsolve/internal/backend"
	"github.com/cwbudde/prostsolve/internal/device"
)

// Callback is the opaque intermediate callback invoked at scheduled
// iterations: receives the 1-based iteration count and the current
// primal/dual iterates (already un-swapped back to the caller's problem
// orientation), and may request an early stop by returning true.
type Callback[T device.Scalar] func(iteration int, x, y []T) bool

// buildSchedule returns the set of 0-based iteration indices (out of
// [0, maxIters-1]) at which the intermediate callback fires, spaced
// linearly across the run. Fewer than 2 requested points disables
// scheduled callbacks entirely (the final iteration still fires one,
// per Solve's own "last iteration" rule).
func buildSchedule(maxIters, numCbackCalls int) map[int]bool {
	schedule := make(map[int]bool)
	if numCbackCalls < 2 || maxIters < 1 {
		return schedule
	}
	last := maxIters - 1
	for i := 0; i < numCbackCalls; i++ {
		point := i * last / (numCbackCalls - 1)
		schedule[point] = true
	}
	return schedule
}

// verboseLine formats one diagnostic line per the documented (not
// stable-contract) format: iteration, primal residual/epsilon, dual
// residual/epsilon, all in scientific notation with two significant
// digits.
func verboseLine[T device.Scalar](iteration int, r backend.Residuals[T]) string {
	return fmt.Sprintf("it=%-6d primal_res=%.2e primal_eps=%.2e dual_res=%.2e dual_eps=%.2e",
		iteration, float64(r.Primal), float64(r.EpsPrimal), float64(r.Dual), float64(r.EpsDual))
}
