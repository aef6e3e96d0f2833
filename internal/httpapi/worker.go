package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/prostsolve/internal/dispatch"
	"github.com/cwbudde/prostsolve/internal/resultio"
	"gonum.org/v1/gonum/floats"
)

// runSolve executes one solve_problem invocation in the background,
// broadcasting progress over SSE and persisting the trace and final
// result under baseDir — the Solve-scoped counterpart to the teacher's
// runJob.
func runSolve(ctx context.Context, jm *JobManager, baseDir, solveID string) error {
	solve, exists := jm.GetSolve(solveID)
	if !exists {
		return fmt.Errorf("solve not found: %s", solveID)
	}

	jm.UpdateSolve(solveID, func(s *Solve) { s.State = StateRunning })
	slog.Info("starting solve", "solve_id", solveID)

	traceWriter, err := resultio.NewTraceWriter(baseDir, solveID)
	if err != nil {
		slog.Warn("failed to create trace writer", "solve_id", solveID, "error", err)
	} else {
		defer func() {
			if err := traceWriter.Close(); err != nil {
				slog.Warn("failed to close trace writer", "solve_id", solveID, "error", err)
			}
		}()
	}

	opts := solve.Options
	opts.Callback = func(iteration int, x, y []float64) bool {
		xNorm := floats.Norm(x, 2)
		yNorm := floats.Norm(y, 2)

		jm.UpdateSolve(solveID, func(s *Solve) { s.Iterations = iteration })
		jm.broadcaster.Broadcast(ProgressEvent{
			SolveID:   solveID,
			State:     StateRunning,
			Iteration: iteration,
			XNorm:     xNorm,
			YNorm:     yNorm,
			Timestamp: time.Now(),
		})

		if traceWriter != nil {
			if err := traceWriter.Write(resultio.TraceEntry{
				Iteration: iteration,
				XNorm:     xNorm,
				YNorm:     yNorm,
				Timestamp: time.Now(),
			}); err != nil {
				slog.Warn("failed to write trace entry", "solve_id", solveID, "error", err)
			}
		}
		return false
	}

	start := time.Now()
	res, err := dispatch.SolveProblem(ctx, solve.ProblemDesc, solve.BackendDesc, opts)
	elapsed := time.Since(start)

	endTime := time.Now()
	if err != nil {
		jm.UpdateSolve(solveID, func(s *Solve) {
			s.State = StateFailed
			s.Error = err.Error()
			s.EndTime = &endTime
		})
		slog.Error("solve failed", "solve_id", solveID, "error", err)
		jm.broadcaster.Broadcast(ProgressEvent{SolveID: solveID, State: StateFailed, Timestamp: endTime})
		return err
	}

	jm.UpdateSolve(solveID, func(s *Solve) {
		s.State = StateCompleted
		s.Result = res
		s.Iterations = res.Iterations
		s.EndTime = &endTime
	})

	if err := resultio.SaveResult(baseDir, solveID, &resultio.Result{
		SolveID:      solveID,
		X:            res.X,
		Kx:           res.Kx,
		Y:            res.Y,
		Kty:          res.Kty,
		ResultString: res.ResultString,
		Iterations:   res.Iterations,
		CreatedAt:    endTime,
	}); err != nil {
		slog.Warn("failed to persist result", "solve_id", solveID, "error", err)
	}

	slog.Info("solve completed", "solve_id", solveID, "elapsed", elapsed, "result", res.ResultString)
	jm.broadcaster.Broadcast(ProgressEvent{SolveID: solveID, State: StateCompleted, Timestamp: endTime})
	return nil
}
