package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/cwbudde/prostsolve/internal/dispatch"
	"github.com/spf13/cobra"
)

var (
	problemPath string
	solveOut    string
	solveCPUProfile string
	solveMemProfile string
)

// solveFile is the on-disk shape accepted by `prostsolve solve`: the same
// three descriptors CreateSolveRequest decodes over HTTP.
type solveFile struct {
	ProblemDesc dispatch.ProblemDesc `json:"problem_desc"`
	BackendDesc dispatch.BackendDesc `json:"backend_desc"`
	Options     dispatch.Options     `json:"options"`
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run a single solve_problem invocation",
	Long:  `Reads a problem/backend/options descriptor from a JSON file and runs the solver to completion.`,
	RunE:  runSolveCmd,
}

func init() {
	solveCmd.Flags().StringVar(&problemPath, "problem", "", "Problem descriptor JSON path (required)")
	solveCmd.Flags().StringVar(&solveOut, "out", "", "Write the solve result as JSON to this path (stdout if empty)")
	solveCmd.Flags().StringVar(&solveCPUProfile, "cpuprofile", "", "Write CPU profile to file")
	solveCmd.Flags().StringVar(&solveMemProfile, "memprofile", "", "Write memory profile to file")

	solveCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(solveCmd)
}

func runSolveCmd(cmd *cobra.Command, args []string) error {
	if solveCPUProfile != "" {
		f, err := os.Create(solveCPUProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		slog.Info("CPU profiling enabled", "output", solveCPUProfile)
	}

	raw, err := os.ReadFile(problemPath)
	if err != nil {
		return fmt.Errorf("failed to read problem file: %w", err)
	}

	var sf solveFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return fmt.Errorf("failed to decode problem file: %w", err)
	}

	slog.Info("Starting solve", "nrows", sf.ProblemDesc.NRows, "ncols", sf.ProblemDesc.NCols, "stepsize", sf.BackendDesc.Stepsize)

	sf.Options.Callback = func(iteration int, x, y []float64) bool {
		if sf.Options.Verbose {
			slog.Debug("iteration", "i", iteration)
		}
		return false
	}

	start := time.Now()
	res, err := dispatch.SolveProblem(context.Background(), sf.ProblemDesc, sf.BackendDesc, sf.Options)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	slog.Info("Solve complete",
		"elapsed", elapsed,
		"iterations", res.Iterations,
		"result", res.ResultString,
	)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if solveOut == "" {
		fmt.Println(string(out))
	} else {
		if err := os.WriteFile(solveOut, out, 0644); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		fmt.Printf("Wrote %s (%s, %d iterations, %s)\n", solveOut, res.ResultString, res.Iterations, elapsed)
	}

	if solveMemProfile != "" {
		f, err := os.Create(solveMemProfile)
		if err != nil {
			return fmt.Errorf("failed to create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
		slog.Info("Memory profile written", "output", solveMemProfile)
	}

	return nil
}
