package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/prostsolve/internal/dispatch"
	"github.com/spf13/cobra"
)

var (
	evalLinopBlockList string
	evalLinopRHS       string
	evalLinopTranspose bool
)

var evalLinopCmd = &cobra.Command{
	Use:   "eval-linop",
	Short: "Evaluate a linear operator (or its adjoint) on a vector",
	RunE:  runEvalLinop,
}

func init() {
	evalLinopCmd.Flags().StringVar(&evalLinopBlockList, "block-list", "", "Block-list descriptor JSON path (required)")
	evalLinopCmd.Flags().StringVar(&evalLinopRHS, "rhs", "", "RHS vector JSON path (required)")
	evalLinopCmd.Flags().BoolVar(&evalLinopTranspose, "transpose", false, "Evaluate the adjoint instead")

	evalLinopCmd.MarkFlagRequired("block-list")
	evalLinopCmd.MarkFlagRequired("rhs")
	rootCmd.AddCommand(evalLinopCmd)
}

func runEvalLinop(cmd *cobra.Command, args []string) error {
	pdRaw, err := os.ReadFile(evalLinopBlockList)
	if err != nil {
		return fmt.Errorf("failed to read block-list file: %w", err)
	}
	var pd dispatch.ProblemDesc
	if err := json.Unmarshal(pdRaw, &pd); err != nil {
		return fmt.Errorf("failed to decode block-list file: %w", err)
	}

	rhsRaw, err := os.ReadFile(evalLinopRHS)
	if err != nil {
		return fmt.Errorf("failed to read rhs file: %w", err)
	}
	var rhs []float64
	if err := json.Unmarshal(rhsRaw, &rhs); err != nil {
		return fmt.Errorf("failed to decode rhs file: %w", err)
	}

	invokeArgs := map[string]any{
		"block_list":     pd,
		"rhs":            rhs,
		"transpose_flag": evalLinopTranspose,
	}

	result, err := dispatch.Invoke(cmd.Context(), "eval_linop", invokeArgs)
	if err != nil {
		return fmt.Errorf("eval_linop failed: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
