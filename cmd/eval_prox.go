package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/prostsolve/internal/dispatch"
	"github.com/spf13/cobra"
)

var (
	evalProxDesc    string
	evalProxArg     string
	evalProxTau     float64
	evalProxTauDiag string
)

var evalProxCmd = &cobra.Command{
	Use:   "eval-prox",
	Short: "Evaluate a prox operator on a vector",
	RunE:  runEvalProx,
}

func init() {
	evalProxCmd.Flags().StringVar(&evalProxDesc, "prox-desc", "", "Prox descriptor JSON path (required)")
	evalProxCmd.Flags().StringVar(&evalProxArg, "arg", "", "Argument vector JSON path (required)")
	evalProxCmd.Flags().Float64Var(&evalProxTau, "tau", 1, "Scalar step size")
	evalProxCmd.Flags().StringVar(&evalProxTauDiag, "tau-diag", "", "Optional per-coordinate step size vector JSON path")

	evalProxCmd.MarkFlagRequired("prox-desc")
	evalProxCmd.MarkFlagRequired("arg")
	rootCmd.AddCommand(evalProxCmd)
}

func runEvalProx(cmd *cobra.Command, args []string) error {
	pxdRaw, err := os.ReadFile(evalProxDesc)
	if err != nil {
		return fmt.Errorf("failed to read prox-desc file: %w", err)
	}
	var pxd dispatch.ProxDesc
	if err := json.Unmarshal(pxdRaw, &pxd); err != nil {
		return fmt.Errorf("failed to decode prox-desc file: %w", err)
	}

	argRaw, err := os.ReadFile(evalProxArg)
	if err != nil {
		return fmt.Errorf("failed to read arg file: %w", err)
	}
	var arg []float64
	if err := json.Unmarshal(argRaw, &arg); err != nil {
		return fmt.Errorf("failed to decode arg file: %w", err)
	}

	invokeArgs := map[string]any{
		"prox_desc":  pxd,
		"arg":        arg,
		"scalar_tau": evalProxTau,
	}

	if evalProxTauDiag != "" {
		tauDiagRaw, err := os.ReadFile(evalProxTauDiag)
		if err != nil {
			return fmt.Errorf("failed to read tau-diag file: %w", err)
		}
		var tauDiag []float64
		if err := json.Unmarshal(tauDiagRaw, &tauDiag); err != nil {
			return fmt.Errorf("failed to decode tau-diag file: %w", err)
		}
		invokeArgs["tau_diag"] = tauDiag
	}

	result, err := dispatch.Invoke(cmd.Context(), "eval_prox", invokeArgs)
	if err != nil {
		return fmt.Errorf("eval_prox failed: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
