package main

import (
	"fmt"

	"github.com/cwbudde/prostsolve/internal/dispatch"
	"github.com/spf13/cobra"
)

var listGPUsCmd = &cobra.Command{
	Use:   "list-gpus",
	Short: "List available GPU devices",
	RunE:  runListGPUs,
}

func init() {
	rootCmd.AddCommand(listGPUsCmd)
}

func runListGPUs(cmd *cobra.Command, args []string) error {
	result, err := dispatch.Invoke(cmd.Context(), "list_gpus", nil)
	if err != nil {
		return fmt.Errorf("list_gpus failed: %w", err)
	}

	gpus, _ := result.([]dispatch.GPUInfo)
	if len(gpus) == 0 {
		fmt.Println("No GPU devices found")
		return nil
	}

	for _, g := range gpus {
		fmt.Printf("GPU %d: %s (%.1f GiB, %d cores)\n", g.ID, g.Name, float64(g.MemoryBytes)/(1<<30), g.Cores)
	}
	return nil
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage the solver device lifecycle (init, release, set-gpu)",
}

var deviceInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the default device",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := dispatch.Invoke(cmd.Context(), "init", nil)
		return err
	},
}

var deviceReleaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release the active device",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := dispatch.Invoke(cmd.Context(), "release", nil)
		return err
	},
}

var deviceSetGPUID int

var deviceSetGPUCmd = &cobra.Command{
	Use:   "set-gpu",
	Short: "Select a GPU device by ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := dispatch.Invoke(cmd.Context(), "set_gpu", map[string]any{"id": deviceSetGPUID})
		return err
	},
}

func init() {
	deviceSetGPUCmd.Flags().IntVar(&deviceSetGPUID, "id", 0, "GPU device ID")
	deviceCmd.AddCommand(deviceInitCmd, deviceReleaseCmd, deviceSetGPUCmd)
	rootCmd.AddCommand(deviceCmd)
}
