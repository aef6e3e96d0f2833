package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusServerURL string

var statusCmd = &cobra.Command{
	Use:   "status [solve-id]",
	Short: "Query server status or a specific solve",
	Long: `Queries the server for solve status information.
If no solve-id is provided, lists all solves.
If solve-id is provided, shows detailed status for that solve.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServerURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listSolves(fmt.Sprintf("%s/api/v1/solves", statusServerURL))
	}
	solveID := args[0]
	return getSolveStatus(fmt.Sprintf("%s/api/v1/solves/%s", statusServerURL, solveID), solveID)
}

func listSolves(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var solves []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&solves); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(solves) == 0 {
		fmt.Println("No solves found")
		return nil
	}

	fmt.Printf("Found %d solve(s):\n\n", len(solves))
	for _, s := range solves {
		fmt.Printf("Solve ID: %s\n", s["id"])
		fmt.Printf("  State: %s\n", s["state"])
		if pd, ok := s["problemDesc"].(map[string]any); ok {
			fmt.Printf("  Shape: %v x %v\n", pd["nrows"], pd["ncols"])
		}
		fmt.Printf("  Iterations: %v\n", s["iterations"])
		fmt.Println()
	}

	return nil
}

func getSolveStatus(url, solveID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("solve not found: %s", solveID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Solve: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Iterations: %v\n", status["iterations"])

	if status["elapsed"] != nil {
		elapsed := time.Duration(status["elapsed"].(float64) * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if result, ok := status["result"].(map[string]any); ok && result != nil {
		fmt.Printf("  Result: %v\n", result["ResultString"])
	}

	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}

	return nil
}
