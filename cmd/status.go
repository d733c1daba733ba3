package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		// List all jobs
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	// Get specific job status
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if p, ok := job["plan"].(map[string]interface{}); ok {
			fmt.Printf("  Plan: %v\n", p["name"])
		}
		fmt.Printf("  Progress: %v/%v (%v failed)\n", job["completed"], job["total"], job["failures"])
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Display status
	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Printf("Store: %s\n", status["store"])
	fmt.Println()

	if p, ok := status["plan"].(map[string]interface{}); ok {
		fmt.Println("Plan:")
		fmt.Printf("  Name: %v\n", p["name"])
		fmt.Printf("  Problems: %v\n", p["problems"])
		fmt.Printf("  Solvers: %v\n", p["solvers"])
		fmt.Printf("  Trials: %v\n", p["trials"])
		fmt.Printf("  Deltas: %v\n", p["deltas"])
		fmt.Printf("  Seed: %v\n", p["seed"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	fmt.Printf("  Instances: %v/%v\n", status["completed"], status["total"])
	fmt.Printf("  Failures: %v\n", status["failures"])
	fmt.Printf("  Batches flushed: %v\n", status["batches"])
	if c, ok := status["collisions"].(float64); ok && c > 0 {
		fmt.Printf("  Collisions: %.0f\n", c)
	}

	if e, ok := status["elapsed"].(float64); ok {
		elapsed := time.Duration(e * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if rate, ok := status["instancesPerSecond"].(float64); ok && rate > 0 {
		fmt.Printf("  Throughput: %.1f instances/sec\n", rate)
	}

	if msg, ok := status["error"].(string); ok && msg != "" {
		fmt.Printf("\nError: %s\n", msg)
	}

	return nil
}
