package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cwbudde/mobench/internal/experiment"
	"github.com/cwbudde/mobench/internal/plan"
	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"github.com/cwbudde/mobench/internal/store"
	"github.com/spf13/cobra"
)

var (
	fresh     bool
	batchSize int
	storePath string
	seed      int64
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Run a benchmark plan",
	Long: `Generates every experiment instance of the plan and runs them, flushing
results to the plan's store file in batches. Results already in the store are
kept; colliding keys are overwritten with a warning. Use --fresh to start over.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <plan.yaml>",
	Short: "Resume an interrupted benchmark plan",
	Long: `Regenerates the plan's instances with the same seed and runs only those
whose results are not yet in the store.`,
	Args: cobra.ExactArgs(1),
	RunE: resumePlan,
}

func init() {
	for _, c := range []*cobra.Command{runCmd, resumeCmd} {
		c.Flags().IntVar(&batchSize, "batch-size", 0, "Results per flush (overrides plan)")
		c.Flags().StringVar(&storePath, "store", "", "Store file path, .zst for compression (overrides plan)")
		c.Flags().Int64Var(&seed, "seed", 0, "Random seed (overrides plan)")
		rootCmd.AddCommand(c)
	}
	runCmd.Flags().BoolVar(&fresh, "fresh", false, "Remove an existing store before running")
}

// loadPlan reads the plan file and applies command line overrides.
func loadPlan(cmd *cobra.Command, path string) (*plan.Plan, error) {
	p, err := plan.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("batch-size") {
		p.BatchSize = batchSize
	}
	if cmd.Flags().Changed("store") {
		p.Store = storePath
	}
	if cmd.Flags().Changed("seed") {
		p.Seed = seed
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if err := p.Check(problem.Builtin(), solver.Builtin()); err != nil {
		return nil, err
	}
	return p, nil
}

func generate(p *plan.Plan) ([]experiment.Config, error) {
	return experiment.NewGenerator(problem.Builtin(), p.Seed).Generate(p.Spec())
}

func runPlan(cmd *cobra.Command, args []string) error {
	p, err := loadPlan(cmd, args[0])
	if err != nil {
		return err
	}

	configs, err := generate(p)
	if err != nil {
		return fmt.Errorf("failed to generate configs: %w", err)
	}

	fs, err := store.NewFileStore(p.Store)
	if err != nil {
		return err
	}
	if fresh {
		if err := fs.Reset(); err != nil {
			return fmt.Errorf("failed to reset store: %w", err)
		}
		if err := store.DeleteJournal(store.JournalPath(p.Store)); err != nil {
			return fmt.Errorf("failed to delete journal: %w", err)
		}
		slog.Info("Removed existing store", "store", p.Store)
	}

	return execute(p, fs, configs)
}

func resumePlan(cmd *cobra.Command, args []string) error {
	p, err := loadPlan(cmd, args[0])
	if err != nil {
		return err
	}

	configs, err := generate(p)
	if err != nil {
		return fmt.Errorf("failed to generate configs: %w", err)
	}

	fs, err := store.NewFileStore(p.Store)
	if err != nil {
		return err
	}
	pending, err := experiment.Pending(fs, configs)
	if err != nil {
		return fmt.Errorf("failed to determine pending instances: %w", err)
	}

	slog.Info("Resuming plan", "plan", p.Name, "total", len(configs), "done", len(configs)-len(pending), "pending", len(pending))
	if len(pending) == 0 {
		fmt.Printf("Nothing to do, all %d instances are in %s\n", len(configs), p.Store)
		return nil
	}

	return execute(p, fs, pending)
}

// execute runs configs with batch saving and prints a short report.
func execute(p *plan.Plan, fs *store.FileStore, configs []experiment.Config) error {
	journal, err := store.NewJournalWriter(store.JournalPath(p.Store), true)
	if err != nil {
		return err
	}
	defer journal.Close()

	slog.Info("Starting plan",
		"plan", p.Name,
		"instances", len(configs),
		"batch_size", p.BatchSize,
		"store", p.Store,
		"seed", p.Seed,
	)

	br := &experiment.BatchRunner{
		Runner:    experiment.NewRunner(problem.Builtin(), solver.Builtin()),
		Store:     fs,
		BatchSize: p.BatchSize,
		Journal:   journal,
	}

	start := time.Now()
	results, err := br.Run(configs)
	elapsed := time.Since(start)

	failures := 0
	for _, res := range results {
		if !res.Success {
			failures++
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Stopped after %d of %d instances\n", len(results), len(configs))
		return err
	}

	slog.Info("Plan complete",
		"plan", p.Name,
		"elapsed", elapsed,
		"instances", len(results),
		"failures", failures,
	)

	fmt.Printf("Wrote %s (%d instances, %d failed, %s)\n", p.Store, len(results), failures, elapsed.Round(time.Millisecond))
	return nil
}
