package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/mobench/internal/experiment"
	"github.com/cwbudde/mobench/internal/store"
	"github.com/spf13/cobra"
)

var (
	filterSolver  string
	filterProblem string
	filterDelta   float64
	successOnly   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <store>",
	Short: "List results in a store",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var summaryCmd = &cobra.Command{
	Use:   "summary <store>",
	Short: "Summarize results per solver, problem and delta",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

func init() {
	for _, c := range []*cobra.Command{inspectCmd, summaryCmd} {
		c.Flags().StringVar(&filterSolver, "solver", "", "Only this solver kind")
		c.Flags().StringVar(&filterProblem, "problem", "", "Only this problem")
		c.Flags().Float64Var(&filterDelta, "delta", 0, "Only this perturbation level")
		rootCmd.AddCommand(c)
	}
	inspectCmd.Flags().BoolVar(&successOnly, "success", false, "Only successful runs")
}

func loadFiltered(cmd *cobra.Command, path string) ([]*experiment.Result, error) {
	fs, err := store.NewFileStore(path)
	if err != nil {
		return nil, err
	}

	filter := experiment.Filter{
		Solver:      filterSolver,
		Problem:     filterProblem,
		SuccessOnly: successOnly,
	}
	if cmd.Flags().Changed("delta") {
		d := filterDelta
		filter.Delta = &d
	}
	return experiment.LoadResults(fs, filter)
}

func runInspect(cmd *cobra.Command, args []string) error {
	results, err := loadFiltered(cmd, args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	printResults(os.Stdout, results)
	fmt.Printf("\nTotal results: %d\n", len(results))
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	results, err := loadFiltered(cmd, args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	printSummary(os.Stdout, experiment.Summarize(results))
	return nil
}

func printResults(out io.Writer, results []*experiment.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSUCCESS\tITERS\tF-EVALS\tJ-EVALS\tTIME\tFINAL\tMESSAGE")
	fmt.Fprintln(w, "---\t-------\t-----\t-------\t-------\t----\t-----\t-------")

	for _, res := range results {
		fmt.Fprintf(w, "%s\t%t\t%d\t%d\t%d\t%s\t%s\t%s\n",
			strings.Join(res.Key(), "/"),
			res.Success,
			res.Iterations,
			res.FuncEvals,
			res.JacEvals,
			res.Elapsed,
			formatVector(res.FFinal),
			truncate(res.Message, 40),
		)
	}
	w.Flush()
}

func printSummary(out io.Writer, summaries []experiment.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tPROBLEM\tDELTA\tRUNS\tSUCCESS\tITERS\tF-EVALS\tJ-EVALS\tTIME")
	fmt.Fprintln(w, "------\t-------\t-----\t----\t-------\t-----\t-------\t-------\t----")

	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%.0f%%\t%.1f\t%.1f\t%.1f\t%s\n",
			s.Solver,
			s.Problem,
			s.Delta,
			s.Runs,
			s.SuccessRate()*100,
			s.MeanIterations,
			s.MeanFuncEvals,
			s.MeanJacEvals,
			s.MeanElapsed,
		)
	}
	w.Flush()
}

func formatVector(v experiment.Vector) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.4g", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
