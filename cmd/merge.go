package main

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/mobench/internal/store"
	"github.com/spf13/cobra"
)

var mergeOut string

var mergeCmd = &cobra.Command{
	Use:   "merge -o <out> <store>...",
	Short: "Merge result stores into one",
	Long: `Merges the given store files, in order, into the output store. Results
already in the output are kept; later inputs overwrite earlier ones on
colliding keys and each collision is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "", "Output store path (required)")
	mergeCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	dst, err := store.NewFileStore(mergeOut)
	if err != nil {
		return err
	}

	collisions, err := store.MergeFiles(dst, args...)
	if err != nil {
		return fmt.Errorf("failed to merge stores: %w", err)
	}

	slog.Info("Merged stores", "inputs", len(args), "out", mergeOut, "collisions", len(collisions))
	fmt.Printf("Merged %d store(s) into %s (%d collision(s))\n", len(args), mergeOut, len(collisions))
	for _, key := range collisions {
		fmt.Printf("  overwritten: %s\n", key)
	}
	return nil
}
