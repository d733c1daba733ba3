package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/mobench/internal/plan"
	"github.com/cwbudde/mobench/internal/store"
	"github.com/spf13/cobra"
)

var (
	tempsDir      string
	olderThanDays int
	forceClean    bool
)

var tempsCmd = &cobra.Command{
	Use:   "temps",
	Short: "Manage leftover store temp files",
	Long: `Manage temp files left next to a store by interrupted runs.
A killed run may leave a batch or rewrite temp file behind; the final store
is never affected, so these files can be removed.`,
}

var listTempsCmd = &cobra.Command{
	Use:   "list",
	Short: "List leftover temp files",
	Long:  `Display all temp files in the store directory with size and age.`,
	RunE:  runListTemps,
}

var cleanTempsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete leftover temp files",
	Long:  `Delete temp files, optionally only those older than N days.`,
	RunE:  runCleanTemps,
}

func init() {
	// Add temps command to root
	rootCmd.AddCommand(tempsCmd)

	// Add subcommands
	tempsCmd.AddCommand(listTempsCmd)
	tempsCmd.AddCommand(cleanTempsCmd)

	tempsCmd.PersistentFlags().StringVar(&tempsDir, "dir", filepath.Dir(plan.DefaultStore), "Directory containing the store files")

	// Clean command flags
	cleanTempsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete temp files older than N days (0 = all)")
	cleanTempsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListTemps(cmd *cobra.Command, args []string) error {
	temps, err := store.FindTemps(tempsDir)
	if err != nil {
		return fmt.Errorf("failed to list temp files: %w", err)
	}

	if len(temps) == 0 {
		fmt.Println("No temp files found.")
		return nil
	}

	// Display temp files in a table
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tMODIFIED\tAGE\tSIZE")
	fmt.Fprintln(w, "----\t--------\t---\t----")

	var total int64
	for _, info := range temps {
		total += info.Size
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			filepath.Base(info.Path),
			info.ModTime.Format("2006-01-02 15:04:05"),
			time.Since(info.ModTime).Round(time.Second),
			formatBytes(info.Size),
		)
	}

	w.Flush()

	fmt.Printf("\nTotal temp files: %d (%s)\n", len(temps), formatBytes(total))
	return nil
}

func runCleanTemps(cmd *cobra.Command, args []string) error {
	temps, err := store.FindTemps(tempsDir)
	if err != nil {
		return fmt.Errorf("failed to list temp files: %w", err)
	}

	if len(temps) == 0 {
		fmt.Println("No temp files to clean.")
		return nil
	}

	// Determine which temp files to delete
	toDelete := selectTempsForDeletion(temps, olderThanDays, time.Now())

	if len(toDelete) == 0 {
		fmt.Println("No temp files match deletion criteria.")
		return nil
	}

	// Show what will be deleted
	fmt.Printf("Found %d temp file(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, %s)\n",
			filepath.Base(info.Path),
			formatBytes(info.Size),
			info.ModTime.Format("2006-01-02 15:04:05"),
		)
	}

	// Ask for confirmation unless --force is set
	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := os.Remove(info.Path); err != nil {
			slog.Error("Failed to delete temp file", "path", info.Path, "error", err)
			failed++
		} else {
			slog.Info("Deleted temp file", "path", info.Path)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d temp file(s), %d failed.\n", deleted, failed)
	return nil
}

// selectTempsForDeletion returns the temp files last modified more than
// olderThanDays before now. Zero selects every file.
func selectTempsForDeletion(temps []store.TempInfo, olderThanDays int, now time.Time) []store.TempInfo {
	if olderThanDays <= 0 {
		return temps
	}

	cutoff := now.AddDate(0, 0, -olderThanDays)
	var toDelete []store.TempInfo
	for _, info := range temps {
		if info.ModTime.Before(cutoff) {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
