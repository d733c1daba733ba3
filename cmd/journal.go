package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/mobench/internal/store"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal <store>",
	Short: "Show the flush journal of a store",
	Long:  `Displays one line per batch flush: batch number, size, key range, collisions and errors.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	reader, err := store.NewJournalReader(store.JournalPath(args[0]))
	if err != nil {
		return err
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("Journal is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tTIMESTAMP\tSIZE\tFIRST\tLAST\tCOLLISIONS\tERROR")
	fmt.Fprintln(w, "-----\t---------\t----\t-----\t----\t----------\t-----")

	failed := 0
	for _, e := range entries {
		if e.Error != "" {
			failed++
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%d\t%s\n",
			e.Batch,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Size,
			e.First,
			e.Last,
			len(e.Collisions),
			truncate(strings.ReplaceAll(e.Error, "\n", " "), 60),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal flushes: %d, failed: %d\n", len(entries), failed)
	return nil
}
