package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var summariesCmd = &cobra.Command{
	Use:   "summaries [id]",
	Short: "Print stored job and migration summaries",
	Long:  "Prints the most recent summaries, newest first, or a single summary when an id is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummaries,
}

var summariesLimit int

func init() {
	summariesCmd.Flags().IntVarP(&summariesLimit, "limit", "n", 20, "Maximum number of summaries to print")
}

func runSummaries(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	store := application.StorageManager.SummaryStorage()
	if len(args) == 1 {
		summary, err := store.GetSummary(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load summary %s: %w", args[0], err)
		}
		return printJSON(summary)
	}

	summaries, err := store.ListSummaries(cmd.Context(), summariesLimit)
	if err != nil {
		return fmt.Errorf("failed to list summaries: %w", err)
	}
	return printJSON(summaries)
}
