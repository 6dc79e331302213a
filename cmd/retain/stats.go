package main

import (
	"fmt"
	"time"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning store statistics",
	Long: `Display statistics about the local learning store.

Example:
  retain stats
  retain stats --json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	stats, err := engine.Stats()
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, stats)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Local Learning Store")
	fmt.Fprintln(out, "--------------------")
	fmt.Fprintf(out, "Sessions:        %d\n", stats.Sessions)
	fmt.Fprintf(out, "Patterns:        %d (%d active)\n", stats.Patterns, stats.ActivePatterns)
	fmt.Fprintf(out, "Preferences:     %d\n", stats.Preferences)
	fmt.Fprintf(out, "Pending sync:    %d\n", stats.PendingOperations)
	fmt.Fprintf(out, "Schema version:  %s\n", stats.SchemaVersion)

	if !stats.LastSync.IsZero() {
		fmt.Fprintf(out, "Last sync:       %s (%s ago)\n",
			stats.LastSync.Format(time.RFC3339),
			time.Since(stats.LastSync).Round(time.Minute))
	} else {
		fmt.Fprintln(out, "Last sync:       never")
	}

	if stats.DroppedOperations > 0 {
		printWarning(out, "Dropped operations: %d (remote copies of these writes were lost)", stats.DroppedOperations)
	}

	return nil
}
