package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import learning data from a JSON snapshot",
	Long: `Restore learning data from a JSON export. Entities merge into the
local store; imported data is not queued for sync.

Example:
  retain import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := engine.ImportSnapshot(ctx, f)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Import complete")
	fmt.Fprintf(out, "  Patterns:    %d\n", result.Patterns)
	fmt.Fprintf(out, "  Preferences: %d\n", result.Preferences)
	fmt.Fprintf(out, "  Sessions:    %d\n", result.Sessions)
	if result.Skipped > 0 {
		fmt.Fprintf(out, "  Skipped:     %d\n", result.Skipped)
	}
	for _, e := range result.Errors {
		printWarning(out, "%s", e)
	}
	return nil
}
