package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export learning data as JSON",
	Long: `Write a versioned JSON snapshot of all learning data (patterns,
preferences, sessions). Writes to stdout when no file is given.

Example:
  retain export backup.json
  retain export > backup.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if len(args) == 0 {
		return engine.ExportSnapshot(ctx, cmd.OutOrStdout())
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := engine.ExportSnapshot(ctx, f); err != nil {
		_ = os.Remove(args[0])
		return fmt.Errorf("export: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("flush export file: %w", err)
	}

	printSuccess(cmd.OutOrStdout(), "Exported learning data to %s", args[0])
	return nil
}
