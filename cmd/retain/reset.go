package main

import (
	"context"
	"fmt"
	"time"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all learned data",
	Long: `Delete all sessions, patterns, preferences, and queued operations
from the local store. This cannot be undone.

Example:
  retain reset --force`,
	RunE: runReset,
}

var resetForce bool

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		fmt.Fprint(cmd.OutOrStdout(), "This erases all learned data. Type 'yes' to continue: ")
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "yes" {
			printInfo(cmd.OutOrStdout(), "Aborted")
			return nil
		}
	}

	cfg := loadConfig()
	engine, err := retain.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	if err := engine.ResetAllLearning(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	if !cfg.IsOffline() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		engine.ResetSync(ctx)
	}

	printSuccess(cmd.OutOrStdout(), "All learned data erased")
	return nil
}
