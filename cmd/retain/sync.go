package main

import (
	"context"
	"fmt"
	"time"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the remote learning service",
	Long: `Push pending local operations and pull remote learning data.

Example:
  retain sync            # full sync (push queue + pull)
  retain sync --status   # show sync state without touching the network
  retain sync --reset    # discard pending operations and resync fresh`,
	RunE: runSync,
}

var (
	syncStatusOnly bool
	syncReset      bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncStatusOnly, "status", false, "Show sync status only")
	syncCmd.Flags().BoolVar(&syncReset, "reset", false, "Clear the pending queue and resync")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadAndValidateConfig()
	if err != nil {
		return err
	}

	engine, err := retain.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	if syncStatusOnly {
		return outputSyncStatus(cmd, engine.SyncStatus())
	}

	if cfg.IsOffline() {
		return fmt.Errorf("no remote configured (set --remote-url or RETAIN_REMOTE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	start := time.Now()

	var status retain.SyncStatus
	op := func() error {
		if syncReset {
			status = engine.ResetSync(ctx)
		} else {
			status = engine.SyncNow(ctx)
		}
		return nil
	}
	if err := runWithSpinner(cmd.OutOrStdout(), "Synchronizing", op); err != nil {
		return err
	}

	if !outputJSON {
		if status.State == retain.SyncConnected {
			printSuccess(cmd.OutOrStdout(), "Sync complete (took %s)", time.Since(start).Round(time.Millisecond))
		} else {
			printWarning(cmd.OutOrStdout(), "Sync finished in state %s", status.State)
		}
	}
	return outputSyncStatus(cmd, status)
}
