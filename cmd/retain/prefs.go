package main

import (
	"fmt"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show the learned preference profile",
	Long: `Display learned style preferences. Each dimension ranges from -1 to +1;
values near zero have no effect on output text.

Example:
  retain prefs
  retain prefs --json`,
	RunE: runPrefs,
}

func init() {
	rootCmd.AddCommand(prefsCmd)
}

func runPrefs(cmd *cobra.Command, args []string) error {
	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	prefs, err := engine.ListPreferences()
	if err != nil {
		return fmt.Errorf("list preferences: %w", err)
	}

	return outputPreferences(cmd, prefs)
}
