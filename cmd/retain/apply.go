package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply [text]",
	Short: "Apply learned adjustments to text",
	Long: `Run text through the learned patterns and preference adjustments,
printing the adjusted result. Reads stdin when no argument is given.

Example:
  retain apply "hey, I basically wanted to check in"
  pbpaste | retain apply --mode email`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

var applyMode string

func init() {
	applyCmd.Flags().StringVar(&applyMode, "mode", "", "Dictation mode context (e.g. email, notes)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if text == "" {
		return fmt.Errorf("no text to adjust")
	}

	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	fmt.Fprintln(cmd.OutOrStdout(), engine.ApplyLearnedAdjustments(text, applyMode))
	return nil
}
