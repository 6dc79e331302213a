package main

import (
	"fmt"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var chooseCmd = &cobra.Command{
	Use:   "choose",
	Short: "Record an A/B test selection",
	Long: `Record which of two refinement variants the user picked. The selected
text must exactly match one of the options.

Example:
  retain choose --original "..." --a "Hello, checking in." --b "Hey! Just checking in." --selected "Hey! Just checking in."`,
	RunE: runChoose,
}

var (
	chooseOriginal string
	chooseOptionA  string
	chooseOptionB  string
	chooseSelected string
	chooseMode     string
)

func init() {
	chooseCmd.Flags().StringVar(&chooseOriginal, "original", "", "Raw transcription text (required)")
	chooseCmd.Flags().StringVar(&chooseOptionA, "a", "", "First refinement variant (required)")
	chooseCmd.Flags().StringVar(&chooseOptionB, "b", "", "Second refinement variant (required)")
	chooseCmd.Flags().StringVar(&chooseSelected, "selected", "", "The variant the user picked (required)")
	chooseCmd.Flags().StringVar(&chooseMode, "mode", "", "Dictation mode context")

	chooseCmd.MarkFlagRequired("original")
	chooseCmd.MarkFlagRequired("a")
	chooseCmd.MarkFlagRequired("b")
	chooseCmd.MarkFlagRequired("selected")

	rootCmd.AddCommand(chooseCmd)
}

func runChoose(cmd *cobra.Command, args []string) error {
	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	if err := engine.SubmitABTest(chooseOriginal, chooseOptionA, chooseOptionB, chooseSelected, chooseMode); err != nil {
		return fmt.Errorf("submit choice: %w", err)
	}

	printSuccess(cmd.OutOrStdout(), "Choice recorded")
	return nil
}
