package main

import (
	"fmt"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record an edit review outcome",
	Long: `Record the outcome of an edit review: the raw transcription, the AI
refinement, and the user's final version. Differences between the refined
and final text feed pattern and preference learning.

Example:
  retain review --original "hey can we" --refined "Hey, can we" --final "Hello, can we"
  retain review --original "..." --refined "..." --skip`,
	RunE: runReview,
}

var (
	reviewOriginal string
	reviewRefined  string
	reviewFinal    string
	reviewMode     string
	reviewSkip     bool
)

func init() {
	reviewCmd.Flags().StringVar(&reviewOriginal, "original", "", "Raw transcription text (required)")
	reviewCmd.Flags().StringVar(&reviewRefined, "refined", "", "AI-refined text (required)")
	reviewCmd.Flags().StringVar(&reviewFinal, "final", "", "User's final text")
	reviewCmd.Flags().StringVar(&reviewMode, "mode", "", "Dictation mode context")
	reviewCmd.Flags().BoolVar(&reviewSkip, "skip", false, "Record the session without learning from it")

	reviewCmd.MarkFlagRequired("original")
	reviewCmd.MarkFlagRequired("refined")

	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	if err := engine.SubmitEditReview(reviewOriginal, reviewRefined, reviewFinal, reviewMode, reviewSkip); err != nil {
		return fmt.Errorf("submit review: %w", err)
	}

	if reviewSkip || reviewFinal == "" {
		printInfo(cmd.OutOrStdout(), "Session recorded (learning skipped)")
	} else {
		printSuccess(cmd.OutOrStdout(), "Session recorded")
	}
	return nil
}
