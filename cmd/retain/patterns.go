package main

import (
	"fmt"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect learned correction patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned patterns",
	Long: `List learned correction patterns, most confident first.

Example:
  retain patterns list
  retain patterns list --active`,
	RunE: runPatternsList,
}

var patternsDeleteCmd = &cobra.Command{
	Use:   "delete <pattern-id>",
	Short: "Delete a learned pattern",
	Long: `Delete one learned pattern locally and queue the remote delete.

Example:
  retain patterns delete 01J8ZT2M9GQW5H3X7V4R6N8KPD`,
	Args: cobra.ExactArgs(1),
	RunE: runPatternsDelete,
}

var patternsActiveOnly bool

func init() {
	patternsListCmd.Flags().BoolVar(&patternsActiveOnly, "active", false, "Show only patterns that apply to text")
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsDeleteCmd)
	rootCmd.AddCommand(patternsCmd)
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	patterns, err := engine.ListPatterns()
	if err != nil {
		return fmt.Errorf("list patterns: %w", err)
	}

	if patternsActiveOnly {
		active := patterns[:0]
		for _, p := range patterns {
			if p.Active() {
				active = append(active, p)
			}
		}
		patterns = active
	}

	return outputPatterns(cmd, patterns)
}

func runPatternsDelete(cmd *cobra.Command, args []string) error {
	engine, err := retain.New(loadConfig())
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	if err := engine.DeletePattern(args[0]); err != nil {
		return fmt.Errorf("delete pattern: %w", err)
	}

	printSuccess(cmd.OutOrStdout(), "Deleted pattern %s", shortID(args[0]))
	return nil
}
