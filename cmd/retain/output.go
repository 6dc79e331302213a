package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

// outputAsJSON writes any value as formatted JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v interface{}) error {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError prints an error to stderr, ensuring no API keys are leaked.
func outputError(w io.Writer, err error) {
	msg := scrubSensitiveData(err.Error())
	if isTTY() {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render(iconError), msg)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", msg)
}

// scrubSensitiveData removes the configured API key from error messages
// before they reach the terminal.
func scrubSensitiveData(msg string) string {
	if cfgAPIKey != "" && strings.Contains(msg, cfgAPIKey) {
		msg = strings.ReplaceAll(msg, cfgAPIKey, "[REDACTED]")
	}
	return msg
}

// outputPatterns prints a pattern list in configured format.
func outputPatterns(cmd *cobra.Command, patterns []retain.LearnedPattern) error {
	if outputJSON {
		return outputAsJSON(cmd, patterns)
	}

	out := cmd.OutOrStdout()

	if len(patterns) == 0 {
		fmt.Fprintln(out, "No learned patterns.")
		return nil
	}

	fmt.Fprintf(out, "Learned patterns (%d):\n\n", len(patterns))
	for _, p := range patterns {
		state := "learning"
		if p.Active() {
			state = "active"
		}
		fmt.Fprintf(out, "[%s] %q -> %q\n", shortID(p.ID), p.OriginalPhrase, p.CorrectedPhrase)
		fmt.Fprintf(out, "    confidence: %.2f  seen: %d  state: %s", p.Confidence, p.OccurrenceCount, state)
		if p.Mode != "" {
			fmt.Fprintf(out, "  mode: %s", p.Mode)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "    ID: %s\n\n", p.ID)
	}
	return nil
}

// outputPreferences prints the preference profile in configured format.
func outputPreferences(cmd *cobra.Command, prefs []retain.UserPreference) error {
	if outputJSON {
		return outputAsJSON(cmd, prefs)
	}

	out := cmd.OutOrStdout()

	if len(prefs) == 0 {
		fmt.Fprintln(out, "No preference signal yet.")
		return nil
	}

	fmt.Fprintf(out, "Preference profile (%d dimensions):\n\n", len(prefs))
	for _, p := range prefs {
		fmt.Fprintf(out, "  %-13s %+.2f  (samples: %d, updated: %s)\n",
			p.Type, p.Value, p.SampleCount, p.LastUpdated.Format(time.RFC3339))
	}
	return nil
}

// outputSyncStatus prints a sync status in configured format.
func outputSyncStatus(cmd *cobra.Command, status retain.SyncStatus) error {
	if outputJSON {
		return outputAsJSON(cmd, status)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "State:              %s\n", status.State)
	if status.Message != "" {
		fmt.Fprintf(out, "Message:            %s\n", status.Message)
	}
	if !status.LastSync.IsZero() {
		fmt.Fprintf(out, "Last sync:          %s (%s ago)\n",
			status.LastSync.Format(time.RFC3339),
			time.Since(status.LastSync).Round(time.Second))
	} else {
		fmt.Fprintln(out, "Last sync:          never")
	}
	fmt.Fprintf(out, "Pending operations: %d\n", status.PendingOperations)
	if status.DroppedOperations > 0 {
		printWarning(out, "Dropped operations: %d", status.DroppedOperations)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
