package main

import (
	"github.com/scribeworks/retain"
	"github.com/spf13/cobra"
)

var (
	cfgDBPath    string
	cfgRemoteURL string
	cfgAPIKey    string
	cfgUserID    string
	outputJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "retain",
	Short: "Retain - dictation learning CLI",
	Long: `Retain manages the personal learning store behind a dictation app.

It inspects learned correction patterns and style preferences, applies
them to text, and synchronizes the local store with a remote service.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDBPath, "db-path", "", "Path to local learning database (default: ~/.retain/learning.db)")
	rootCmd.PersistentFlags().StringVar(&cfgRemoteURL, "remote-url", "", "URL of the remote learning service")
	rootCmd.PersistentFlags().StringVar(&cfgAPIKey, "api-key", "", "API key for remote authentication")
	rootCmd.PersistentFlags().StringVar(&cfgUserID, "user-id", "", "User identifier for remote scoping")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

// loadConfig builds a Config from environment then flag overrides.
func loadConfig() retain.Config {
	cfg := retain.ConfigFromEnv()

	if cfgDBPath != "" {
		cfg.LocalPath = cfgDBPath
	}
	if cfgRemoteURL != "" {
		cfg.RemoteURL = cfgRemoteURL
	}
	if cfgAPIKey != "" {
		cfg.APIKey = cfgAPIKey
	}
	if cfgUserID != "" {
		cfg.UserID = cfgUserID
	}

	// CLI invocations are one-shot; the background loop never gets a
	// chance to run, so manual sync commands drive the queue instead.
	cfg.AutoSync = false

	return cfg
}

func loadAndValidateConfig() (retain.Config, error) {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
