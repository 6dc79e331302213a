package retain

import (
	"os"
	"time"

	"github.com/scribeworks/retain/internal/store"
)

// Config configures the learning engine.
type Config struct {
	// LocalPath is the path to the local SQLite database.
	// If empty, resolved from RETAIN_DB_PATH or the default under ~/.retain.
	LocalPath string

	// RemoteURL is the URL of the remote learning store.
	// If empty, the engine operates in offline-only mode.
	RemoteURL string

	// APIKey authenticates with the remote store.
	APIKey string

	// UserID scopes every remote row to its owner.
	// Defaults to hostname if not set.
	UserID string

	// SyncInterval is how often the background pass drains the queue.
	// Defaults to 30 seconds.
	SyncInterval time.Duration

	// AutoSync enables the periodic background pass.
	AutoSync bool

	// ReviewWindow is the advisory deadline attached to review requests.
	// Defaults to 30 seconds. The engine never enforces it.
	ReviewWindow time.Duration

	// Debug enables verbose logging of learning, queue, and sync activity.
	Debug bool

	// DebugLogPath is the path to write debug logs.
	// Defaults to stderr if empty.
	DebugLogPath string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	hostname, _ := os.Hostname()
	return Config{
		LocalPath:    store.DefaultDBPath(),
		SyncInterval: DefaultSyncInterval,
		AutoSync:     true,
		ReviewWindow: 30 * time.Second,
		UserID:       hostname,
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	RETAIN_DB_PATH    → LocalPath
//	RETAIN_REMOTE_URL → RemoteURL
//	RETAIN_API_KEY    → APIKey
//	RETAIN_USER_ID    → UserID
//	RETAIN_DEBUG      → Debug (any non-empty value enables)
//	RETAIN_DEBUG_LOG  → DebugLogPath
func ConfigFromEnv() Config {
	return Config{
		LocalPath:    os.Getenv("RETAIN_DB_PATH"),
		RemoteURL:    os.Getenv("RETAIN_REMOTE_URL"),
		APIKey:       os.Getenv("RETAIN_API_KEY"),
		UserID:       os.Getenv("RETAIN_USER_ID"),
		Debug:        os.Getenv("RETAIN_DEBUG") != "",
		DebugLogPath: os.Getenv("RETAIN_DEBUG_LOG"),
	}
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.LocalPath == "" {
		return &ValidationError{Field: "LocalPath", Message: "required: path to SQLite database"}
	}

	if c.RemoteURL != "" && c.APIKey == "" {
		return &ValidationError{Field: "APIKey", Message: "required when RemoteURL is set"}
	}
	if c.RemoteURL != "" && c.UserID == "" {
		return &ValidationError{Field: "UserID", Message: "required when RemoteURL is set"}
	}

	if c.SyncInterval < 0 {
		return &ValidationError{Field: "SyncInterval", Message: "must be non-negative"}
	}
	if c.ReviewWindow < 0 {
		return &ValidationError{Field: "ReviewWindow", Message: "must be non-negative"}
	}

	return nil
}

// IsOffline returns true if the engine operates in offline-only mode.
func (c *Config) IsOffline() bool {
	return c.RemoteURL == ""
}

// WithDefaults fills in default values for unset fields.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.LocalPath == "" {
		c.LocalPath = store.ResolveDBPath("")
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = defaults.SyncInterval
	}
	if c.ReviewWindow == 0 {
		c.ReviewWindow = defaults.ReviewWindow
	}
	if c.UserID == "" {
		c.UserID = defaults.UserID
	}

	return c
}
