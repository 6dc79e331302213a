// Package store provides filesystem path resolution for the local store.
package store

import (
	"os"
	"path/filepath"
)

// DefaultRoot returns the root directory for engine data.
// Defaults to ~/.retain, falls back to ./.retain if home dir unavailable.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".retain")
	}
	return filepath.Join(home, ".retain")
}

// DefaultDBPath returns the default path to the local database file.
func DefaultDBPath() string {
	return filepath.Join(DefaultRoot(), "learning.db")
}

// ResolveDBPath picks the database path from an explicit value, the
// RETAIN_DB_PATH environment variable, or the default, in that order.
func ResolveDBPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("RETAIN_DB_PATH"); env != "" {
		return env
	}
	return DefaultDBPath()
}
