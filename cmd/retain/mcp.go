package main

import (
	"fmt"

	"github.com/scribeworks/retain"
	retainmcp "github.com/scribeworks/retain/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio.

This exposes the learning engine as tools for agent hosts.

Configuration example:

  {
    "mcpServers": {
      "retain": {
        "command": "retain",
        "args": ["mcp"],
        "env": {
          "RETAIN_DB_PATH": "/path/to/learning.db"
        }
      }
    }
  }

Environment variables:
  RETAIN_DB_PATH     Path to local SQLite database (default: ~/.retain/learning.db)
  RETAIN_USER_ID     User identifier (default: hostname)
  RETAIN_REMOTE_URL  Remote service URL (optional, enables sync)
  RETAIN_API_KEY     Remote API key (required if RETAIN_REMOTE_URL set)`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadAndValidateConfig()
	if err != nil {
		return err
	}

	// MCP servers are long-lived; let the background loop drain the queue.
	cfg.AutoSync = true

	engine, err := retain.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	return retainmcp.NewServer(engine).Run()
}
