package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/scribeworks/retain"
)

// Server wraps the MCP server with Retain tools.
type Server struct {
	engine    *retain.Engine
	mcpServer *server.MCPServer
}

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server with Retain tools registered.
func NewServer(engine *retain.Engine) *Server {
	s := &Server{
		engine: engine,
	}

	s.mcpServer = server.NewMCPServer(
		"retain",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout.
// It uses os.Stdin and os.Stdout internally via the mcp-go ServeStdio function.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
// This is primarily for testing the MCP protocol layer.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "retain_apply", Description: "Apply learned correction patterns and style preferences to text"},
		{Name: "retain_review", Description: "Record an edit review outcome so the engine learns from the user's corrections"},
		{Name: "retain_choice", Description: "Record which of two refinement variants the user picked"},
		{Name: "retain_patterns", Description: "List learned correction patterns"},
		{Name: "retain_stats", Description: "Show local learning store statistics"},
		{Name: "retain_sync", Description: "Synchronize the local learning store with the remote service"},
	}
}

// CallTool executes a tool by name with the given arguments.
// This is used for testing and direct invocation.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	switch name {
	case "retain_apply":
		return s.handleApply(ctx, args)
	case "retain_review":
		return s.handleReview(ctx, args)
	case "retain_choice":
		return s.handleChoice(ctx, args)
	case "retain_patterns":
		return s.handlePatterns(ctx, args)
	case "retain_stats":
		return s.handleStats(ctx, args)
	case "retain_sync":
		return s.handleSync(ctx, args)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
}

func (s *Server) registerTools() {
	// retain_apply
	s.mcpServer.AddTool(mcp.NewTool("retain_apply",
		mcp.WithDescription("Apply learned correction patterns and style preferences to refined text. Returns the adjusted text; on any internal failure the input text comes back unchanged."),
		mcp.WithString("text",
			mcp.Description("The text to adjust"),
			mcp.Required(),
		),
		mcp.WithString("mode",
			mcp.Description("Dictation mode context (e.g. email, notes); patterns from the same mode apply more eagerly"),
		),
	), s.mcpHandleApply)

	// retain_review
	s.mcpServer.AddTool(mcp.NewTool("retain_review",
		mcp.WithDescription("Record an edit review outcome: the raw transcription, the AI refinement, and the user's final version. Differences between refined and final text feed pattern and preference learning."),
		mcp.WithString("original",
			mcp.Description("Raw transcription text"),
			mcp.Required(),
		),
		mcp.WithString("refined",
			mcp.Description("AI-refined text shown to the user"),
			mcp.Required(),
		),
		mcp.WithString("final",
			mcp.Description("The user's final text (omit if the review was skipped)"),
		),
		mcp.WithString("mode",
			mcp.Description("Dictation mode context"),
		),
		mcp.WithBoolean("skip",
			mcp.Description("Record the session without learning from it"),
		),
	), s.mcpHandleReview)

	// retain_choice
	s.mcpServer.AddTool(mcp.NewTool("retain_choice",
		mcp.WithDescription("Record which of two refinement variants the user picked. The selected text must exactly match option_a or option_b."),
		mcp.WithString("original",
			mcp.Description("Raw transcription text"),
			mcp.Required(),
		),
		mcp.WithString("option_a",
			mcp.Description("First refinement variant"),
			mcp.Required(),
		),
		mcp.WithString("option_b",
			mcp.Description("Second refinement variant"),
			mcp.Required(),
		),
		mcp.WithString("selected",
			mcp.Description("The variant the user picked"),
			mcp.Required(),
		),
		mcp.WithString("mode",
			mcp.Description("Dictation mode context"),
		),
	), s.mcpHandleChoice)

	// retain_patterns
	s.mcpServer.AddTool(mcp.NewTool("retain_patterns",
		mcp.WithDescription("List learned correction patterns, most confident first. This is a read-only operation."),
		mcp.WithBoolean("active_only",
			mcp.Description("Show only patterns that currently apply to text"),
		),
	), s.mcpHandlePatterns)

	// retain_stats
	s.mcpServer.AddTool(mcp.NewTool("retain_stats",
		mcp.WithDescription("Show local learning store statistics. This is a read-only operation."),
	), s.mcpHandleStats)

	// retain_sync
	s.mcpServer.AddTool(mcp.NewTool("retain_sync",
		mcp.WithDescription("Synchronize the local learning store with the remote service. Requires RETAIN_REMOTE_URL and RETAIN_API_KEY to be configured."),
	), s.mcpHandleSync)
}

// MCP handlers that wrap internal handlers

func (s *Server) mcpHandleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.handleApply(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return toMCPResult(result), nil
}

func (s *Server) mcpHandleReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.handleReview(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return toMCPResult(result), nil
}

func (s *Server) mcpHandleChoice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.handleChoice(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return toMCPResult(result), nil
}

func (s *Server) mcpHandlePatterns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.handlePatterns(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return toMCPResult(result), nil
}

func (s *Server) mcpHandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.handleStats(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return toMCPResult(result), nil
}

func (s *Server) mcpHandleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.handleSync(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return toMCPResult(result), nil
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
	}
	if r.IsError {
		result.IsError = true
	}
	return result
}

// Internal handlers

func (s *Server) handleApply(ctx context.Context, args map[string]any) (*ToolResult, error) {
	text, ok := args["text"].(string)
	if !ok || text == "" {
		return &ToolResult{Content: "text is required", IsError: true}, nil
	}

	mode, _ := args["mode"].(string)

	adjusted := s.engine.ApplyLearnedAdjustments(text, mode)
	return &ToolResult{Content: adjusted}, nil
}

func (s *Server) handleReview(ctx context.Context, args map[string]any) (*ToolResult, error) {
	original, ok := args["original"].(string)
	if !ok || original == "" {
		return &ToolResult{Content: "original is required", IsError: true}, nil
	}
	refined, ok := args["refined"].(string)
	if !ok || refined == "" {
		return &ToolResult{Content: "refined is required", IsError: true}, nil
	}

	final, _ := args["final"].(string)
	mode, _ := args["mode"].(string)
	skip, _ := args["skip"].(bool)

	if err := s.engine.SubmitEditReview(original, refined, final, mode, skip); err != nil {
		return &ToolResult{Content: fmt.Sprintf("review failed: %v", err), IsError: true}, nil
	}

	if skip || final == "" {
		return &ToolResult{Content: "Session recorded (learning skipped)"}, nil
	}
	return &ToolResult{Content: "Session recorded"}, nil
}

func (s *Server) handleChoice(ctx context.Context, args map[string]any) (*ToolResult, error) {
	original, ok := args["original"].(string)
	if !ok || original == "" {
		return &ToolResult{Content: "original is required", IsError: true}, nil
	}
	optionA, ok := args["option_a"].(string)
	if !ok || optionA == "" {
		return &ToolResult{Content: "option_a is required", IsError: true}, nil
	}
	optionB, ok := args["option_b"].(string)
	if !ok || optionB == "" {
		return &ToolResult{Content: "option_b is required", IsError: true}, nil
	}
	selected, ok := args["selected"].(string)
	if !ok || selected == "" {
		return &ToolResult{Content: "selected is required", IsError: true}, nil
	}

	mode, _ := args["mode"].(string)

	if err := s.engine.SubmitABTest(original, optionA, optionB, selected, mode); err != nil {
		if err == retain.ErrSelectionMismatch {
			return &ToolResult{Content: "selected must exactly match option_a or option_b", IsError: true}, nil
		}
		return &ToolResult{Content: fmt.Sprintf("choice failed: %v", err), IsError: true}, nil
	}

	return &ToolResult{Content: "Choice recorded"}, nil
}

func (s *Server) handlePatterns(ctx context.Context, args map[string]any) (*ToolResult, error) {
	patterns, err := s.engine.ListPatterns()
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("list patterns failed: %v", err), IsError: true}, nil
	}

	if activeOnly, _ := args["active_only"].(bool); activeOnly {
		active := patterns[:0]
		for _, p := range patterns {
			if p.Active() {
				active = append(active, p)
			}
		}
		patterns = active
	}

	return &ToolResult{Content: formatPatterns(patterns)}, nil
}

func (s *Server) handleStats(ctx context.Context, args map[string]any) (*ToolResult, error) {
	stats, err := s.engine.Stats()
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("stats failed: %v", err), IsError: true}, nil
	}

	return &ToolResult{Content: formatStats(stats)}, nil
}

func (s *Server) handleSync(ctx context.Context, args map[string]any) (*ToolResult, error) {
	status := s.engine.SyncNow(ctx)

	var sb strings.Builder
	fmt.Fprintf(&sb, "State: %s\n", status.State)
	if status.Message != "" {
		fmt.Fprintf(&sb, "Message: %s\n", status.Message)
	}
	fmt.Fprintf(&sb, "Pending operations: %d\n", status.PendingOperations)
	if status.DroppedOperations > 0 {
		fmt.Fprintf(&sb, "Dropped operations: %d\n", status.DroppedOperations)
	}
	if !status.LastSync.IsZero() {
		fmt.Fprintf(&sb, "Last sync: %s\n", status.LastSync.Format(time.RFC3339))
	}

	result := &ToolResult{Content: strings.TrimRight(sb.String(), "\n")}
	if status.State != retain.SyncConnected {
		result.IsError = true
	}
	return result, nil
}

func formatPatterns(patterns []retain.LearnedPattern) string {
	if len(patterns) == 0 {
		return "No learned patterns."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Learned patterns (%d):\n", len(patterns))
	for _, p := range patterns {
		state := "learning"
		if p.Active() {
			state = "active"
		}
		fmt.Fprintf(&sb, "- %q -> %q (confidence %.2f, seen %d, %s", p.OriginalPhrase, p.CorrectedPhrase, p.Confidence, p.OccurrenceCount, state)
		if p.Mode != "" {
			fmt.Fprintf(&sb, ", mode %s", p.Mode)
		}
		fmt.Fprintf(&sb, ") [%s]\n", p.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatStats(stats *retain.StoreStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sessions: %d\n", stats.Sessions)
	fmt.Fprintf(&sb, "Patterns: %d (%d active)\n", stats.Patterns, stats.ActivePatterns)
	fmt.Fprintf(&sb, "Preferences: %d\n", stats.Preferences)
	fmt.Fprintf(&sb, "Pending operations: %d\n", stats.PendingOperations)
	if stats.DroppedOperations > 0 {
		fmt.Fprintf(&sb, "Dropped operations: %d\n", stats.DroppedOperations)
	}
	if !stats.LastSync.IsZero() {
		fmt.Fprintf(&sb, "Last sync: %s\n", stats.LastSync.Format(time.RFC3339))
	} else {
		fmt.Fprintf(&sb, "Last sync: never\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
