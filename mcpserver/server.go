// Package mcpserver exposes workspace scanning and previews as Model Context
// Protocol tools, so an assistant can run the same searches as the panel.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/takaishi/fifpanel/preview"
	"github.com/takaishi/fifpanel/search"
)

// Version is advertised to clients for capability negotiation.
const Version = "1.0.0"

// Options configures the tool handlers
type Options struct {
	Root   string
	Filter search.Filter
	// NewEngine builds the engine for a call's filter; defaults to the native scanner
	NewEngine func(search.Filter) search.Engine
}

// handlers answers tool calls against one workspace root
type handlers struct {
	root      string
	filter    search.Filter
	newEngine func(search.Filter) search.Engine
}

func newHandlers(opts Options) *handlers {
	newEngine := opts.NewEngine
	if newEngine == nil {
		newEngine = func(f search.Filter) search.Engine { return search.NewScanner(f) }
	}
	return &handlers{root: opts.Root, filter: opts.Filter, newEngine: newEngine}
}

// NewServer creates the MCP server with all tools registered
func NewServer(opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		"fif",
		Version,
		server.WithToolCapabilities(true),
	)
	registerTools(s, newHandlers(opts))
	return s
}

// Serve runs the MCP server over stdio until the client disconnects.
func Serve(opts Options) error {
	// stdout carries JSON-RPC
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	s := NewServer(opts)
	slog.Info("fif MCP server ready", "version", Version, "transport", "stdio", "root", opts.Root)

	err := server.ServeStdio(s)
	if errors.Is(err, context.Canceled) {
		slog.Info("server stopped")
		return nil
	}
	return err
}

func registerTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("fif_search",
			mcp.WithDescription("Find lines containing an exact, case-sensitive text in the workspace. Returns file, line, column and trimmed text of every match."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Text to search for")),
			mcp.WithString("include", mcp.Description("Comma-separated glob patterns of files to scan, e.g. **/*.go")),
			mcp.WithString("exclude", mcp.Description("Comma-separated glob patterns of files to skip")),
		),
		h.search,
	)

	s.AddTool(
		mcp.NewTool("fif_preview",
			mcp.WithDescription("Show the lines around a match: up to 15 lines before and after the given line"),
			mcp.WithString("file", mcp.Required(), mcp.Description("File path relative to the workspace root")),
			mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line number of the match")),
		),
		h.preview,
	)
}

// search handles fif_search tool calls.
func (h *handlers) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query is required"), nil //nolint:nilerr
	}

	filter := h.filter
	if include := search.SplitPatterns(getString(req, "include", "")); include != nil {
		filter.Include = include
	}
	if exclude := search.SplitPatterns(getString(req, "exclude", "")); exclude != nil {
		filter.Exclude = exclude
	}
	if err := filter.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if h.root == "" {
		return jsonResult([]search.SearchResult{})
	}
	results, err := h.newEngine(filter).Scan(ctx, query, []string{h.root})
	slog.Debug("mcp:search", "query", query, "count", len(results), "error", err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

// preview handles fif_preview tool calls.
func (h *handlers) preview(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil || file == "" {
		return mcp.NewToolResultError("file is required"), nil //nolint:nilerr
	}
	line := getInt(req, "line", 0)
	if line < 1 {
		return mcp.NewToolResultError("line must be a positive number"), nil
	}
	if _, err := search.Resolve(h.root, file); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(preview.Load(h.root, file, line))
}

func getString(req mcp.CallToolRequest, name, def string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return def
}

// getInt reads a JSON number argument
func getInt(req mcp.CallToolRequest, name string, def int) int {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}
	if v, ok := args[name].(float64); ok {
		return int(v)
	}
	return def
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
