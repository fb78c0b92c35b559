package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takaishi/fifpanel/preview"
	"github.com/takaishi/fifpanel/search"
)

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("let a = 1;\nconst x = 5;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b\n\nconst x = 6\n"), 0o644))
	return newHandlers(Options{Root: root, Filter: search.DefaultFilter()})
}

func TestSearchTool(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.search(context.Background(), call("fif_search", map[string]any{"query": "const x"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var results []search.SearchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &results))
	assert.Equal(t, []search.SearchResult{
		{File: "a.ts", Line: 2, Column: 1, Text: "const x = 5;"},
		{File: "b.go", Line: 3, Column: 1, Text: "const x = 6"},
	}, results)
}

func TestSearchTool_IncludeOverride(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.search(context.Background(), call("fif_search", map[string]any{
		"query":   "const x",
		"include": "**/*.go, ",
	}))
	require.NoError(t, err)

	var results []search.SearchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "b.go", results[0].File)
}

func TestSearchTool_Errors(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.search(context.Background(), call("fif_search", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.search(context.Background(), call("fif_search", map[string]any{"query": "x", "exclude": "[a"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSearchTool_NoRoot(t *testing.T) {
	h := newHandlers(Options{Filter: search.DefaultFilter()})

	res, err := h.search(context.Background(), call("fif_search", map[string]any{"query": "x"}))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, res))
}

func TestPreviewTool(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.preview(context.Background(), call("fif_preview", map[string]any{"file": "a.ts", "line": float64(2)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var p preview.Preview
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &p))
	assert.Equal(t, "let a = 1;\nconst x = 5;", p.Code)
	assert.Equal(t, "typescript", p.Language)
	assert.Equal(t, 1, p.StartLine)
	assert.Equal(t, 2, p.TargetLine)

	res, err = h.preview(context.Background(), call("fif_preview", map[string]any{"file": "a.ts"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNewServer(t *testing.T) {
	s := NewServer(Options{Filter: search.DefaultFilter()})
	assert.NotNil(t, s)
}

func TestPreviewTool_OutsideRoot(t *testing.T) {
	h := newTestHandlers(t)

	for _, file := range []string{"../a.ts", "/etc/passwd"} {
		res, err := h.preview(context.Background(), call("fif_preview", map[string]any{"file": file, "line": float64(1)}))
		require.NoError(t, err)
		assert.True(t, res.IsError, file)
		assert.Contains(t, resultText(t, res), "outside the workspace root")
	}
}
