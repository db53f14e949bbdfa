package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0muji4/lsp-bridge/internal/callgraph"
	"github.com/0muji4/lsp-bridge/internal/lsp"
	"github.com/0muji4/lsp-bridge/internal/workspace"
)

var _ lsp.CodeAnalyzer = (*fakeAnalyzer)(nil)
var _ workspace.Searcher = (*fakeSearcher)(nil)

type fakeAnalyzer struct {
	definitions []lsp.Location
	references  []lsp.Location
	symbols     map[string][]lsp.Symbol
}

func (f *fakeAnalyzer) Definition(ctx context.Context, filePath string, line, char int) ([]lsp.Location, error) {
	return f.definitions, nil
}

func (f *fakeAnalyzer) References(ctx context.Context, filePath string, line, char int) ([]lsp.Location, error) {
	return f.references, nil
}

func (f *fakeAnalyzer) Hover(ctx context.Context, filePath string, line, char int) (string, error) {
	return "", nil
}

func (f *fakeAnalyzer) DocumentSymbols(ctx context.Context, filePath string) ([]lsp.Symbol, error) {
	return f.symbols[filePath], nil
}

func (f *fakeAnalyzer) Close() error { return nil }

type fakeSearcher struct {
	matches []workspace.Match
}

func (f *fakeSearcher) Search(path, query string) ([]workspace.Match, error) {
	return f.matches, nil
}

const testRoot = "/project"

func newTestHandler(fake *fakeAnalyzer, searcher *fakeSearcher) *ToolHandler {
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	resolver := callgraph.NewResolver(fake, testRoot)
	return NewToolHandler(fake, resolver, searcher, testRoot)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestGetDefinition(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file_path is a validation error", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{}, nil)

		result, err := handler.GetDefinition(ctx, callRequest("get_definition", map[string]any{
			"line": 1, "character": 2,
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("numeric string arguments are accepted", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{
			definitions: []lsp.Location{
				{URI: "file:///project/util.go", Range: lsp.Range{
					Start: lsp.Position{Line: 3, Character: 5},
					End:   lsp.Position{Line: 3, Character: 8},
				}},
			},
		}, nil)

		result, err := handler.GetDefinition(ctx, callRequest("get_definition", map[string]any{
			"file_path": "main.go",
			"line":      "2",
			"character": "10",
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "util.go:3:5", resultText(t, result))
	})

	t.Run("no definition", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{}, nil)

		result, err := handler.GetDefinition(ctx, callRequest("get_definition", map[string]any{
			"file_path": "main.go", "line": float64(2), "character": float64(10),
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "No definition found.", resultText(t, result))
	})

	t.Run("fractional position is rejected", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{}, nil)

		result, err := handler.GetDefinition(ctx, callRequest("get_definition", map[string]any{
			"file_path": "main.go", "line": float64(2.7), "character": float64(0),
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("negative position is rejected", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{}, nil)

		result, err := handler.GetDefinition(ctx, callRequest("get_definition", map[string]any{
			"file_path": "main.go", "line": float64(-1), "character": float64(0),
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestGetReferences(t *testing.T) {
	ctx := context.Background()

	t.Run("serializes the location list", func(t *testing.T) {
		refs := []lsp.Location{
			{URI: "file:///project/a.go", Range: lsp.Range{
				Start: lsp.Position{Line: 1, Character: 2},
				End:   lsp.Position{Line: 1, Character: 5},
			}},
		}
		handler := newTestHandler(&fakeAnalyzer{references: refs}, nil)

		result, err := handler.GetReferences(ctx, callRequest("get_references", map[string]any{
			"file_path": "a.go", "line": float64(1), "character": float64(2),
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		var decoded []lsp.Location
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
		assert.Equal(t, refs, decoded)
	})

	t.Run("empty result serializes to null", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{}, nil)

		result, err := handler.GetReferences(ctx, callRequest("get_references", map[string]any{
			"file_path": "a.go", "line": float64(0), "character": float64(0),
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "null", resultText(t, result))
	})
}

func TestSearchInFile(t *testing.T) {
	ctx := context.Background()

	t.Run("serializes matches", func(t *testing.T) {
		searcher := &fakeSearcher{matches: []workspace.Match{
			{Line: 0, Character: 0, Text: "aaa"},
			{Line: 0, Character: 1, Text: "aaa"},
		}}
		handler := newTestHandler(&fakeAnalyzer{}, searcher)

		result, err := handler.SearchInFile(ctx, callRequest("search_in_file", map[string]any{
			"file_path": "overlap.txt", "query": "aa",
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		var decoded []workspace.Match
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, 1, decoded[1].Character)
	})

	t.Run("missing query is a validation error", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{}, nil)

		result, err := handler.SearchInFile(ctx, callRequest("search_in_file", map[string]any{
			"file_path": "a.txt",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestCheckFunctionCall(t *testing.T) {
	ctx := context.Background()

	mainRange := lsp.Range{Start: lsp.Position{Line: 0, Character: 0}, End: lsp.Position{Line: 5, Character: 1}}
	mainSel := lsp.Range{Start: lsp.Position{Line: 0, Character: 5}, End: lsp.Position{Line: 0, Character: 9}}
	addRange := lsp.Range{Start: lsp.Position{Line: 3, Character: 0}, End: lsp.Position{Line: 6, Character: 1}}
	addSel := lsp.Range{Start: lsp.Position{Line: 3, Character: 5}, End: lsp.Position{Line: 3, Character: 8}}

	symbols := map[string][]lsp.Symbol{
		"main.go": {{Name: "main", Kind: 12, Range: &mainRange, SelectionRange: &mainSel}},
		"util.go": {{Name: "add", Kind: 12, Range: &addRange, SelectionRange: &addSel}},
	}

	callArgs := map[string]any{
		"source_file":     "main.go",
		"source_function": "main",
		"target_file":     "util.go",
		"target_function": "add",
	}

	t.Run("positive verdict with location", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{
			symbols: symbols,
			references: []lsp.Location{
				{URI: "file:///project/main.go", Range: lsp.Range{
					Start: lsp.Position{Line: 2, Character: 10},
					End:   lsp.Position{Line: 2, Character: 13},
				}},
			},
		}, nil)

		result, err := handler.CheckFunctionCall(ctx, callRequest("check_function_call", callArgs))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, `"main" calls "add"`)
		assert.Contains(t, text, "main.go:2:10")
	})

	t.Run("negative verdict names both functions", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{
			symbols: symbols,
			references: []lsp.Location{
				{URI: "file:///project/other.go", Range: lsp.Range{
					Start: lsp.Position{Line: 9, Character: 1},
					End:   lsp.Position{Line: 9, Character: 4},
				}},
			},
		}, nil)

		result, err := handler.CheckFunctionCall(ctx, callRequest("check_function_call", callArgs))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, "No call found")
		assert.Contains(t, text, `"main"`)
		assert.Contains(t, text, `"add"`)
	})

	t.Run("missing symbol stays inside the tool boundary", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{symbols: symbols}, nil)

		args := map[string]any{
			"source_file":     "main.go",
			"source_function": "nosuch",
			"target_file":     "util.go",
			"target_function": "add",
		}
		result, err := handler.CheckFunctionCall(ctx, callRequest("check_function_call", args))
		require.NoError(t, err, "lookup misses must not escape as protocol errors")
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "not found")
	})

	t.Run("missing argument", func(t *testing.T) {
		handler := newTestHandler(&fakeAnalyzer{symbols: symbols}, nil)

		result, err := handler.CheckFunctionCall(ctx, callRequest("check_function_call", map[string]any{
			"source_file": "main.go",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}
