package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/0muji4/lsp-bridge/internal/callgraph"
	"github.com/0muji4/lsp-bridge/internal/lsp"
	"github.com/0muji4/lsp-bridge/internal/workspace"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandler は MCP のツール呼び出しを LSP クエリに変換する Adapter です。
// 各ハンドラが唯一のエラー境界で、失敗はすべてエラーフラグ付きテキストに
// 変換されます（プロセスは落ちません）。
type ToolHandler struct {
	analyzer lsp.CodeAnalyzer
	resolver *callgraph.Resolver
	searcher workspace.Searcher
	rootPath string
}

// NewToolHandler は ToolHandler を生成します。
func NewToolHandler(analyzer lsp.CodeAnalyzer, resolver *callgraph.Resolver, searcher workspace.Searcher, rootPath string) *ToolHandler {
	return &ToolHandler{
		analyzer: analyzer,
		resolver: resolver,
		searcher: searcher,
		rootPath: rootPath,
	}
}

// GetDefinition は get_definition ツールを処理します。
func (h *ToolHandler) GetDefinition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	line, char, err := positionArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	locations, err := h.analyzer.Definition(ctx, filePath, line, char)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("definition lookup failed: %v", err)), nil
	}
	if len(locations) == 0 {
		return mcp.NewToolResultText("No definition found."), nil
	}

	var lines []string
	for _, loc := range locations {
		lines = append(lines, h.formatLocation(loc))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// GetReferences は get_references ツールを処理します。
// 結果は Location のリストをそのままシリアライズします（なければ null）。
func (h *ToolHandler) GetReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	line, char, err := positionArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	locations, err := h.analyzer.References(ctx, filePath, line, char)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reference lookup failed: %v", err)), nil
	}

	body, err := json.MarshalIndent(locations, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize references: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// SearchInFile は search_in_file ツールを処理します。
func (h *ToolHandler) SearchInFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	matches, err := h.searcher.Search(filePath, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	body, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize matches: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// CheckFunctionCall は check_function_call ツールを処理します。
func (h *ToolHandler) CheckFunctionCall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceFile, err := req.RequireString("source_file")
	if err != nil {
		return mcp.NewToolResultError("source_file is required"), nil
	}
	sourceFunction, err := req.RequireString("source_function")
	if err != nil {
		return mcp.NewToolResultError("source_function is required"), nil
	}
	targetFile, err := req.RequireString("target_file")
	if err != nil {
		return mcp.NewToolResultError("target_file is required"), nil
	}
	targetFunction, err := req.RequireString("target_function")
	if err != nil {
		return mcp.NewToolResultError("target_function is required"), nil
	}

	result, err := h.resolver.CheckFunctionCall(ctx, sourceFile, sourceFunction, targetFile, targetFunction)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !result.Found {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No call found from %q to %q.", result.SourceFunction, result.TargetFunction)), nil
	}

	var lines []string
	lines = append(lines, fmt.Sprintf(
		"Yes: %q calls %q (%d reference(s)):",
		result.SourceFunction, result.TargetFunction, len(result.References)))
	for _, ref := range result.References {
		lines = append(lines, "  "+h.formatLocation(ref))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// formatLocation は Location を "path:line:character"（0始まり）に整形します。
// パスはプロジェクトルートからの相対に直します。
func (h *ToolHandler) formatLocation(loc lsp.Location) string {
	path := strings.TrimPrefix(loc.URI, "file://")
	if rel, err := filepath.Rel(h.rootPath, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	return fmt.Sprintf("%s:%d:%d", path, loc.Range.Start.Line, loc.Range.Start.Character)
}

// positionArgs は line / character を取り出します。
// ホスト側のシリアライズの揺れに備えて数値と数値文字列の両方を受け付けます。
func positionArgs(req mcp.CallToolRequest) (line, char int, err error) {
	line, err = intArg(req, "line")
	if err != nil {
		return 0, 0, err
	}
	char, err = intArg(req, "character")
	if err != nil {
		return 0, 0, err
	}
	if line < 0 || char < 0 {
		return 0, 0, fmt.Errorf("line and character must be non-negative")
	}
	return line, char, nil
}

func intArg(req mcp.CallToolRequest, key string) (int, error) {
	args := req.GetArguments()
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, v)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %v", key, err)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %v", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T", key, raw)
	}
}
