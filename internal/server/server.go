package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New は MCP サーバーを生成し、ツールを登録して返します。
// ビジネスロジックは handler に委譲し、ここではプロトコル変換のみ行います。
func New(handler *ToolHandler) *server.MCPServer {
	s := server.NewMCPServer(
		"lsp-bridge",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	definitionTool := mcp.NewTool("get_definition",
		mcp.WithDescription("指定されたファイル内の行・文字位置にあるシンボルの定義位置を取得します。位置は0始まりのLSP座標です。"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("対象のファイルパス（プロジェクトルートからの相対パス）"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("対象の行番号（0始まり）"),
		),
		mcp.WithNumber("character",
			mcp.Required(),
			mcp.Description("対象の文字位置（0始まり）"),
		),
	)

	referencesTool := mcp.NewTool("get_references",
		mcp.WithDescription("指定されたファイル内の行・文字位置にあるシンボルの参照元（宣言を含む）を検索します。位置は0始まりのLSP座標です。"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("対象のファイルパス（プロジェクトルートからの相対パス）"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("対象の行番号（0始まり）"),
		),
		mcp.WithNumber("character",
			mcp.Required(),
			mcp.Description("対象の文字位置（0始まり）"),
		),
	)

	searchTool := mcp.NewTool("search_in_file",
		mcp.WithDescription("指定されたファイル内の文字列の出現位置をすべて検索します。重なり合う出現も報告されます。"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("対象のファイルパス（プロジェクトルートからの相対パス）"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("検索する文字列"),
		),
	)

	checkCallTool := mcp.NewTool("check_function_call",
		mcp.WithDescription("source_file の source_function が target_file の target_function を呼んでいるかを、LSPのアウトラインと参照検索から判定します。参照ベースの近似であり、間接呼び出しは検出できません。"),
		mcp.WithString("source_file",
			mcp.Required(),
			mcp.Description("呼び出し元関数が宣言されているファイル"),
		),
		mcp.WithString("source_function",
			mcp.Required(),
			mcp.Description("呼び出し元の関数名"),
		),
		mcp.WithString("target_file",
			mcp.Required(),
			mcp.Description("呼び出し先関数が宣言されているファイル"),
		),
		mcp.WithString("target_function",
			mcp.Required(),
			mcp.Description("呼び出し先の関数名"),
		),
	)

	s.AddTool(definitionTool, handler.GetDefinition)
	s.AddTool(referencesTool, handler.GetReferences)
	s.AddTool(searchTool, handler.SearchInFile)
	s.AddTool(checkCallTool, handler.CheckFunctionCall)

	return s
}
