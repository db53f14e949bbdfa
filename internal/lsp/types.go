package lsp

import "encoding/json"

type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type JSONRPCMessage struct {
	JSONRPC string `json:"jsonrpc"`
	// ID は JSON-RPC 上は数値・文字列・null のいずれも合法なので
	// 生のまま保持します。こちらが発行するのは数値IDのみです。
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type InitializeParams struct {
	ProcessID        int                    `json:"processId"`
	RootURI          string                 `json:"rootUri"`
	Capabilities     map[string]interface{} `json:"capabilities"`
	WorkspaceFolders []WorkspaceFolder      `json:"workspaceFolders,omitempty"`
}

type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
}

type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// documentSymbol は階層型（textDocument/documentSymbol の DocumentSymbol[]）の
// レスポンス形式です
type documentSymbol struct {
	Name           string           `json:"name"`
	Kind           int              `json:"kind"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []documentSymbol `json:"children,omitempty"`
}

// symbolInformation はフラット型（SymbolInformation[]）のレスポンス形式です
type symbolInformation struct {
	Name          string   `json:"name"`
	Kind          int      `json:"kind"`
	Location      Location `json:"location"`
	ContainerName string   `json:"containerName,omitempty"`
}

// Symbol is a declaration reported by the language server's document outline.
// A server returns either hierarchical symbols (Range/SelectionRange plus
// Children) or flat symbol information (Location only); the variant is decided
// once when the response is decoded, and exactly one of the two field sets is
// populated.
type Symbol struct {
	Name           string
	Kind           int
	Range          *Range
	SelectionRange *Range
	Location       *Location
	Children       []Symbol
}

// DefinitionPosition はシンボルの定義位置を返します。
// 階層型は SelectionRange.Start、フラット型は Location.Range.Start を使います。
func (s Symbol) DefinitionPosition() (Position, bool) {
	if s.SelectionRange != nil {
		return s.SelectionRange.Start, true
	}
	if s.Location != nil {
		return s.Location.Range.Start, true
	}
	return Position{}, false
}

// DeclarationRange はシンボル宣言全体を覆う範囲を返します。
func (s Symbol) DeclarationRange() (Range, bool) {
	if s.Range != nil {
		return *s.Range, true
	}
	if s.Location != nil {
		return s.Location.Range, true
	}
	return Range{}, false
}

type hoverResult struct {
	Contents json.RawMessage `json:"contents"`
}

type markupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}
