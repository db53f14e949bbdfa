package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var _ CodeAnalyzer = (*Client)(nil)

// Client は language server プロセスを管理する構造体です。
// 1プロセスにつき1つの接続を持ち、リクエストIDで応答を対応付けるため
// 複数のツール呼び出しが同じ接続上で並行してパイプラインできます。
type Client struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	rootPath string

	writeMu sync.Mutex

	mu      sync.Mutex
	idSeq   int
	pending map[int]chan JSONRPCMessage
	readErr error

	initMu      sync.Mutex
	initialized bool

	openMu sync.Mutex
	opened map[string]struct{}
}

// NewClient は language server を起動してクライアントを返します。
// Initialize ハンドシェイクは遅延実行されます（最初のクエリ時）。
func NewClient(rootPath, command string, args ...string) (*Client, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}

	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("%s not found: %w", command, err)
	}

	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	// 標準エラー出力はログとして素通しします
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	client := newClient(absRoot, stdin, stdoutPipe)
	client.cmd = cmd

	go func() {
		err := cmd.Wait()
		fmt.Fprintf(os.Stderr, "lsp: server process exited: %v\n", err)
	}()

	return client, nil
}

// newClient はパイプ上にクライアントを構築し、読み取りゴルーチンを開始します。
func newClient(rootPath string, stdin io.WriteCloser, stdout io.Reader) *Client {
	c := &Client{
		stdin:    stdin,
		rootPath: rootPath,
		pending:  map[int]chan JSONRPCMessage{},
		opened:   map[string]struct{}{},
	}
	go c.readLoop(bufio.NewReader(stdout))
	return c
}

func (c *Client) Close() error {
	_ = c.stdin.Close()
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// Definition は指定位置のシンボルの定義位置を検索します。
func (c *Client) Definition(ctx context.Context, filePath string, line, char int) ([]Location, error) {
	absPath, err := c.prepare(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + absPath},
		Position:     Position{Line: line, Character: char},
	}

	resp, err := c.call(ctx, "textDocument/definition", params)
	if err != nil {
		return nil, err
	}
	return decodeLocations(resp)
}

// References は指定位置のシンボルの参照元を検索します（宣言を含む）。
func (c *Client) References(ctx context.Context, filePath string, line, char int) ([]Location, error) {
	absPath, err := c.prepare(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := ReferenceParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: "file://" + absPath},
			Position:     Position{Line: line, Character: char},
		},
		Context: ReferenceContext{IncludeDeclaration: true},
	}

	resp, err := c.call(ctx, "textDocument/references", params)
	if err != nil {
		return nil, err
	}
	return decodeLocations(resp)
}

// Hover は指定位置のホバーテキストを取得します。結果がなければ空文字列です。
func (c *Client) Hover(ctx context.Context, filePath string, line, char int) (string, error) {
	absPath, err := c.prepare(ctx, filePath)
	if err != nil {
		return "", err
	}

	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + absPath},
		Position:     Position{Line: line, Character: char},
	}

	resp, err := c.call(ctx, "textDocument/hover", params)
	if err != nil {
		return "", err
	}
	return decodeHover(resp)
}

// DocumentSymbols はファイル全体のシンボルツリー（アウトライン）を取得します。
func (c *Client) DocumentSymbols(ctx context.Context, filePath string) ([]Symbol, error) {
	absPath, err := c.prepare(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := DocumentSymbolParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + absPath},
	}

	resp, err := c.call(ctx, "textDocument/documentSymbol", params)
	if err != nil {
		return nil, err
	}
	return decodeSymbols(resp)
}

// prepare はクエリ前の共通処理（初期化・didOpen・パス解決）を行います。
func (c *Client) prepare(ctx context.Context, filePath string) (string, error) {
	absPath := c.resolve(filePath)
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}
	c.ensureOpen(absPath)
	return absPath, nil
}

func (c *Client) resolve(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filepath.Clean(filePath)
	}
	return filepath.Join(c.rootPath, filePath)
}

// ensureInitialized は Initialize ハンドシェイクを一度だけ実行します。
// 失敗した場合は initialized のままにならないため、次の呼び出しで再試行されます。
func (c *Client) ensureInitialized(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}

	params := InitializeParams{
		ProcessID: os.Getpid(),
		RootURI:   "file://" + c.rootPath,
		Capabilities: map[string]interface{}{
			"textDocument": map[string]interface{}{
				"definition": map[string]interface{}{},
				"references": map[string]interface{}{},
				"hover":      map[string]interface{}{},
				"documentSymbol": map[string]interface{}{
					"hierarchicalDocumentSymbolSupport": true,
				},
			},
			"workspace": map[string]interface{}{
				"workspaceFolders": true,
			},
		},
		WorkspaceFolders: []WorkspaceFolder{
			{URI: "file://" + c.rootPath, Name: filepath.Base(c.rootPath)},
		},
	}

	if _, err := c.call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	if err := c.notify("initialized", struct{}{}); err != nil {
		return fmt.Errorf("failed to send initialized: %w", err)
	}

	c.initialized = true
	return nil
}

// ensureOpen は初回アクセス時のみファイル内容を読んで didOpen を送ります。
// 読み取り失敗はログに残してそのまま続行します（ベストエフォート）。
// 開いたファイルの集合は単調増加で、didClose は送りません。
func (c *Client) ensureOpen(absPath string) {
	c.openMu.Lock()
	defer c.openMu.Unlock()

	if _, ok := c.opened[absPath]; ok {
		return
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lsp: could not read %s for didOpen: %v\n", absPath, err)
		return
	}

	params := DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        "file://" + absPath,
			LanguageID: languageID(absPath),
			Version:    1,
			Text:       string(data),
		},
	}
	if err := c.notify("textDocument/didOpen", params); err != nil {
		fmt.Fprintf(os.Stderr, "lsp: didOpen failed for %s: %v\n", absPath, err)
		return
	}

	c.opened[absPath] = struct{}{}
}

func languageID(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	default:
		return "plaintext"
	}
}

// --- Internal Helpers ---

// call はリクエストを送信し、同じIDの応答が届くまで待ちます。
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return nil, fmt.Errorf("lsp connection closed: %w", err)
	}
	c.idSeq++
	id := c.idSeq
	ch := make(chan JSONRPCMessage, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
	if err := c.writeMessage(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	case msg, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.readErr
			c.mu.Unlock()
			return nil, fmt.Errorf("lsp connection closed: %w", err)
		}
		if msg.Error != nil {
			return nil, fmt.Errorf("lsp error %d: %s", msg.Error.Code, msg.Error.Message)
		}
		return msg.Result, nil
	}
}

func (c *Client) notify(method string, params interface{}) error {
	return c.writeMessage(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

func (c *Client) writeMessage(req JSONRPCRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = fmt.Fprintf(c.stdin, "Content-Length: %d\r\n\r\n%s", len(body), body)
	return err
}

// readLoop は接続上の全メッセージを読み、IDで待機中の呼び出しに振り分けます。
// サーバー発の通知・リクエストは読み捨てます。
func (c *Client) readLoop(r *bufio.Reader) {
	for {
		msg, err := readMessage(r)
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			for id, ch := range c.pending {
				close(ch)
				delete(c.pending, id)
			}
			c.mu.Unlock()
			return
		}

		// ID がありメソッドがないものだけが応答。サーバー発リクエストは
		// 文字列IDを持ち得るため、数値に解釈できないIDも読み捨てます。
		if len(msg.ID) == 0 || msg.Method != "" {
			continue
		}
		var id int
		if err := json.Unmarshal(msg.ID, &id); err != nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[id]
		if ok {
			delete(c.pending, id)
		}
		c.mu.Unlock()

		if ok {
			ch <- msg
		}
	}
}

func readMessage(r *bufio.Reader) (JSONRPCMessage, error) {
	var length int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return JSONRPCMessage{}, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "Content-Length: ") {
			length, _ = strconv.Atoi(strings.TrimPrefix(line, "Content-Length: "))
		}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return JSONRPCMessage{}, err
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return JSONRPCMessage{}, err
	}
	return msg, nil
}

// --- Response Decoding ---

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeLocations は Location | Location[] | null の揺れを吸収します。
func decodeLocations(raw json.RawMessage) ([]Location, error) {
	if isNull(raw) {
		return nil, nil
	}

	var locations []Location
	if err := json.Unmarshal(raw, &locations); err == nil {
		return locations, nil
	}

	var single Location
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("failed to parse locations: %w", err)
	}
	return []Location{single}, nil
}

func decodeHover(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}

	var h hoverResult
	if err := json.Unmarshal(raw, &h); err != nil {
		return "", fmt.Errorf("failed to parse hover: %w", err)
	}
	if isNull(h.Contents) {
		return "", nil
	}

	// contents は MarkupContent | string | (string | {language,value})[] のいずれか
	var markup markupContent
	if err := json.Unmarshal(h.Contents, &markup); err == nil && markup.Value != "" {
		return markup.Value, nil
	}
	var plain string
	if err := json.Unmarshal(h.Contents, &plain); err == nil {
		return plain, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(h.Contents, &parts); err == nil {
		var texts []string
		for _, p := range parts {
			var s string
			if err := json.Unmarshal(p, &s); err == nil {
				texts = append(texts, s)
				continue
			}
			var m markupContent
			if err := json.Unmarshal(p, &m); err == nil {
				texts = append(texts, m.Value)
			}
		}
		return strings.Join(texts, "\n"), nil
	}

	return "", fmt.Errorf("unrecognized hover contents: %s", h.Contents)
}

// decodeSymbols は階層型かフラット型かを受信時に一度だけ判定します。
func decodeSymbols(raw json.RawMessage) ([]Symbol, error) {
	if isNull(raw) {
		return nil, nil
	}

	var peek []struct {
		SelectionRange *Range `json:"selectionRange"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, fmt.Errorf("failed to parse document symbols: %w", err)
	}
	if len(peek) == 0 {
		return nil, nil
	}

	if peek[0].SelectionRange != nil {
		var docSymbols []documentSymbol
		if err := json.Unmarshal(raw, &docSymbols); err != nil {
			return nil, fmt.Errorf("failed to parse document symbols: %w", err)
		}
		return fromDocumentSymbols(docSymbols), nil
	}

	var infos []symbolInformation
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, fmt.Errorf("failed to parse symbol information: %w", err)
	}
	return fromSymbolInformation(infos), nil
}

func fromDocumentSymbols(in []documentSymbol) []Symbol {
	out := make([]Symbol, 0, len(in))
	for _, ds := range in {
		r := ds.Range
		sel := ds.SelectionRange
		out = append(out, Symbol{
			Name:           ds.Name,
			Kind:           ds.Kind,
			Range:          &r,
			SelectionRange: &sel,
			Children:       fromDocumentSymbols(ds.Children),
		})
	}
	return out
}

func fromSymbolInformation(in []symbolInformation) []Symbol {
	out := make([]Symbol, 0, len(in))
	for _, si := range in {
		loc := si.Location
		out = append(out, Symbol{
			Name:     si.Name,
			Kind:     si.Kind,
			Location: &loc,
		})
	}
	return out
}
