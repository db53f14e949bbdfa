package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/0muji4/lsp-bridge/internal/callgraph"
	"github.com/0muji4/lsp-bridge/internal/config"
	"github.com/0muji4/lsp-bridge/internal/lsp"
	"github.com/0muji4/lsp-bridge/internal/server"
	"github.com/0muji4/lsp-bridge/internal/workspace"
)

func main() {
	// --- 設定の読み込み ---
	cfg := config.Default()
	if path := os.Getenv("BRIDGE_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	rootPath, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		log.Fatal(err)
	}

	// --- DI: language server クライアントと各層の組み立て ---
	// プロセスにつき LSP クライアントは1つ。開いたファイルの状態もここが持ちます。
	client, err := lsp.NewClient(rootPath, cfg.ServerCommand, cfg.ServerArgs...)
	if err != nil {
		log.Fatalf("failed to start %s: %v", cfg.ServerCommand, err)
	}
	defer client.Close()

	resolver := callgraph.NewResolver(client, rootPath)
	reader := workspace.NewFSReader(rootPath)
	handler := server.NewToolHandler(client, resolver, reader, rootPath)
	s := server.New(handler)

	// --- Framework: MCP stdio サーバーの起動 ---
	fmt.Fprintf(os.Stderr, "lsp-bridge MCP server starting (root: %s, server: %s)...\n", rootPath, cfg.ServerCommand)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
