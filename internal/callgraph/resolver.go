package callgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/0muji4/lsp-bridge/internal/lsp"
)

// Lookup-miss sentinels. These become negative text results at the tool
// boundary, never protocol errors.
var (
	ErrNoSymbols      = errors.New("no symbols found")
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrNoReferences also fires when the target simply has zero references;
	// the two cases are indistinguishable at this layer.
	ErrNoReferences = errors.New("no references found")
)

// Resolver answers call-graph questions using only document outlines and
// reference search from the language server. A reference to the target's
// definition lying textually inside the source function's range is treated
// as a call; this over-matches non-call references and misses indirect
// calls the server does not resolve.
type Resolver struct {
	analyzer lsp.CodeAnalyzer
	rootPath string
}

// Result holds the outcome of a call-graph check.
type Result struct {
	Found          bool
	SourceFunction string
	TargetFunction string
	References     []lsp.Location
}

func NewResolver(analyzer lsp.CodeAnalyzer, rootPath string) *Resolver {
	return &Resolver{analyzer: analyzer, rootPath: rootPath}
}

// CheckFunctionCall は sourceFile の sourceFunction が targetFile の
// targetFunction を呼んでいそうかを判定します。
// 手順: 両ファイルのアウトラインから関数を探す → ターゲット定義位置への
// 参照を列挙 → ソース関数の範囲内にある参照だけを残す。
func (r *Resolver) CheckFunctionCall(ctx context.Context, sourceFile, sourceFunction, targetFile, targetFunction string) (*Result, error) {
	sourceSymbol, err := r.lookupSymbol(ctx, sourceFile, sourceFunction)
	if err != nil {
		return nil, fmt.Errorf("source function %q: %w", sourceFunction, err)
	}
	targetSymbol, err := r.lookupSymbol(ctx, targetFile, targetFunction)
	if err != nil {
		return nil, fmt.Errorf("target function %q: %w", targetFunction, err)
	}

	targetPos, ok := targetSymbol.DefinitionPosition()
	if !ok {
		return nil, fmt.Errorf("target function %q has no resolvable position", targetFunction)
	}

	refs, err := r.analyzer.References(ctx, targetFile, targetPos.Line, targetPos.Character)
	if err != nil {
		return nil, fmt.Errorf("references for %q: %w", targetFunction, err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("references for %q: %w", targetFunction, ErrNoReferences)
	}

	sourceRange, ok := sourceSymbol.DeclarationRange()
	if !ok {
		return nil, fmt.Errorf("source function %q has no resolvable range", sourceFunction)
	}

	sourcePath := resolvePath(r.rootPath, sourceFile)
	var matches []lsp.Location
	for _, ref := range refs {
		if !samePath(r.rootPath, locationPath(ref), sourcePath) {
			continue
		}
		if containsPosition(sourceRange, ref.Range.Start) {
			matches = append(matches, ref)
		}
	}

	return &Result{
		Found:          len(matches) > 0,
		SourceFunction: sourceFunction,
		TargetFunction: targetFunction,
		References:     matches,
	}, nil
}

// lookupSymbol はアウトラインを取得して名前でシンボルを探します。
func (r *Resolver) lookupSymbol(ctx context.Context, filePath, name string) (*lsp.Symbol, error) {
	symbols, err := r.analyzer.DocumentSymbols(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("in %s: %w", filePath, ErrNoSymbols)
	}

	sym := findSymbol(symbols, name)
	if sym == nil {
		return nil, fmt.Errorf("in %s: %w", filePath, ErrSymbolNotFound)
	}
	return sym, nil
}

// findSymbol はシンボルツリーを深さ優先で探索し、名前が完全一致する最初の
// ノードを返します。同名シンボルが複数ある場合の曖昧さは解決しません
// （宣言順に依存する既知の制限）。
func findSymbol(symbols []lsp.Symbol, name string) *lsp.Symbol {
	for i := range symbols {
		if symbols[i].Name == name {
			return &symbols[i]
		}
		if found := findSymbol(symbols[i].Children, name); found != nil {
			return found
		}
	}
	return nil
}
