package lsp

import "context"

// CodeAnalyzer defines the language-server queries the bridge depends on.
type CodeAnalyzer interface {
	Definition(ctx context.Context, filePath string, line, char int) ([]Location, error)
	References(ctx context.Context, filePath string, line, char int) ([]Location, error)
	Hover(ctx context.Context, filePath string, line, char int) (string, error)
	DocumentSymbols(ctx context.Context, filePath string) ([]Symbol, error)
	Close() error
}
