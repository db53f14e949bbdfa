package callgraph

import (
	"path/filepath"
	"strings"

	"github.com/0muji4/lsp-bridge/internal/lsp"
)

// containsPosition は位置が範囲内にあるかを行優先で判定します。
// 両端は含む。複数行にまたがる範囲の中間行は文字位置を問わず含みます。
func containsPosition(r lsp.Range, p lsp.Position) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Character < r.Start.Character {
		return false
	}
	if p.Line == r.End.Line && p.Character > r.End.Character {
		return false
	}
	return true
}

// locationPath は file:// URI をローカルパスに変換します。
func locationPath(loc lsp.Location) string {
	return strings.TrimPrefix(loc.URI, "file://")
}

// resolvePath は相対パスをプロジェクトルート基準の絶対パスに正規化します。
func resolvePath(rootPath, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(rootPath, path)
}

// samePath は2つのパスが正規化後に同一ファイルを指すかを判定します。
func samePath(rootPath, a, b string) bool {
	return resolvePath(rootPath, a) == resolvePath(rootPath, b)
}
