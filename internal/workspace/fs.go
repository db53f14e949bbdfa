package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var _ Searcher = (*FSReader)(nil)

// FSReader reads and searches files under a fixed project root.
type FSReader struct {
	rootPath string
}

func NewFSReader(rootPath string) *FSReader {
	return &FSReader{rootPath: rootPath}
}

func (r *FSReader) ReadFile(relPath string) (string, error) {
	absPath, err := r.resolve(relPath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Search はファイル内の query の出現位置をすべて返します。
// 各ヒットの1文字先から再開するため、重なり合う出現もすべて報告されます。
func (r *FSReader) Search(relPath, query string) ([]Match, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	content, err := r.ReadFile(relPath)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for lineNo, line := range strings.Split(content, "\n") {
		from := 0
		for {
			idx := strings.Index(line[from:], query)
			if idx < 0 {
				break
			}
			char := from + idx
			matches = append(matches, Match{
				Line:      lineNo,
				Character: char,
				Text:      line,
			})
			from = char + 1
		}
	}
	return matches, nil
}

func (r *FSReader) resolve(relPath string) (string, error) {
	absPath := filepath.Join(r.rootPath, relPath)
	absPath = filepath.Clean(absPath)

	// パストラバーサル防止。単純な前方一致ではルートと同じ接頭辞を持つ
	// 兄弟ディレクトリ（/root と /root-backup）を通してしまうので、
	// 区切り文字まで含めて比較します。
	if absPath != r.rootPath && !strings.HasPrefix(absPath, r.rootPath+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside project root", relPath)
	}
	return absPath, nil
}
