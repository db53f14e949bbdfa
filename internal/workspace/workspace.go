package workspace

// Match is a single occurrence of a search query in a file.
// Line and Character are zero-based; Text is the full matched line.
type Match struct {
	Line      int    `json:"line"`
	Character int    `json:"character"`
	Text      string `json:"text"`
}

// Searcher defines substring search over workspace files.
type Searcher interface {
	Search(path, query string) ([]Match, error)
}
