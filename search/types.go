package search

import "context"

// SearchResult represents a single matching line
type SearchResult struct {
	File   string `json:"file"`             // relative to the root it was found under
	Line   int    `json:"line"`             // 1-based
	Column int    `json:"column,omitempty"` // 1-based byte offset of the first occurrence
	Text   string `json:"text"`             // trimmed line content
}

// Engine scans roots for lines containing query
type Engine interface {
	Scan(ctx context.Context, query string, roots []string) ([]SearchResult, error)
}
