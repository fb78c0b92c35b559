package search

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// Scanner is the built-in engine: a linear, file-by-file substring scan
type Scanner struct {
	filter Filter
}

// NewScanner creates a Scanner using the given filter
func NewScanner(filter Filter) *Scanner {
	return &Scanner{filter: filter}
}

// Scan returns every line containing query (case-sensitive) under roots.
// Results follow walk order per root, then ascending line number.
// Files that cannot be read or are not text are skipped.
// No roots yields an empty result.
func (s *Scanner) Scan(ctx context.Context, query string, roots []string) ([]SearchResult, error) {
	results := make([]SearchResult, 0)

	for _, root := range roots {
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped, the root itself included
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && s.filter.SkipDir(rel) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !s.filter.Matches(rel) {
				return nil
			}

			results = append(results, scanFile(path, filepath.ToSlash(rel), query)...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// scanFile returns the matches for one file, or nothing if it is unreadable
func scanFile(path, rel, query string) []SearchResult {
	content, err := ReadText(path)
	if err != nil {
		return nil
	}

	var matches []SearchResult
	for i, line := range SplitLines(content) {
		col := strings.Index(line, query)
		if col < 0 {
			continue
		}
		matches = append(matches, SearchResult{
			File:   rel,
			Line:   i + 1,
			Column: col + 1,
			Text:   strings.TrimSpace(line),
		})
	}
	return matches
}
