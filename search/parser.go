package search

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseVimgrepLine parses a single line of ripgrep vimgrep output
// Format: file:line:column:text
func ParseVimgrepLine(line string) (*SearchResult, error) {
	// The text part may itself contain colons
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid vimgrep format: %s", line)
	}

	lineNum, err := strconv.Atoi(parts[1])
	if err != nil || lineNum < 1 {
		return nil, fmt.Errorf("invalid line number: %s", parts[1])
	}

	columnNum, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid column number: %s", parts[2])
	}

	return &SearchResult{
		File:   parts[0],
		Line:   lineNum,
		Column: columnNum,
		Text:   strings.TrimSuffix(parts[3], "\r"),
	}, nil
}

// ParseVimgrepOutput parses a whole vimgrep stream, one result per matching line
func ParseVimgrepOutput(output string) []SearchResult {
	results := make([]SearchResult, 0)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		result, err := ParseVimgrepLine(line)
		if err != nil {
			continue
		}
		results = appendLine(results, result)
	}
	return results
}
