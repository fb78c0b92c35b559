package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Ripgrep is an Engine that delegates the scan to the rg binary.
// It is configured to behave like Scanner: fixed-string, case-sensitive,
// path-sorted, ignore files disregarded.
type Ripgrep struct {
	filter Filter
	binary string
}

// NewRipgrep creates a ripgrep-backed engine
func NewRipgrep(filter Filter) *Ripgrep {
	return &Ripgrep{filter: filter, binary: "rg"}
}

// Available reports whether the rg binary can be found in PATH
func (r *Ripgrep) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Scan runs rg once per root and concatenates the results in root order
func (r *Ripgrep) Scan(ctx context.Context, query string, roots []string) ([]SearchResult, error) {
	results := make([]SearchResult, 0)
	for _, root := range roots {
		if root == "" {
			continue
		}
		found, err := r.scanRoot(ctx, query, root)
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
	}
	return results, nil
}

func (r *Ripgrep) args(query string) []string {
	args := []string{
		"--vimgrep",
		"--no-heading",
		"--color=never",
		"--fixed-strings",
		"--case-sensitive",
		"--sort=path",
		"--no-ignore",
		"--hidden",
	}
	for _, g := range r.filter.Include {
		args = append(args, "--glob", g)
	}
	for _, g := range r.filter.Exclude {
		args = append(args, "--glob", "!"+g)
	}
	// -e keeps queries starting with '-' from being parsed as flags
	return append(args, "-e", query)
}

func (r *Ripgrep) scanRoot(ctx context.Context, query, root string) ([]SearchResult, error) {
	cmd := exec.CommandContext(ctx, r.binary, r.args(query)...)
	cmd.Dir = root

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ripgrep: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	results := make([]SearchResult, 0)

	for scanner.Scan() {
		result, err := ParseVimgrepLine(scanner.Text())
		if err != nil {
			// Skip invalid lines
			continue
		}
		results = appendLine(results, result)
	}

	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// ripgrep exits 1 when nothing matched
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return []SearchResult{}, nil
		}
		return nil, fmt.Errorf("ripgrep failed: %w", err)
	}

	return results, nil
}

// appendLine collapses vimgrep's one-record-per-occurrence output into
// one result per matching line, keeping the first column.
func appendLine(results []SearchResult, r *SearchResult) []SearchResult {
	r.File = strings.TrimPrefix(r.File, "./")
	if n := len(results); n > 0 && results[n-1].File == r.File && results[n-1].Line == r.Line {
		return results
	}
	r.Text = strings.TrimSpace(r.Text)
	return append(results, *r)
}
