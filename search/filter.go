package search

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude is the set of source files scanned when no include glob is given
var DefaultInclude = []string{"**/*.{ts,js,jsx,tsx,html,css,go}"}

// DefaultExclude keeps vendored dependencies and VCS metadata out of the scan
var DefaultExclude = []string{"**/node_modules/**", "**/.git/**"}

// Filter decides which files under a root are eligible for scanning.
// Patterns use doublestar syntax and are matched against the
// slash-separated path relative to the root.
type Filter struct {
	Include []string
	Exclude []string
}

// DefaultFilter returns the filter used when nothing is configured
func DefaultFilter() Filter {
	return Filter{
		Include: append([]string(nil), DefaultInclude...),
		Exclude: append([]string(nil), DefaultExclude...),
	}
}

// Validate reports the first malformed pattern
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern: %s", p)
		}
	}
	return nil
}

// Matches reports whether rel is included and not excluded.
// An empty include list includes everything.
func (f Filter) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)

	if f.excludes(rel) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// SkipDir reports whether a whole directory can be pruned from the walk.
// Only "<prefix>/**" excludes prune: they exclude everything below a
// directory matching prefix. Other excludes are left to Matches.
func (f Filter) SkipDir(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range f.Exclude {
		prefix, ok := strings.CutSuffix(p, "/**")
		if !ok || prefix == "" {
			continue
		}
		if matched, _ := doublestar.Match(prefix, rel); matched {
			return true
		}
	}
	return false
}

func (f Filter) excludes(rel string) bool {
	for _, p := range f.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// SplitPatterns splits a comma-separated pattern list. Commas inside {}
// alternatives belong to the pattern.
func SplitPatterns(s string) []string {
	var out []string
	depth, start := 0, 0
	flush := func(end int) {
		if p := strings.TrimSpace(s[start:end]); p != "" {
			out = append(out, p)
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return out
}
