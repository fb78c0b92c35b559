package preview

import (
	"strings"

	"github.com/takaishi/fifpanel/search"
)

// Radius is the number of context lines shown on each side of the target
const Radius = 15

// Load builds the preview window for targetLine in file, resolved against root.
// It never fails: a file that is unreadable or lies outside root yields an
// empty Code with the same language and line metadata.
func Load(root, file string, targetLine int) *Preview {
	startLine := max(1, targetLine-Radius)
	p := &Preview{
		File:       file,
		Language:   LanguageFor(file),
		StartLine:  startLine,
		TargetLine: targetLine,
	}

	path, err := search.Resolve(root, file)
	if err != nil {
		return p
	}
	content, err := search.ReadText(path)
	if err != nil {
		return p
	}

	lines := search.SplitLines(content)
	endLine := min(len(lines), targetLine+Radius)
	if startLine > endLine {
		return p
	}

	// 1-based inclusive bounds to a 0-based slice
	p.Code = strings.Join(lines[startLine-1:endLine], "\n")
	return p
}
