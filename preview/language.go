package preview

import (
	"path/filepath"
	"strings"
)

// DefaultLanguage is the tag for extensions missing from the table
const DefaultLanguage = "markup"

var languages = map[string]string{
	"ts":   "typescript",
	"tsx":  "typescript",
	"js":   "javascript",
	"jsx":  "jsx",
	"py":   "python",
	"java": "java",
	"cs":   "csharp",
	"php":  "php",
	"rb":   "ruby",
	"go":   "go",
	"css":  "css",
	"html": "markup",
}

// LanguageFor maps a file's extension to its display language tag
func LanguageFor(file string) string {
	ext := strings.TrimPrefix(filepath.Ext(file), ".")
	if lang, ok := languages[ext]; ok {
		return lang
	}
	return DefaultLanguage
}
