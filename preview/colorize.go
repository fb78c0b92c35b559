package preview

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

const (
	terminalFormatter = "terminal256"
	terminalStyle     = "monokai"
)

// chroma has no "markup" lexer; the tags below are named differently there
var chromaLexers = map[string]string{
	"markup": "html",
	"csharp": "c#",
}

// Colorize renders code with ANSI syntax colours for the given language tag.
// The code is returned unchanged when it cannot be highlighted.
func Colorize(code, language string) string {
	if code == "" {
		return code
	}
	lexer := language
	if alias, ok := chromaLexers[language]; ok {
		lexer = alias
	}

	var b strings.Builder
	if err := quick.Highlight(&b, code, lexer, terminalFormatter, terminalStyle); err != nil {
		return code
	}
	return strings.TrimSuffix(b.String(), "\n")
}
