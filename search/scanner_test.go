package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fortyLines builds a 40 line file whose line 20 is "const x = 5;"
func fortyLines() string {
	var b strings.Builder
	for i := 1; i <= 40; i++ {
		if i == 20 {
			b.WriteString("const x = 5;\n")
			continue
		}
		fmt.Fprintf(&b, "// line %d\n", i)
	}
	return b.String()
}

func TestScan_SingleMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", fortyLines())

	results, err := NewScanner(DefaultFilter()).Scan(context.Background(), "const x", []string{root})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, SearchResult{File: "a.ts", Line: 20, Column: 1, Text: "const x = 5;"}, results[0])
}

func TestScan_NoMatches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", fortyLines())
	writeFile(t, root, "b.go", "package b\n")

	results, err := NewScanner(DefaultFilter()).Scan(context.Background(), "zzz_not_present", []string{root})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestScan_EveryMatchingLineExactlyOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "foo\nbar foo foo\nFOO\n  foo  \n")
	writeFile(t, root, "b/c.js", "no\nfoo()\n")

	results, err := NewScanner(DefaultFilter()).Scan(context.Background(), "foo", []string{root})
	require.NoError(t, err)

	var got []string
	for _, r := range results {
		assert.Contains(t, r.Text, "foo")
		got = append(got, fmt.Sprintf("%s:%d", r.File, r.Line))
	}
	// case-sensitive, one entry per line, file order then line order
	assert.Equal(t, []string{"a.go:1", "a.go:2", "a.go:4", "b/c.js:2"}, got)
	assert.Equal(t, "foo", results[2].Text)
	assert.Equal(t, 3, results[2].Column)
}

func TestScan_EmptyQueryMatchesEveryLine(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "one\n\nthree\n")
	writeFile(t, root, "empty.go", "")

	results, err := NewScanner(DefaultFilter()).Scan(context.Background(), "", []string{root})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, "a.go", r.File)
		assert.Equal(t, i+1, r.Line)
	}
}

func TestScan_NoRoots(t *testing.T) {
	s := NewScanner(DefaultFilter())

	results, err := s.Scan(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.Scan(context.Background(), "x", []string{"", filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScan_FilterAndSkips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.tsx", "needle\n")
	writeFile(t, root, "node_modules/lib/index.js", "needle\n")
	writeFile(t, root, "web/node_modules/x.js", "needle\n")
	writeFile(t, root, ".git/config.go", "needle\n")
	writeFile(t, root, "README.md", "needle\n")
	writeFile(t, root, "bin.go", "needle\x00\x01")
	writeFile(t, root, "latin1.go", "needle \xff\xfe\n")

	results, err := NewScanner(DefaultFilter()).Scan(context.Background(), "needle", []string{root})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "src/app.tsx", results[0].File)
}

func TestScan_MultipleRoots(t *testing.T) {
	r1, r2 := t.TempDir(), t.TempDir()
	writeFile(t, r1, "z.go", "hit\n")
	writeFile(t, r2, "a.go", "hit\n")

	results, err := NewScanner(DefaultFilter()).Scan(context.Background(), "hit", []string{r1, r2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "z.go", results[0].File)
	assert.Equal(t, "a.go", results[1].File)
}

func TestScan_RescanReplaces(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "alpha\nbeta\n")
	s := NewScanner(DefaultFilter())

	first, err := s.Scan(context.Background(), "alpha", []string{root})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.Scan(context.Background(), "beta", []string{root})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "beta", second[0].Text)
	assert.Equal(t, "alpha", first[0].Text)
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "x\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(DefaultFilter()).Scan(ctx, "x", []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeText(t *testing.T) {
	got, err := DecodeText([]byte("\xef\xbb\xbfhello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	// UTF-16LE with BOM
	got, err = DecodeText([]byte{0xff, 0xfe, 'h', 0, 'i', 0})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = DecodeText([]byte{0x00, 0x01})
	assert.ErrorIs(t, err, ErrNotText)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb"))
	assert.Equal(t, []string{"a\r", "", "b"}, SplitLines("a\r\n\nb"))
}
