package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takaishi/fifpanel/protocol"
	"github.com/takaishi/fifpanel/search"
)

type recorder struct {
	msgs []protocol.HostMessage
}

func (r *recorder) Post(_ context.Context, m protocol.HostMessage) error {
	r.msgs = append(r.msgs, m)
	return nil
}

type jump struct {
	file string
	line int
}

type fakeNav struct {
	jumps []jump
	err   error
}

func (n *fakeNav) Open(file string, line, _ int) error {
	n.jumps = append(n.jumps, jump{file, line})
	return n.err
}

type failingEngine struct{}

func (failingEngine) Scan(context.Context, string, []string) ([]search.SearchResult, error) {
	return nil, errors.New("boom")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func workspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	var b strings.Builder
	for i := 1; i <= 40; i++ {
		if i == 20 {
			b.WriteString("const x = 5;\n")
			continue
		}
		fmt.Fprintf(&b, "// %d\n", i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte(b.String()), 0o644))
	return root
}

func newTestSession(root string) (*Session, *recorder, *fakeNav) {
	rec := &recorder{}
	nav := &fakeNav{}
	s := NewSession(Options{
		Root:      root,
		Engine:    search.NewScanner(search.DefaultFilter()),
		Navigator: nav,
		Poster:    rec,
		Logger:    quietLogger(),
	})
	return s, rec, nav
}

func TestSession_StartRejectsEmptyQuery(t *testing.T) {
	s, rec, _ := newTestSession(workspace(t))

	err := s.Start(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, rec.msgs)
}

func TestSession_StartPostsResults(t *testing.T) {
	s, rec, _ := newTestSession(workspace(t))

	require.NoError(t, s.Start(context.Background(), "const x"))
	require.Len(t, rec.msgs, 1)
	dr := rec.msgs[0].(protocol.DisplayResults)
	assert.Equal(t, "const x", dr.SearchTerm)
	assert.Equal(t, []search.SearchResult{{File: "a.ts", Line: 20, Column: 1, Text: "const x = 5;"}}, dr.Results)
}

func TestSession_NoResults(t *testing.T) {
	s, rec, _ := newTestSession(workspace(t))

	require.NoError(t, s.Handle(context.Background(), protocol.NewSearch{SearchTerm: "zzz_not_present"}))
	require.Len(t, rec.msgs, 2)
	dr := rec.msgs[0].(protocol.DisplayResults)
	assert.NotNil(t, dr.Results)
	assert.Empty(t, dr.Results)
	assert.Equal(t, protocol.NoResults{}, rec.msgs[1])
}

func TestSession_NewSearchReplaces(t *testing.T) {
	s, rec, _ := newTestSession(workspace(t))
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, protocol.NewSearch{SearchTerm: "// 1"}))
	require.NoError(t, s.Handle(ctx, protocol.NewSearch{SearchTerm: "const"}))

	last := rec.msgs[len(rec.msgs)-1].(protocol.DisplayResults)
	assert.Equal(t, "const", last.SearchTerm)
	require.Len(t, last.Results, 1)
	assert.Equal(t, 20, last.Results[0].Line)
}

func TestSession_EmptyNewSearchIgnored(t *testing.T) {
	s, rec, _ := newTestSession(workspace(t))

	require.NoError(t, s.Handle(context.Background(), protocol.NewSearch{}))
	assert.Empty(t, rec.msgs)
}

func TestSession_NoWorkspace(t *testing.T) {
	s, rec, _ := newTestSession("")

	require.NoError(t, s.Start(context.Background(), "x"))
	require.Len(t, rec.msgs, 2)
	assert.Empty(t, rec.msgs[0].(protocol.DisplayResults).Results)
}

func TestSession_EngineErrorDegrades(t *testing.T) {
	rec := &recorder{}
	s := NewSession(Options{Root: t.TempDir(), Engine: failingEngine{}, Poster: rec, Logger: quietLogger()})

	require.NoError(t, s.Start(context.Background(), "x"))
	require.Len(t, rec.msgs, 2)
	assert.Equal(t, protocol.NoResults{}, rec.msgs[1])
}

func TestSession_ShowCode(t *testing.T) {
	s, rec, _ := newTestSession(workspace(t))

	require.NoError(t, s.Handle(context.Background(), protocol.RequestCode{File: "a.ts", Line: 20, SearchTerm: "const x"}))
	require.Len(t, rec.msgs, 1)
	sc := rec.msgs[0].(protocol.ShowCode)
	assert.Equal(t, "typescript", sc.Lang)
	assert.Equal(t, "const x", sc.SearchTerm)
	assert.Equal(t, 5, sc.StartLine)
	assert.Equal(t, 20, sc.Line)
	assert.Equal(t, 16, sc.HitLine())
	assert.Len(t, strings.Split(sc.Code, "\n"), 31)
}

func TestSession_ShowCodeUnreadable(t *testing.T) {
	s, rec, _ := newTestSession(workspace(t))

	require.NoError(t, s.Handle(context.Background(), protocol.RequestCode{File: "missing.go", Line: 3}))
	sc := rec.msgs[0].(protocol.ShowCode)
	assert.Empty(t, sc.Code)
	assert.Equal(t, "go", sc.Lang)
	assert.Equal(t, 1, sc.StartLine)
	assert.Equal(t, 3, sc.Line)
}

func TestSession_OpenFile(t *testing.T) {
	root := workspace(t)
	s, rec, nav := newTestSession(root)
	nav.err = errors.New("editor missing")

	require.NoError(t, s.Handle(context.Background(), protocol.OpenFile{File: "a.ts", Line: 20}))
	assert.Equal(t, []jump{{filepath.Join(root, "a.ts"), 20}}, nav.jumps)
	assert.Empty(t, rec.msgs)
}

func TestSession_OpenFileOutsideRootRefused(t *testing.T) {
	s, rec, nav := newTestSession(workspace(t))

	require.NoError(t, s.Handle(context.Background(), protocol.OpenFile{File: "../secret.ts", Line: 1}))
	require.NoError(t, s.Handle(context.Background(), protocol.OpenFile{File: "/etc/passwd", Line: 1}))
	assert.Empty(t, nav.jumps)
	assert.Empty(t, rec.msgs)
}

// scopedWorkspace lays out a root with a match at the top and one in sub/
func scopedWorkspace(t *testing.T) (string, *Session, *recorder, *fakeNav) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.go"), []byte("var needle = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.ts"), []byte("const needle = 2;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.go"), []byte("var needle = 3\n"), 0o644))

	rec := &recorder{}
	nav := &fakeNav{}
	s := NewSession(Options{
		Root:      root,
		Dir:       filepath.Join(root, "sub"),
		Engine:    search.NewScanner(search.DefaultFilter()),
		Filter:    search.DefaultFilter(),
		NewEngine: func(f search.Filter) (search.Engine, error) { return search.NewScanner(f), nil },
		Navigator: nav,
		Poster:    rec,
		Logger:    quietLogger(),
	})
	return root, s, rec, nav
}

func files(results []search.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.File)
	}
	return out
}

func TestSession_Scopes(t *testing.T) {
	root, s, rec, nav := scopedWorkspace(t)
	ctx := context.Background()

	assert.True(t, s.HasProject())
	assert.Equal(t, protocol.ScopeProject, s.Scope())

	require.NoError(t, s.Start(ctx, "needle"))
	assert.Equal(t, []string{"sub/a.ts", "sub/b.go", "top.go"}, files(rec.msgs[0].(protocol.DisplayResults).Results))
	assert.Equal(t, root, s.Root())

	require.NoError(t, s.Handle(ctx, protocol.NewSearch{SearchTerm: "needle", Scope: protocol.ScopeDirectory}))
	assert.Equal(t, []string{"a.ts", "b.go"}, files(rec.msgs[1].(protocol.DisplayResults).Results))
	assert.Equal(t, filepath.Join(root, "sub"), s.Root())

	// previews and jumps follow the directory of the last search
	require.NoError(t, s.Handle(ctx, protocol.RequestCode{File: "a.ts", Line: 1, SearchTerm: "needle"}))
	assert.Equal(t, "const needle = 2;", rec.msgs[2].(protocol.ShowCode).Code)
	require.NoError(t, s.Handle(ctx, protocol.OpenFile{File: "a.ts", Line: 1}))
	assert.Equal(t, []jump{{filepath.Join(root, "sub", "a.ts"), 1}}, nav.jumps)
}

func TestSession_FileMask(t *testing.T) {
	_, s, rec, _ := scopedWorkspace(t)
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, protocol.NewSearch{SearchTerm: "needle", Mask: "**/*.go"}))
	assert.Equal(t, []string{"sub/b.go", "top.go"}, files(rec.msgs[0].(protocol.DisplayResults).Results))

	require.NoError(t, s.Handle(ctx, protocol.NewSearch{SearchTerm: "needle", Mask: "*.ts, *.go", Scope: protocol.ScopeDirectory}))
	assert.Equal(t, []string{"a.ts", "b.go"}, files(rec.msgs[1].(protocol.DisplayResults).Results))

	// an invalid mask degrades to no results
	require.NoError(t, s.Handle(ctx, protocol.NewSearch{SearchTerm: "needle", Mask: "[a"}))
	require.Len(t, rec.msgs, 4)
	assert.Empty(t, rec.msgs[2].(protocol.DisplayResults).Results)
	assert.Equal(t, protocol.NoResults{}, rec.msgs[3])
}

func TestSession_DirectoryOutsideRootFallsBack(t *testing.T) {
	root := workspace(t)
	s := NewSession(Options{Root: root, Dir: t.TempDir(), Engine: search.NewScanner(search.DefaultFilter()), Poster: &recorder{}, Logger: quietLogger()})

	assert.False(t, s.HasProject())
	assert.Equal(t, protocol.ScopeDirectory, s.Scope())
	results, err := s.SearchIn(context.Background(), protocol.NewSearch{SearchTerm: "const x", Scope: protocol.ScopeDirectory})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSession_Close(t *testing.T) {
	s, _, _ := newTestSession(workspace(t))

	require.NoError(t, s.Handle(context.Background(), protocol.Log{Message: "hello"}))
	require.NoError(t, s.Handle(context.Background(), protocol.Close{}))
	require.NoError(t, s.Handle(context.Background(), protocol.Close{}))

	select {
	case <-s.Done():
	default:
		t.Fatal("session not closed")
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "0 results found for 'zzz'", Summary(nil, "zzz"))
	assert.Equal(t, "1 result found for 'x' in 1 file", Summary([]search.SearchResult{{File: "a.ts", Line: 1}}, "x"))
	assert.Equal(t, "3 results found for 'x' in 2 files", Summary([]search.SearchResult{
		{File: "a.ts", Line: 1}, {File: "a.ts", Line: 2}, {File: "b.ts", Line: 1},
	}, "x"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Search Results: const x", Title(" const x "))
}
