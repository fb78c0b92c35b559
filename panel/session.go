// Package panel implements the host side of a search panel: it answers the
// messages of one view by scanning the workspace, loading previews and
// dispatching editor jumps.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/takaishi/fifpanel/editor"
	"github.com/takaishi/fifpanel/preview"
	"github.com/takaishi/fifpanel/protocol"
	"github.com/takaishi/fifpanel/search"
)

// ErrEmptyQuery is reported when a search is requested without a term
var ErrEmptyQuery = errors.New("search term cannot be empty")

// Poster delivers host messages to the view
type Poster interface {
	Post(ctx context.Context, m protocol.HostMessage) error
}

// PosterFunc adapts a function to Poster
type PosterFunc func(ctx context.Context, m protocol.HostMessage) error

// Post implements Poster
func (f PosterFunc) Post(ctx context.Context, m protocol.HostMessage) error {
	return f(ctx, m)
}

// Options configures a Session
type Options struct {
	Root      string // workspace root; empty means no workspace is open
	Dir       string // directory scope; empty or outside Root means Root
	Engine    search.Engine
	Navigator editor.Navigator
	Poster    Poster
	Logger    *slog.Logger

	// Filter and NewEngine rebuild the engine when a search carries a file
	// mask. Without NewEngine masks are ignored.
	Filter    search.Filter
	NewEngine func(search.Filter) (search.Engine, error)
}

// Session is one opened panel. Messages are handled one at a time in the
// order the caller delivers them.
type Session struct {
	root      string
	dir       string
	active    string // root of the last search; previews and jumps resolve against it
	isGit     bool
	engine    search.Engine
	filter    search.Filter
	newEngine func(search.Filter) (search.Engine, error)
	nav       editor.Navigator
	post      Poster
	logger    *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a Session
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nav := opts.Navigator
	if nav == nil {
		nav = editor.New("")
	}
	dir := opts.Dir
	if dir == "" || opts.Root == "" {
		dir = opts.Root
	} else if _, err := search.Resolve(opts.Root, dir); err != nil {
		dir = opts.Root
	}
	_, isGit := search.FindGitRoot(opts.Root)
	return &Session{
		root:      opts.Root,
		dir:       dir,
		active:    opts.Root,
		isGit:     opts.Root != "" && isGit,
		engine:    opts.Engine,
		filter:    opts.Filter,
		newEngine: opts.NewEngine,
		nav:       nav,
		post:      opts.Poster,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Root returns the directory the last search ran in
func (s *Session) Root() string {
	return s.active
}

// HasProject reports whether the project scope differs from the directory
// scope: the root is a git repository or the panel was opened below it.
func (s *Session) HasProject() bool {
	return s.root != "" && (s.isGit || s.dir != s.root)
}

// Scope is the scope the initial search runs in
func (s *Session) Scope() protocol.Scope {
	if s.HasProject() {
		return protocol.ScopeProject
	}
	return protocol.ScopeDirectory
}

// Done is closed once the view asked to close
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start runs the initial search. An empty query is rejected before any scan.
func (s *Session) Start(ctx context.Context, query string) error {
	if query == "" {
		return ErrEmptyQuery
	}
	return s.search(ctx, protocol.NewSearch{SearchTerm: query})
}

// Handle dispatches one view message. Failures are logged and degrade to
// empty results; only delivery errors from the Poster are returned.
func (s *Session) Handle(ctx context.Context, msg protocol.ViewMessage) error {
	switch m := msg.(type) {
	case protocol.NewSearch:
		if m.SearchTerm == "" {
			s.logger.Warn("ignoring empty search")
			return nil
		}
		return s.search(ctx, m)

	case protocol.RequestCode:
		return s.showCode(ctx, m)

	case protocol.OpenFile:
		s.openFile(m)
		return nil

	case protocol.Close:
		s.closeOnce.Do(func() { close(s.done) })
		return nil

	case protocol.Log:
		s.logger.Info(m.Message, "source", "view")
		return nil

	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownCommand, msg)
	}
}

// Search scans the workspace for query. No root means no results.
func (s *Session) Search(ctx context.Context, query string) ([]search.SearchResult, error) {
	return s.SearchIn(ctx, protocol.NewSearch{SearchTerm: query})
}

// SearchIn scans the scope of req, narrowed to its file mask when it has
// one. Later previews and jumps resolve against the scanned directory.
func (s *Session) SearchIn(ctx context.Context, req protocol.NewSearch) ([]search.SearchResult, error) {
	root := s.scopeRoot(req.Scope)
	s.active = root
	if root == "" || s.engine == nil {
		return []search.SearchResult{}, nil
	}
	engine, err := s.engineFor(req.Mask)
	if err != nil {
		return nil, err
	}
	return engine.Scan(ctx, req.SearchTerm, []string{root})
}

// Preview loads the window around line in file
func (s *Session) Preview(file string, line int) *preview.Preview {
	return preview.Load(s.active, file, line)
}

func (s *Session) scopeRoot(scope protocol.Scope) string {
	if scope == protocol.ScopeDirectory {
		return s.dir
	}
	return s.root
}

// engineFor returns the configured engine, or one whose includes are
// replaced by the comma-separated globs of mask
func (s *Session) engineFor(mask string) (search.Engine, error) {
	include := search.SplitPatterns(mask)
	if len(include) == 0 || s.newEngine == nil {
		return s.engine, nil
	}
	filter := search.Filter{Include: include, Exclude: s.filter.Exclude}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("file mask: %w", err)
	}
	return s.newEngine(filter)
}

func (s *Session) search(ctx context.Context, req protocol.NewSearch) error {
	query := req.SearchTerm
	results, err := s.SearchIn(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("search failed", "query", query, "mask", req.Mask, "error", err)
		results = []search.SearchResult{}
	}
	s.logger.Debug("search", "query", query, "scope", req.Scope, "mask", req.Mask, "count", len(results))

	if err := s.post.Post(ctx, protocol.DisplayResults{Results: results, SearchTerm: query}); err != nil {
		return err
	}
	if len(results) == 0 {
		return s.post.Post(ctx, protocol.NoResults{})
	}
	return nil
}

func (s *Session) showCode(ctx context.Context, m protocol.RequestCode) error {
	p := s.Preview(m.File, m.Line)
	if p.Code == "" {
		s.logger.Warn("empty preview", "file", m.File, "line", m.Line)
	}
	return s.post.Post(ctx, protocol.ShowCode{
		Code:       p.Code,
		Lang:       p.Language,
		SearchTerm: m.SearchTerm,
		StartLine:  p.StartLine,
		Line:       p.TargetLine,
	})
}

// openFile jumps without checking that the line still holds the match
func (s *Session) openFile(m protocol.OpenFile) {
	if s.active == "" {
		return
	}
	path, err := search.Resolve(s.active, m.File)
	if err != nil {
		s.logger.Warn("refusing to open file", "file", m.File, "error", err)
		return
	}
	if err := s.nav.Open(path, m.Line, 1); err != nil {
		s.logger.Error("open file failed", "file", m.File, "line", m.Line, "error", err)
	}
}

// Title is the panel heading for a query
func Title(query string) string {
	return "Search Results: " + strings.TrimSpace(query)
}

// Summary describes a result set the way the panels show it
func Summary(results []search.SearchResult, term string) string {
	if len(results) == 0 {
		return fmt.Sprintf("0 results found for '%s'", term)
	}
	files := make(map[string]struct{})
	for _, r := range results {
		files[r.File] = struct{}{}
	}
	noun := "results"
	if len(results) == 1 {
		noun = "result"
	}
	fileNoun := "files"
	if len(files) == 1 {
		fileNoun = "file"
	}
	return fmt.Sprintf("%d %s found for '%s' in %d %s", len(results), noun, term, len(files), fileNoun)
}
