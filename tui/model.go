package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/takaishi/fifpanel/panel"
	"github.com/takaishi/fifpanel/protocol"
	"github.com/takaishi/fifpanel/viewstate"
)

const (
	debounceDuration = 250 * time.Millisecond
	visibleResults   = 5
	// header box: border, input line, status line, border
	resultsTop = 4
)

// InputMode is the header field receiving keystrokes
type InputMode int

const (
	InputModeQuery InputMode = iota
	InputModeMask
)

// Model is the terminal view. All view state lives in the state machine;
// the model only adds what is specific to a terminal: the query and file
// mask being typed, the search scope, scrolling and click timing.
type Model struct {
	machine *viewstate.Machine

	query       string
	maskInput   string
	inputMode   InputMode
	searchScope protocol.Scope
	hasProject  bool

	submitted     protocol.NewSearch
	isSearching   bool
	resultsOffset int

	lastClick struct {
		index int
		at    time.Time
	}
	now func() time.Time

	width  int
	height int
}

// hostMsg wraps a message posted by the host session
type hostMsg struct {
	msg protocol.HostMessage
}

// redrawMsg is sent when the machine changed outside the event loop
type redrawMsg struct{}

// submitMsg is sent after the typing debounce
type submitMsg struct {
	req protocol.NewSearch
}

// New creates a Model searching the directory scope. The initial query is
// assumed to be already submitted by the host.
func New(query string, send viewstate.Sender, opts ...viewstate.Option) *Model {
	m := &Model{
		machine:     viewstate.New(send, opts...),
		query:       query,
		searchScope: protocol.ScopeDirectory,
		isSearching: query != "",
		now:         time.Now,
	}
	m.submitted = m.request()
	m.lastClick.index = -1
	return m
}

// SetScope sets the scope of the initial search. The project scope can
// only be selected when hasProject is set.
func (m *Model) SetScope(scope protocol.Scope, hasProject bool) {
	m.hasProject = hasProject
	if scope == protocol.ScopeProject && !hasProject {
		scope = protocol.ScopeDirectory
	}
	m.searchScope = scope
	m.submitted.Scope = scope
}

// request is the search the header currently describes
func (m *Model) request() protocol.NewSearch {
	return protocol.NewSearch{SearchTerm: m.query, Mask: m.maskInput, Scope: m.searchScope}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case hostMsg:
		if _, ok := msg.msg.(protocol.DisplayResults); ok {
			m.isSearching = false
			m.resultsOffset = 0
		}
		m.machine.Receive(msg.msg)
		return m, nil

	case submitMsg:
		// Only submit if the header hasn't changed since the tick was scheduled
		if msg.req != m.request() || msg.req == m.submitted {
			return m, nil
		}
		if m.machine.SubmitSearch(msg.req) {
			m.submitted = msg.req
			m.isSearching = true
		}
		return m, nil

	default:
		return m, nil
	}
}

// View renders the UI
func (m *Model) View() string {
	return renderView(m)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.machine.Snapshot()

	if scope, ok := scopeKey(msg); ok {
		return m, m.switchScope(scope)
	}

	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.machine.Escape()
		return m, tea.Quit

	case tea.KeyUp:
		if snap.Selected > 0 {
			m.machine.Select(snap.Selected - 1)
			m.adjustScroll(snap.Selected-1, len(snap.Results))
		}
		return m, nil

	case tea.KeyDown:
		if snap.Selected < len(snap.Results)-1 {
			m.machine.Select(snap.Selected + 1)
			m.adjustScroll(snap.Selected+1, len(snap.Results))
		}
		return m, nil

	case tea.KeyEnter:
		m.machine.Open(snap.Selected)
		return m, nil

	case tea.KeyTab:
		if m.inputMode == InputModeQuery {
			m.inputMode = InputModeMask
		} else {
			m.inputMode = InputModeQuery
		}
		return m, nil

	case tea.KeyBackspace:
		field := m.field()
		if len(*field) > 0 {
			r := []rune(*field)
			*field = string(r[:len(r)-1])
		}
		return m, m.triggerSearch()

	case tea.KeySpace:
		*m.field() += " "
		return m, m.triggerSearch()

	case tea.KeyRunes:
		if msg.Alt {
			return m, nil
		}
		*m.field() += string(msg.Runes)
		return m, m.triggerSearch()
	}

	return m, nil
}

// field returns the header input receiving keystrokes
func (m *Model) field() *string {
	if m.inputMode == InputModeMask {
		return &m.maskInput
	}
	return &m.query
}

// scopeKey recognises Alt+P and Alt+D. macOS terminals send Option+P as
// π (U+03C0) and Option+D as ∂ (U+2202) without the Alt flag.
func scopeKey(msg tea.KeyMsg) (protocol.Scope, bool) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return "", false
	}
	switch r := msg.Runes[0]; {
	case r == 'π', msg.Alt && (r == 'p' || r == 'P'):
		return protocol.ScopeProject, true
	case r == '∂', msg.Alt && (r == 'd' || r == 'D'):
		return protocol.ScopeDirectory, true
	}
	return "", false
}

// switchScope searches again in scope. The project scope is ignored when
// the workspace has none.
func (m *Model) switchScope(scope protocol.Scope) tea.Cmd {
	if scope == m.searchScope || (scope == protocol.ScopeProject && !m.hasProject) {
		return nil
	}
	m.searchScope = scope
	return m.triggerSearch()
}

// handleMouse turns presses on the result list into clicks and double clicks
func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	row := msg.Y - resultsTop
	if row < 0 || row >= visibleResults {
		return m, nil
	}
	index := m.resultsOffset + row
	if index >= len(m.machine.Snapshot().Results) {
		return m, nil
	}

	now := m.now()
	if index == m.lastClick.index && now.Sub(m.lastClick.at) <= viewstate.ClickDelay {
		m.machine.DoubleClick(index)
		m.lastClick.index = -1
		return m, nil
	}
	m.machine.Click(index)
	m.lastClick.index = index
	m.lastClick.at = now
	return m, nil
}

// triggerSearch schedules a submission of the current header after
// debounce. Empty queries are never submitted.
func (m *Model) triggerSearch() tea.Cmd {
	if m.query == "" {
		return nil
	}
	req := m.request()
	return tea.Tick(debounceDuration, func(time.Time) tea.Msg {
		return submitMsg{req: req}
	})
}

// adjustScroll keeps the selected item inside the visible window
func (m *Model) adjustScroll(selected, total int) {
	if total <= visibleResults {
		m.resultsOffset = 0
		return
	}
	if selected < m.resultsOffset {
		m.resultsOffset = selected
	}
	if selected >= m.resultsOffset+visibleResults {
		m.resultsOffset = selected - visibleResults + 1
	}
	m.resultsOffset = max(0, min(m.resultsOffset, total-visibleResults))
}

// Run opens a terminal panel for query and serves it until the user closes
// it. The host session runs on its own goroutine and handles view messages
// in order.
func Run(ctx context.Context, opts panel.Options, query string) error {
	if query == "" {
		return panel.ErrEmptyQuery
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	toHost := make(chan protocol.ViewMessage, 64)
	var p *tea.Program

	opts.Poster = panel.PosterFunc(func(_ context.Context, msg protocol.HostMessage) error {
		p.Send(hostMsg{msg: msg})
		return nil
	})
	session := panel.NewSession(opts)

	model := New(query, func(msg protocol.ViewMessage) { toHost <- msg },
		viewstate.WithOnChange(func(viewstate.Snapshot) {
			// may run inside Update, where a blocking Send would deadlock
			go p.Send(redrawMsg{})
		}),
	)
	model.SetScope(session.Scope(), session.HasProject())
	p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	go func() {
		if err := session.Start(ctx, query); err != nil {
			opts.Logger.Error("initial search", "query", query, "error", err)
			p.Quit()
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-session.Done():
				p.Quit()
				return
			case msg := <-toHost:
				if err := session.Handle(ctx, msg); err != nil && ctx.Err() == nil {
					opts.Logger.Error("handle view message", "command", msg.ViewCommand(), "error", err)
				}
			}
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
