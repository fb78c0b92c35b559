// Package viewstate is the presentation state machine shared by views.
//
// A Machine reacts to host messages and user gestures, keeping an immutable
// Snapshot that is replaced as a whole on every transition, and emits view
// messages for the host. Outbound messages are sent after the internal lock
// is released so a Sender may block.
package viewstate

import (
	"sync"
	"time"

	"github.com/takaishi/fifpanel/protocol"
	"github.com/takaishi/fifpanel/search"
)

// ClickDelay is how long a single click waits for a competing double click
const ClickDelay = 300 * time.Millisecond

// State of the view
type State int

const (
	Idle State = iota
	ResultsShown
	PreviewShown
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResultsShown:
		return "results"
	case PreviewShown:
		return "preview"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Snapshot is the complete view state at one point in time. Results is
// shared between snapshots and must not be modified.
type Snapshot struct {
	State      State
	Generation int // bumped on every new result set
	SearchTerm string
	Results    []search.SearchResult
	Selected   int // -1 when nothing is selected
	Preview    *protocol.ShowCode
	NoResults  bool
}

// SelectedResult returns the selected match, if any
func (s Snapshot) SelectedResult() (search.SearchResult, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Results) {
		return search.SearchResult{}, false
	}
	return s.Results[s.Selected], true
}

// Sender delivers a view message to the host
type Sender func(protocol.ViewMessage)

// Task is a scheduled callback that can be cancelled
type Task interface {
	Stop() bool
}

// Scheduler runs f after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// Option configures a Machine
type Option func(*Machine)

// WithScheduler replaces the timer source, mainly for tests
func WithScheduler(s Scheduler) Option {
	return func(m *Machine) { m.sched = s }
}

// WithOnChange registers a callback invoked after every transition
func WithOnChange(f func(Snapshot)) Option {
	return func(m *Machine) { m.onChange = f }
}

// Machine holds the view state
type Machine struct {
	mu       sync.Mutex
	snap     Snapshot
	pending  *click
	send     Sender
	sched    Scheduler
	onChange func(Snapshot)
}

// New creates a Machine in the Idle state
func New(send Sender, opts ...Option) *Machine {
	m := &Machine{
		snap:  Snapshot{State: Idle, Selected: -1},
		send:  send,
		sched: realScheduler{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// transition applies f to a copy of the current snapshot under the lock,
// then sends whatever f returned once the lock is released
func (m *Machine) transition(f func(next *Snapshot) []protocol.ViewMessage) {
	m.mu.Lock()
	if m.snap.State == Closed {
		m.mu.Unlock()
		return
	}
	next := m.snap
	out := f(&next)
	m.snap = next
	m.mu.Unlock()

	for _, msg := range out {
		m.send(msg)
	}
	if m.onChange != nil {
		m.onChange(next)
	}
}

// click is a single click waiting out ClickDelay
type click struct {
	task Task
}

func (m *Machine) cancelPendingLocked() {
	if m.pending != nil {
		m.pending.task.Stop()
		m.pending = nil
	}
}

// Receive applies a message from the host
func (m *Machine) Receive(msg protocol.HostMessage) {
	m.transition(func(next *Snapshot) []protocol.ViewMessage {
		switch msg := msg.(type) {
		case protocol.DisplayResults:
			m.cancelPendingLocked()
			*next = Snapshot{
				State:      ResultsShown,
				Generation: next.Generation + 1,
				SearchTerm: msg.SearchTerm,
				Results:    msg.Results,
				Selected:   -1,
				NoResults:  len(msg.Results) == 0,
			}
			if len(msg.Results) == 0 {
				return nil
			}
			next.Selected = 0
			return []protocol.ViewMessage{requestFor(msg.Results[0], msg.SearchTerm)}

		case protocol.ShowCode:
			sc := msg
			next.State = PreviewShown
			next.Preview = &sc

		case protocol.NoResults:
			next.State = ResultsShown
			next.Preview = nil
			next.NoResults = true
		}
		return nil
	})
}

// Submit sends a new query. Empty terms are dropped and report false.
// The current results stay visible until the host answers.
func (m *Machine) Submit(term string) bool {
	return m.SubmitSearch(protocol.NewSearch{SearchTerm: term})
}

// SubmitSearch is Submit with a file mask and a scope
func (m *Machine) SubmitSearch(req protocol.NewSearch) bool {
	if req.SearchTerm == "" {
		return false
	}
	m.transition(func(*Snapshot) []protocol.ViewMessage {
		m.cancelPendingLocked()
		return []protocol.ViewMessage{req}
	})
	return true
}

// Click schedules selection of result i after ClickDelay. A later Click
// or DoubleClick replaces the pending selection.
func (m *Machine) Click(i int) {
	m.transition(func(next *Snapshot) []protocol.ViewMessage {
		if i < 0 || i >= len(next.Results) {
			return nil
		}
		m.cancelPendingLocked()
		c := &click{}
		gen := next.Generation
		c.task = m.sched.AfterFunc(ClickDelay, func() {
			m.commit(c, gen, i)
		})
		m.pending = c
		return nil
	})
}

// commit runs when a click survived the debounce window
func (m *Machine) commit(c *click, gen, i int) {
	m.transition(func(next *Snapshot) []protocol.ViewMessage {
		if m.pending != c {
			return nil
		}
		m.pending = nil
		if next.Generation != gen {
			return nil
		}
		return m.selectLocked(next, i)
	})
}

// Select moves the selection to result i immediately
func (m *Machine) Select(i int) {
	m.transition(func(next *Snapshot) []protocol.ViewMessage {
		m.cancelPendingLocked()
		return m.selectLocked(next, i)
	})
}

func (m *Machine) selectLocked(next *Snapshot, i int) []protocol.ViewMessage {
	if i < 0 || i >= len(next.Results) {
		return nil
	}
	next.Selected = i
	return []protocol.ViewMessage{requestFor(next.Results[i], next.SearchTerm)}
}

// DoubleClick cancels any pending click and jumps to result i.
// The local state is left unchanged.
func (m *Machine) DoubleClick(i int) {
	m.transition(func(next *Snapshot) []protocol.ViewMessage {
		m.cancelPendingLocked()
		return openFor(next, i)
	})
}

// Open jumps to result i without touching a pending click
func (m *Machine) Open(i int) {
	m.transition(func(next *Snapshot) []protocol.ViewMessage {
		return openFor(next, i)
	})
}

func openFor(s *Snapshot, i int) []protocol.ViewMessage {
	if i < 0 || i >= len(s.Results) {
		return nil
	}
	r := s.Results[i]
	return []protocol.ViewMessage{protocol.OpenFile{File: r.File, Line: r.Line}}
}

// Escape closes the view. Every later event is ignored.
func (m *Machine) Escape() {
	m.transition(func(next *Snapshot) []protocol.ViewMessage {
		m.cancelPendingLocked()
		next.State = Closed
		return []protocol.ViewMessage{protocol.Close{}}
	})
}

// Log forwards a diagnostic line to the host
func (m *Machine) Log(message string) {
	m.transition(func(*Snapshot) []protocol.ViewMessage {
		return []protocol.ViewMessage{protocol.Log{Message: message}}
	})
}

func requestFor(r search.SearchResult, term string) protocol.RequestCode {
	return protocol.RequestCode{File: r.File, Line: r.Line, SearchTerm: term}
}
