package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/takaishi/fifpanel/highlight"
	"github.com/takaishi/fifpanel/panel"
	"github.com/takaishi/fifpanel/preview"
	"github.com/takaishi/fifpanel/protocol"
	"github.com/takaishi/fifpanel/search"
	"github.com/takaishi/fifpanel/viewstate"
)

var (
	// Header styles
	headerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	searchIconStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	queryInputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("236"))

	maskLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	scopeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Bold(true).
			Padding(0, 1)

	scopeInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 1)

	// Result styles
	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedResultStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("25"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Background(lipgloss.Color("236")).
			Bold(true)

	fileInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Align(lipgloss.Right).
			PaddingLeft(1)

	// Preview styles
	previewHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Bold(true)

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	lineNumberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(6).
			Align(lipgloss.Right)

	hitLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("25"))

	hitLineNumberStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("25")).
				Width(6).
				Align(lipgloss.Right)

	noResultsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// renderView renders the entire UI
func renderView(m *Model) string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	snap := m.machine.Snapshot()
	if snap.State == viewstate.Closed {
		return ""
	}

	const headerHeight = 4
	previewHeight := max(5, m.height-headerHeight-visibleResults-2)

	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m, snap),
		renderResults(m, snap),
		renderPreview(m, snap, previewHeight),
	)
}

// renderHeader renders the search bar with query, file mask, scope tabs
// and the status line
func renderHeader(m *Model, snap viewstate.Snapshot) string {
	icon := searchIconStyle.Render("🔍")

	queryValue := m.query
	if m.inputMode == InputModeQuery {
		queryValue += "█"
	}
	queryDisplay := queryInputStyle.Render(queryValue)

	maskValue := m.maskInput
	if maskValue == "" {
		maskValue = "*"
	}
	if m.inputMode == InputModeMask {
		maskValue += "█"
	}
	maskDisplay := maskLabelStyle.Render("File mask: " + maskValue)

	headerLine := lipgloss.JoinHorizontal(lipgloss.Left,
		icon+" ",
		queryDisplay,
		"  ",
		maskDisplay,
		"  ",
		renderScopeTabs(m),
	)

	statusLine := statusStyle.Render(renderStatus(m, snap))

	header := lipgloss.JoinVertical(lipgloss.Left, headerLine, statusLine)
	return headerStyle.Width(m.width - 2).Render(header)
}

// renderScopeTabs renders In Project / In Directory. The project tab only
// shows when the workspace has a project scope.
func renderScopeTabs(m *Model) string {
	projectTab := scopeInactiveStyle.Render("In Project")
	directoryTab := scopeStyle.Render("In Directory")
	if m.searchScope == protocol.ScopeProject {
		projectTab = scopeStyle.Render("In Project")
		directoryTab = scopeInactiveStyle.Render("In Directory")
	}
	if !m.hasProject {
		return directoryTab
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, projectTab, " ", directoryTab)
}

// renderStatus renders the match count line
func renderStatus(m *Model, snap viewstate.Snapshot) string {
	if m.isSearching {
		return "Searching..."
	}
	if m.query == "" {
		return "Enter a search query..."
	}
	if snap.NoResults {
		return panel.Summary(nil, snap.SearchTerm)
	}
	return panel.Summary(snap.Results, snap.SearchTerm)
}

// renderResults renders the visible part of the result list
func renderResults(m *Model, snap viewstate.Snapshot) string {
	if len(snap.Results) == 0 {
		return ""
	}

	availableWidth := m.width - 4
	start := m.resultsOffset
	end := min(start+visibleResults, len(snap.Results))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := formatResult(snap.Results[i], snap.SearchTerm, availableWidth)
		if i == snap.Selected {
			line = selectedResultStyle.Render(line)
		} else {
			line = resultStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// formatResult formats a result as: code snippet | file line
func formatResult(result search.SearchResult, term string, width int) string {
	fileInfo := fmt.Sprintf("%s %d", result.File, result.Line)

	fileInfoAreaWidth := max(25, min(40, width/3))
	codeWidth := width - fileInfoAreaWidth
	if codeWidth < 10 {
		codeWidth = 10
		fileInfoAreaWidth = max(0, width-codeWidth)
	}

	code := ansi.Truncate(markQuery(result.Text, term), codeWidth, "...")
	codeStyled := lipgloss.NewStyle().Width(codeWidth).Render(code)
	info := fileInfoStyle.Width(fileInfoAreaWidth).Render(ansi.Truncate(fileInfo, max(0, fileInfoAreaWidth-1), "…"))

	return lipgloss.NewStyle().Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, codeStyled, info))
}

// markQuery wraps every case-insensitive occurrence of term
func markQuery(text, term string) string {
	return highlight.Mark(text, term, func(s string) string {
		return highlightStyle.Render(s)
	})
}

// markQueryANSI marks term in syntax-coloured text
func markQueryANSI(text, term string) string {
	return highlight.MarkANSI(text, term, func(s string) string {
		return highlightStyle.Render(s)
	})
}

// renderPreview renders the code window of the selected match
func renderPreview(m *Model, snap viewstate.Snapshot, maxHeight int) string {
	if snap.NoResults {
		return previewStyle.Width(m.width - 2).Render(noResultsStyle.Render("No results found."))
	}
	if snap.Preview == nil {
		return ""
	}
	sc := snap.Preview

	header := "Code Viewer"
	if r, ok := snap.SelectedResult(); ok {
		header = r.File
	}
	lines := []string{previewHeaderStyle.Render(header)}
	if sc.Code == "" {
		lines = append(lines, statusStyle.Render("(file could not be read)"))
		return previewStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	availableWidth := m.width - 14
	body := previewLines(sc, availableWidth)

	// Scroll so the first marked line is visible
	visible := max(1, maxHeight-1)
	offset := 0
	if first := firstMarked(sc); first >= visible {
		offset = min(first-visible/2, len(body)-visible)
	}
	end := min(len(body), offset+visible)
	lines = append(lines, body[offset:end]...)

	return previewStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// previewLines renders each code line with its number, in syntax colours
// with the query marked on top
func previewLines(sc *protocol.ShowCode, width int) []string {
	raw := strings.Split(sc.Code, "\n")
	colored := strings.Split(preview.Colorize(sc.Code, sc.Lang), "\n")
	if len(colored) != len(raw) {
		colored = raw
	}
	hit := sc.HitLine()

	out := make([]string, 0, len(raw))
	for i := range raw {
		numStr := fmt.Sprintf("%4d", sc.StartLine+i)
		text := ansi.Truncate(markQueryANSI(strings.TrimRight(colored[i], "\r"), sc.SearchTerm), width, "...")

		if i+1 == hit {
			text = hitLineStyle.Render(text)
			numStr = hitLineNumberStyle.Render(numStr)
		} else {
			numStr = lineNumberStyle.Render(numStr)
		}
		out = append(out, fmt.Sprintf("%s | %s", numStr, text))
	}
	return out
}

// firstMarked returns the 0-based index of the first line holding the query,
// falling back to the hit line
func firstMarked(sc *protocol.ShowCode) int {
	for i, line := range strings.Split(sc.Code, "\n") {
		if highlight.Count(line, sc.SearchTerm) > 0 {
			return i
		}
	}
	return max(0, sc.HitLine()-1)
}
