package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/nexora/internal/admin"
	"github.com/felixgeelhaar/nexora/internal/latest"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

const maxColumnWidth = 40

// Browser lists an admin resource narrowed by a search term.
type Browser interface {
	Browse(ctx context.Context, resource, search string) (admin.Table, error)
}

type browserKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var browserKeys = browserKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "pgup"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "pgdown"),
		key.WithHelp("↓", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

// searchSettledMsg fires when the debounce period of input seq has passed.
type searchSettledMsg struct {
	seq uint64
}

// tableMsg carries a Browse result tagged with the request that produced it.
type tableMsg struct {
	ticket latest.Ticket
	search string
	table  admin.Table
	err    error
}

// BrowserModel is the admin resource browser: a search box over a table.
// Typing is debounced and only the newest search result is displayed.
type BrowserModel struct {
	ctx      context.Context
	source   Browser
	resource string

	tracker  *latest.Tracker
	debounce *latest.Debouncer

	search  textinput.Model
	table   table.Model
	spinner spinner.Model
	styles  ux.Styles

	loading  bool
	shown    string
	count    int
	err      error
	height   int
	quitting bool
}

// NewBrowserModel creates a browser for resource. debounce is the quiet
// period after the last keystroke before searching.
func NewBrowserModel(ctx context.Context, source Browser, resource string, debounce time.Duration, m *metrics.Metrics) *BrowserModel {
	search := textinput.New()
	search.Placeholder = "Search " + resource + "..."
	search.Prompt = "🔍 "
	search.Focus()

	t := table.New(table.WithFocused(true), table.WithHeight(15))
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("241")).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("63"))
	t.SetStyles(st)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &BrowserModel{
		ctx:      ctx,
		source:   source,
		resource: resource,
		tracker:  latest.NewTracker("admin_"+resource, m),
		debounce: latest.NewDebouncer(debounce),
		search:   search,
		table:    t,
		spinner:  sp,
		styles:   ux.DefaultStyles(),
	}
}

// Init loads the unfiltered listing
func (m *BrowserModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(""), textinput.Blink)
}

// fetch starts a search, superseding any search still in flight.
func (m *BrowserModel) fetch(search string) tea.Cmd {
	ctx, ticket := m.tracker.Begin(m.ctx)
	m.loading = true
	source, resource := m.source, m.resource
	return tea.Batch(func() tea.Msg {
		t, err := source.Browse(ctx, resource, search)
		return tableMsg{ticket: ticket, search: search, table: t, err: err}
	}, m.spinner.Tick)
}

// Update handles messages and updates the model
func (m *BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-8, 5))
		m.search.Width = max(msg.Width-6, 20)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case searchSettledMsg:
		if !m.debounce.Settled(msg.seq) {
			return m, nil
		}
		return m, m.fetch(m.search.Value())

	case tableMsg:
		if !m.tracker.Accept(msg.ticket) {
			return m, nil
		}
		m.tracker.Done(msg.ticket)
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.setTable(msg.table)
			m.shown = msg.search
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, browserKeys.Quit):
			m.quitting = true
			m.debounce.Stop()
			m.tracker.Cancel()
			return m, tea.Quit
		case key.Matches(msg, browserKeys.Up, browserKeys.Down):
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() == before {
			return m, cmd
		}
		seq := m.debounce.Next()
		settle := tea.Tick(m.debounce.Delay(), func(time.Time) tea.Msg {
			return searchSettledMsg{seq: seq}
		})
		return m, tea.Batch(cmd, settle)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *BrowserModel) setTable(t admin.Table) {
	rows := make([]table.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, table.Row(r))
	}
	m.table.SetRows(nil)
	m.table.SetColumns(columnsFor(t))
	m.table.SetRows(rows)
	m.table.GotoTop()
	m.count = t.Count
}

// columnsFor sizes each column to its widest cell, capped at maxColumnWidth.
func columnsFor(t admin.Table) []table.Column {
	cols := make([]table.Column, len(t.Columns))
	for i, title := range t.Columns {
		width := lipgloss.Width(title)
		for _, row := range t.Rows {
			if i < len(row) {
				width = max(width, lipgloss.Width(row[i]))
			}
		}
		cols[i] = table.Column{Title: title, Width: min(width, maxColumnWidth)}
	}
	return cols
}

// View renders the UI
func (m *BrowserModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Admin · " + m.resource))
	b.WriteString("\n\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Error: ") + m.err.Error())
	case m.loading:
		b.WriteString(m.spinner.View() + " Searching...")
	case m.shown != "":
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d results for %q", m.count, m.shown)))
	default:
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d results", m.count)))
	}
	b.WriteString("\n\n")

	if len(m.table.Rows()) == 0 && !m.loading && m.err == nil {
		b.WriteString(m.styles.Muted.Render("No results."))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("type to search • ↑/↓ move • esc quit"))
	b.WriteString("\n")
	return b.String()
}

// RunBrowser runs the admin browser until the user quits.
func RunBrowser(ctx context.Context, source Browser, resource string, debounce time.Duration, m *metrics.Metrics) error {
	p := tea.NewProgram(NewBrowserModel(ctx, source, resource, debounce, m), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
