package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nexora/internal/admin"
	"github.com/felixgeelhaar/nexora/internal/metrics"
)

type stubBrowser struct {
	mu       sync.Mutex
	searches []string
	fail     error
}

func (s *stubBrowser) Browse(ctx context.Context, resource, search string) (admin.Table, error) {
	s.mu.Lock()
	s.searches = append(s.searches, search)
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return admin.Table{}, fail
	}

	all := admin.Table{
		Columns: []string{"ID", "USERNAME", "EMAIL"},
		Rows: [][]string{
			{"1", "ana", "ana@example.com"},
			{"2", "root", "root@example.com"},
		},
	}
	if search == "" {
		all.Count = len(all.Rows)
		return all, nil
	}
	return all.Filter(search), nil
}

// deliver runs cmd and feeds every resulting message back into the model.
func deliver(m *BrowserModel, cmd tea.Cmd) tea.Cmd {
	var next []tea.Cmd
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case tableMsg, searchSettledMsg:
			_, c := m.Update(msg)
			next = append(next, c)
		}
	}
	return tea.Batch(next...)
}

func newBrowser(t *testing.T, source Browser) (*BrowserModel, *metrics.Metrics) {
	t.Helper()
	_, reg := metrics.NewRegistry()
	m := NewBrowserModel(context.Background(), source, admin.ResourceUsers, time.Millisecond, reg)
	deliver(m, m.Init())
	return m, reg
}

func TestBrowserInitialListing(t *testing.T) {
	source := &stubBrowser{}
	m, _ := newBrowser(t, source)

	assert.Equal(t, []string{""}, source.searches)
	assert.False(t, m.loading)
	assert.Len(t, m.table.Rows(), 2)

	view := m.View()
	assert.Contains(t, view, "Admin · users")
	assert.Contains(t, view, "2 results")
	assert.Contains(t, view, "root@example.com")
}

func TestBrowserDebouncedSearch(t *testing.T) {
	source := &stubBrowser{}
	m, _ := newBrowser(t, source)

	_, first := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	_, second := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("na")})

	// The first keystroke settles after newer input arrived, so it is dropped.
	assert.Nil(t, collectCmd(deliver(m, first)))
	require.Equal(t, []string{""}, source.searches)

	deliver(m, deliver(m, second))
	assert.Equal(t, []string{"", "ana"}, source.searches)
	assert.Len(t, m.table.Rows(), 1)
	assert.Contains(t, m.View(), `1 results for "ana"`)
}

func TestBrowserDropsSupersededResults(t *testing.T) {
	source := &stubBrowser{}
	m, reg := newBrowser(t, source)

	m.search.SetValue("ana")
	slow := m.fetch("ana")
	m.search.SetValue("root")
	fast := m.fetch("root")

	deliver(m, fast)
	deliver(m, slow)

	require.Len(t, m.table.Rows(), 1)
	assert.Equal(t, "root", m.table.Rows()[0][1])
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.StaleResponses.WithLabelValues("admin_users")))
}

func TestBrowserShowsErrors(t *testing.T) {
	source := &stubBrowser{fail: errors.New("You do not have permission to perform this action.")}
	m, _ := newBrowser(t, source)

	assert.Contains(t, m.View(), "Error: You do not have permission")
}

func TestBrowserNavigationDoesNotSearch(t *testing.T) {
	source := &stubBrowser{}
	m, _ := newBrowser(t, source)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	deliver(m, cmd)
	assert.Equal(t, 1, m.table.Cursor())
	assert.Equal(t, []string{""}, source.searches)

	msgs := collect(func() tea.Cmd { _, c := m.Update(tea.KeyMsg{Type: tea.KeyEsc}); return c }())
	assert.Equal(t, []tea.Msg{tea.QuitMsg{}}, msgs)
	assert.True(t, m.quitting)
}

func TestColumnsFor(t *testing.T) {
	long := strings.Repeat("x", 90)
	cols := columnsFor(admin.Table{
		Columns: []string{"ID", "TEXT"},
		Rows:    [][]string{{"12345", long}},
	})

	require.Len(t, cols, 2)
	assert.Equal(t, 5, cols[0].Width)
	assert.Equal(t, maxColumnWidth, cols[1].Width)
}

// collectCmd turns an empty batch into nil.
func collectCmd(cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	for _, msg := range collect(cmd) {
		if msg != nil {
			out = append(out, msg)
		}
	}
	return out
}
