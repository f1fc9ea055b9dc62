package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/nexora/internal/flow"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

// flowKeyMap defines the keyboard shortcuts of the question flow
type flowKeyMap struct {
	Submit  key.Binding
	Newline key.Binding
	Save    key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

func (k flowKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Newline, k.Save, k.Quit}
}

func (k flowKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Dismiss}}
}

var flowKeys = flowKeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Newline: key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("alt+enter", "new line"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save & exit"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "dismiss error"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// flowResultMsg carries the outcome of a controller call made in a command.
type flowResultMsg struct {
	snap flow.Snapshot
	err  error
}

// FlowModel is the bubbletea model answering a project's questions.
type FlowModel struct {
	ctx  context.Context
	ctrl *flow.Controller

	snap   flow.Snapshot
	notice string
	cancel context.CancelFunc

	input   textarea.Model
	spinner spinner.Model
	help    help.Model
	styles  ux.Styles

	width    int
	quitting bool
}

// NewFlowModel creates the question flow model. ctx bounds every request
// the model issues.
func NewFlowModel(ctx context.Context, ctrl *flow.Controller) *FlowModel {
	input := textarea.New()
	input.Placeholder = "Type your answer..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(5)
	input.KeyMap.InsertNewline = flowKeys.Newline
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &FlowModel{
		ctx:     ctx,
		ctrl:    ctrl,
		snap:    ctrl.Snapshot(),
		input:   input,
		spinner: sp,
		help:    help.New(),
		styles:  ux.DefaultStyles(),
	}
}

// Snapshot returns the last state the model observed.
func (m *FlowModel) Snapshot() flow.Snapshot {
	return m.snap
}

// Init starts loading the first question
func (m *FlowModel) Init() tea.Cmd {
	return tea.Batch(m.start(), m.spinner.Tick, textarea.Blink)
}

func (m *FlowModel) start() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		snap, err := ctrl.Start(ctx)
		return flowResultMsg{snap: snap, err: err}
	}
}

func (m *FlowModel) submit(text string, exit bool) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	ctrl := m.ctrl
	return func() tea.Msg {
		defer cancel()
		var (
			snap flow.Snapshot
			err  error
		)
		if exit {
			snap, err = ctrl.SaveAndExit(ctx, text)
		} else {
			snap, err = ctrl.Submit(ctx, text)
		}
		return flowResultMsg{snap: snap, err: err}
	}
}

// Update handles messages and updates the model
func (m *FlowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case flowResultMsg:
		return m.handleResult(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *FlowModel) handleResult(msg flowResultMsg) (tea.Model, tea.Cmd) {
	m.cancel = nil
	previous := m.snap.Question
	m.snap = msg.snap

	if msg.err != nil && m.snap.State != flow.Failed {
		m.notice = flow.Message(msg.err)
		m.input.Focus()
		return m, nil
	}
	m.notice = ""

	if m.snap.State == flow.Failed && m.snap.Question != nil {
		m.input.Focus()
		return m, nil
	}
	if m.snap.State == flow.AwaitingAnswer && m.snap.Question != previous {
		m.input.SetValue(m.snap.Draft)
		m.input.Focus()
	}
	return m, nil
}

func (m *FlowModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, flowKeys.Quit) {
		// Leaving mid-submission cancels the request and drops its result.
		if m.cancel != nil {
			m.cancel()
		}
		m.quitting = true
		return m, tea.Quit
	}

	if m.snap.State.Terminal() {
		return m, tea.Quit
	}

	switch m.snap.State {
	case flow.Failed:
		if m.snap.Question == nil {
			if key.Matches(msg, flowKeys.Submit, flowKeys.Dismiss) {
				m.snap = m.ctrl.DismissError()
				return m, m.start()
			}
			return m, nil
		}
		if key.Matches(msg, flowKeys.Dismiss) {
			m.snap = m.ctrl.DismissError()
			m.input.Focus()
			return m, nil
		}
		return m.answerKey(msg)

	case flow.AwaitingAnswer:
		return m.answerKey(msg)
	}
	return m, nil
}

// answerKey edits or submits the answer to the question on screen.
func (m *FlowModel) answerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, flowKeys.Submit):
		return m.send(false)
	case key.Matches(msg, flowKeys.Save):
		return m.send(true)
	}
	m.notice = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetDraft(m.input.Value())
	return m, cmd
}

// send submits the current draft. Blank drafts are rejected here so no
// command is scheduled for them.
func (m *FlowModel) send(exit bool) (tea.Model, tea.Cmd) {
	text := m.input.Value()
	m.ctrl.SetDraft(text)
	if strings.TrimSpace(text) == "" {
		m.notice = flow.Message(flow.ErrEmptyAnswer)
		return m, nil
	}
	m.notice = ""
	m.snap.State = flow.Submitting
	m.snap.Draft = text
	m.input.Blur()
	return m, tea.Batch(m.submit(text, exit), m.spinner.Tick)
}

// View renders the UI
func (m *FlowModel) View() string {
	if m.quitting {
		return "Question flow cancelled.\n"
	}

	switch m.snap.State {
	case flow.Loading:
		return fmt.Sprintf("\n %s Loading next question...\n", m.spinner.View())
	case flow.Complete:
		return m.renderDone(m.styles.Success.Render("✓ All questions answered!"),
			"Generate the report with 'nexora report show "+fmt.Sprint(m.ctrl.ProjectID())+"'.")
	case flow.Exited:
		return m.renderDone(m.styles.Success.Render("✓ Progress saved."),
			"Resume any time with 'nexora answer "+fmt.Sprint(m.ctrl.ProjectID())+"'.")
	case flow.Failed:
		if m.snap.Question == nil {
			return m.renderError("Press enter to retry, ctrl+c to quit.")
		}
		return m.renderQuestion() + m.renderError("Press enter to submit again, esc to dismiss.")
	default:
		return m.renderQuestion()
	}
}

func (m *FlowModel) renderQuestion() string {
	q := m.snap.Question
	if q == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.styles.OriginBadge(q.IsAI()))
	if m.snap.Answered > 0 {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("  %d answered", m.snap.Answered)))
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.Title.Render(q.Text))
	b.WriteString("\n")
	if q.Description != "" {
		b.WriteString(m.styles.Subtitle.Render(q.Description))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d characters", len([]rune(m.input.Value())))))
	b.WriteString("\n")

	switch {
	case m.snap.State == flow.Submitting:
		b.WriteString(fmt.Sprintf("\n%s Submitting...\n", m.spinner.View()))
	case m.notice != "":
		b.WriteString("\n" + m.styles.Warning.Render(m.notice) + "\n")
	}

	if m.snap.State == flow.AwaitingAnswer {
		b.WriteString(m.styles.Help.Render(m.help.View(flowKeys)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *FlowModel) renderError(hint string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.styles.Error.Render("Error: ") + m.snap.Message)
	b.WriteString("\n\n")
	b.WriteString(m.styles.Muted.Render(hint))
	b.WriteString("\n")
	return b.String()
}

func (m *FlowModel) renderDone(title, next string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(m.styles.Muted.Render("Answers submitted: "))
	b.WriteString(fmt.Sprint(m.snap.Answered))
	b.WriteString("\n")
	b.WriteString(next)
	b.WriteString("\n\n")
	b.WriteString("Press any key to exit.\n")
	return b.String()
}

// RunFlow runs the question flow TUI until the user quits and returns the
// final state.
func RunFlow(ctx context.Context, ctrl *flow.Controller) (flow.Snapshot, error) {
	model := NewFlowModel(ctx, ctrl)

	p := tea.NewProgram(model, tea.WithContext(ctx))

	finalModel, err := p.Run()
	if err != nil {
		return ctrl.Snapshot(), fmt.Errorf("run TUI: %w", err)
	}

	m, ok := finalModel.(*FlowModel)
	if !ok {
		return ctrl.Snapshot(), fmt.Errorf("invalid final model type")
	}
	return m.ctrl.Snapshot(), nil
}
