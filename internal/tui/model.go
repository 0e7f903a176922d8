// Package tui renders a pipeline run in the terminal with bubbletea.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
)

const (
	barWidth        = 30
	maxWarningLines = 3
)

// Model follows one run's event channel until it closes.
type Model struct {
	video  string
	events <-chan model.Event
	cancel func()

	status     model.ProcessingStatus
	warnings   []string
	segments   int
	backend    *model.BackendInfo
	summary    *model.VideoSummary
	terminal   *model.ProcessingStatus
	cancelling bool
	closed     bool

	width int
}

// New creates a Model that reads events and calls cancel when the user quits early.
func New(video string, events <-chan model.Event, cancel func()) Model {
	return Model{
		video:  video,
		events: events,
		cancel: cancel,
		status: model.NewStatus(model.StagePreparing, 0, "starting"),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// waitForEvent blocks on the next event.
func waitForEvent(events <-chan model.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case EventMsg:
		m.apply(msg.Event)
		return m, waitForEvent(m.events)

	case EventsClosedMsg:
		m.closed = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) apply(ev model.Event) {
	switch ev.Kind {
	case model.EventStatus:
		switch {
		case ev.Status.Stage == model.StageWarning:
			m.warnings = append(m.warnings, ev.Status.Message)
		case ev.IsTerminal():
			s := *ev.Status
			m.terminal = &s
			m.status = s
		default:
			m.status = *ev.Status
		}
	case model.EventSegmentsReady:
		m.segments = len(ev.Segments)
	case model.EventBackendInfoReady:
		m.backend = ev.Backend
	case model.EventSummaryReady:
		m.summary = ev.Summary
	}
}

// handleKey cancels the run on the first quit key. The model keeps
// reading until the terminal event arrives and the channel closes.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		if m.closed {
			return m, tea.Quit
		}
		if !m.cancelling && m.cancel != nil {
			m.cancelling = true
			m.cancel()
		}
	}
	return m, nil
}

// Terminal returns the final status once the run has ended.
func (m Model) Terminal() (model.ProcessingStatus, bool) {
	if m.terminal == nil {
		return model.ProcessingStatus{}, false
	}
	return *m.terminal, true
}

// Warnings returns the warning messages received so far.
func (m Model) Warnings() []string {
	return m.warnings
}

func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("VIDBRIEF")+dimStyle.Render("  "+filepath.Base(m.video)))
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderProgress())

	if m.backend != nil {
		sections = append(sections, dimStyle.Render("backend: "+m.backend.Label()))
	}
	if m.segments > 0 {
		sections = append(sections, dimStyle.Render(fmt.Sprintf("segments: %d", m.segments)))
	}
	if m.summary != nil {
		sections = append(sections, dimStyle.Render(fmt.Sprintf("topics: %d", len(m.summary.Topics))))
	}

	sections = append(sections, m.renderWarnings()...)

	if m.terminal != nil {
		sections = append(sections, m.renderTerminal())
	}

	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n") + "\n"
}

func (m Model) renderDivider() string {
	width := m.width
	if width <= 0 || width > 80 {
		width = 60
	}
	return dividerStyle.Render(strings.Repeat("─", width))
}

func (m Model) renderProgress() string {
	return stageStyle.Render(fmt.Sprintf("%-12s", m.status.Stage)) + " " +
		renderBar(m.status.Progress) +
		fmt.Sprintf(" %3.0f%%", m.status.Progress*100) +
		dimStyle.Render("  "+m.status.Message)
}

func (m Model) renderWarnings() []string {
	if len(m.warnings) == 0 {
		return nil
	}
	start := max(0, len(m.warnings)-maxWarningLines)
	lines := make([]string, 0, len(m.warnings)-start)
	for _, w := range m.warnings[start:] {
		lines = append(lines, warningStyle.Render("! "+w))
	}
	return lines
}

func (m Model) renderTerminal() string {
	if m.terminal.Stage == model.StageComplete {
		return successStyle.Render("✓ " + m.terminal.Message)
	}
	return errorStyle.Render("✗ " + m.terminal.Message)
}

func (m Model) renderFooter() string {
	switch {
	case m.closed:
		return dimStyle.Render("done")
	case m.cancelling:
		return dimStyle.Render("cancelling...")
	default:
		return dimStyle.Render("q: cancel")
	}
}

func renderBar(progress float64) string {
	filled := int(model.ClampProgress(progress) * barWidth)
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}
