package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/service"
)

// turnDoneMsg carries the result of a Submit, Edit or Finalize call.
type turnDoneMsg struct {
	view *service.SessionView
	err  error
}

// streamEventMsg is one live transcript event.
type streamEventMsg struct {
	event realtime.Event
}

// streamClosedMsg reports that the event channel was closed.
type streamClosedMsg struct{}

// chatModel is the interactive chat view. Turns run as tea.Cmds; input is
// blurred until the turn returns.
type chatModel struct {
	ctx  context.Context
	app  *App
	opts service.FinalizeOptions

	input   textinput.Model
	spinner spinner.Model
	printer printer

	view    *service.SessionView
	entries []domain.TranscriptEntry
	events  <-chan realtime.Event

	busy       bool
	status     string
	generation *domain.Generation
}

func newChatModel(ctx context.Context, app *App, view *service.SessionView, events <-chan realtime.Event, opts service.FinalizeOptions) *chatModel {
	ti := textinput.New()
	ti.Focus()
	ti.Prompt = ""
	ti.CharLimit = 2000

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styleHeader))

	return &chatModel{
		ctx:     ctx,
		app:     app,
		opts:    opts,
		input:   ti,
		spinner: sp,
		printer: printer{styled: true},
		view:    view,
		entries: append([]domain.TranscriptEntry(nil), view.Transcript...),
		events:  events,
	}
}

// ── tea.Model interface ──────────────────────────────────────────────────────

func (m *chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			input := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if input == "" {
				return m, nil
			}
			return m.handleInput(input)
		}
		if m.busy {
			return m, nil
		}

	case turnDoneMsg:
		m.busy = false
		focus := m.input.Focus()
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, focus
		}
		m.status = ""
		m.view = msg.view
		m.entries = append(m.entries[:0], msg.view.Transcript...)
		if msg.view.Generation != nil {
			m.generation = msg.view.Generation
			return m, tea.Quit
		}
		return m, focus

	case streamEventMsg:
		m.applyEvent(msg.event)
		if msg.event.Type == realtime.EventClosed {
			m.events = nil
			return m, nil
		}
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		m.events = nil
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) View() string {
	var b strings.Builder

	title := m.view.ContentType.Label()
	b.WriteString(m.printer.render(styleHeader, title))
	if m.view.Mode == conversation.ModeInterviewing && m.view.Total > 0 {
		b.WriteString(m.printer.render(styleDim, progressLabel(m.view)))
	}
	b.WriteString("\n\n")

	for _, e := range m.entries {
		b.WriteString(m.printer.entry(e))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.printer.render(styleRed, m.status))
		b.WriteString("\n")
	}

	if m.busy {
		b.WriteString(m.spinner.View())
		b.WriteString(m.printer.render(styleDim, " thinking..."))
		b.WriteString("\n")
		return b.String()
	}

	if m.view.Mode == conversation.ModeConfirming {
		b.WriteString(m.printer.affordanceHint(editKeys(m.view)))
		b.WriteString("\n")
	}
	b.WriteString(m.printer.render(stylePurple, "you"))
	b.WriteString(m.printer.render(styleDim, "> "))
	b.WriteString(m.input.View())

	return b.String()
}

// ── input handling ───────────────────────────────────────────────────────────

func (m *chatModel) handleInput(input string) (tea.Model, tea.Cmd) {
	c, err := parseChatInput(m.view.Mode, input)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if c.action == actionQuit {
		return m, tea.Quit
	}

	m.busy = true
	m.status = ""
	m.input.Blur()

	ctx, app, id, opts := m.ctx, m.app, m.view.ID, m.opts
	turn := func() tea.Msg {
		view, err := runTurn(ctx, app, id, c, opts)
		return turnDoneMsg{view: view, err: err}
	}
	return m, turn
}

// applyEvent folds a live event into the displayed transcript.
func (m *chatModel) applyEvent(ev realtime.Event) {
	if ev.Entry == nil {
		return
	}
	switch ev.Type {
	case realtime.EventAppend:
		for _, e := range m.entries {
			if e.ID == ev.Entry.ID {
				return
			}
		}
		m.entries = append(m.entries, *ev.Entry)
	case realtime.EventRetract:
		for i, e := range m.entries {
			if e.ID == ev.Entry.ID {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				return
			}
		}
	}
}

// waitForEvent delivers the next stream event. A nil channel yields no
// command.
func waitForEvent(events <-chan realtime.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{event: ev}
	}
}

func progressLabel(view *service.SessionView) string {
	pos := view.Position + 1
	if pos > view.Total {
		pos = view.Total
	}
	return fmt.Sprintf("  question %d of %d", pos, view.Total)
}
