package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-controlroom/pkg/gesture"
	"github.com/dd0wney/cluso-controlroom/pkg/pubsub"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
)

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Cancel   key.Binding
	Undo     key.Binding
	Redo     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next diagram"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev diagram"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel drag"),
	),
	Undo: key.NewBinding(
		key.WithKeys("u", "ctrl+z"),
		key.WithHelp("u", "undo"),
	),
	Redo: key.NewBinding(
		key.WithKeys("r", "ctrl+y"),
		key.WithHelp("r", "redo"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Undo, k.Redo, k.Cancel, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Undo, k.Redo, k.Cancel},
		{k.Quit},
	}
}

// changeMsg says a tab's diagram changed.
type changeMsg struct {
	tab int
}

func waitForChange(i int, sub *pubsub.Subscription[*txn.ChangeSet]) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-sub.Channel(); !ok {
			return nil
		}
		return changeMsg{tab: i}
	}
}

type ui struct {
	ctx        context.Context
	tabs       []*tab
	current    int
	dragging   string
	monitors   table.Model
	help       help.Model
	keys       keyMap
	width      int
	height     int
	message    string
	messageErr bool
}

func newUI(ctx context.Context, tabs []*tab) ui {
	t := table.New(
		table.WithColumns(monitorColumns),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(false)
	t.SetStyles(s)

	return ui{
		ctx:      ctx,
		tabs:     tabs,
		monitors: t,
		help:     help.New(),
		keys:     keys,
	}
}

func (m ui) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.tabs))
	for i, t := range m.tabs {
		cmds = append(cmds, waitForChange(i, t.sub))
	}
	return tea.Batch(cmds...)
}

func (m ui) tab() *tab {
	return m.tabs[m.current]
}

func (m *ui) refresh(i int) {
	t := m.tabs[i]
	t.snap = t.engine.Snapshot()
	if i == m.current {
		t.layout.place(t.snap.Nodes, m.width)
		m.monitors.SetRows(monitorRows(t.snap.Nodes))
	}
}

func (m *ui) report(err error) {
	if err == nil {
		return
	}
	m.message = err.Error()
	m.messageErr = true
}

func (m *ui) notify(format string, args ...any) {
	m.message = fmt.Sprintf(format, args...)
	m.messageErr = false
}

func (m ui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.refresh(m.current)

	case changeMsg:
		m.refresh(msg.tab)
		return m, waitForChange(msg.tab, m.tabs[msg.tab].sub)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancelDrag()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.switchTab((m.current + 1) % len(m.tabs))

		case key.Matches(msg, m.keys.ShiftTab):
			m.switchTab((m.current + len(m.tabs) - 1) % len(m.tabs))

		case key.Matches(msg, m.keys.Cancel):
			if m.dragging != "" {
				m.cancelDrag()
				m.notify("drag cancelled")
			}

		case key.Matches(msg, m.keys.Undo):
			m.cancelDrag()
			cs, err := m.tab().engine.Undo(m.ctx)
			m.historyMoved("undid", cs, err)

		case key.Matches(msg, m.keys.Redo):
			m.cancelDrag()
			cs, err := m.tab().engine.Redo(m.ctx)
			m.historyMoved("redid", cs, err)
		}
	}

	return m, nil
}

// historyMoved reports an undo or redo. A nil change set means the step
// restored values the diagram already showed.
func (m *ui) historyMoved(verb string, cs *txn.ChangeSet, err error) {
	switch {
	case err != nil:
		m.report(err)
	case cs == nil:
		m.notify("%s a step with no visible change", verb)
	default:
		m.notify("%s %q", verb, cs.Label)
	}
}

func (m *ui) switchTab(i int) {
	m.cancelDrag()
	m.current = i
	m.refresh(i)
}

func (m *ui) cancelDrag() {
	if m.dragging == "" {
		return
	}
	m.report(m.tab().engine.PointerCancel(m.ctx, m.dragging))
	m.dragging = ""
}

// handleMouse turns presses, motion and releases on a bar into a drag.
func (m *ui) handleMouse(msg tea.MouseMsg) {
	t := m.tab()
	p := gesture.Point{X: float64(msg.X), Y: float64(msg.Y)}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || m.dragging != "" {
			return
		}
		b, ok := t.layout.hit(msg.X, msg.Y)
		if !ok {
			return
		}
		if err := t.engine.PointerDown(m.ctx, b.nodeID, sliderPort); err != nil {
			m.report(err)
			return
		}
		m.dragging = b.nodeID
		m.message = ""
		m.report(t.engine.PointerMove(m.ctx, b.nodeID, p))

	case tea.MouseActionMotion:
		if m.dragging == "" {
			return
		}
		m.report(t.engine.PointerMove(m.ctx, m.dragging, p))

	case tea.MouseActionRelease:
		if m.dragging == "" {
			return
		}
		id := m.dragging
		m.dragging = ""
		cs, err := t.engine.PointerUp(m.ctx, id, p)
		switch {
		case err != nil:
			m.report(err)
		case cs != nil:
			n, _ := t.engine.Get(id)
			m.notify("%s set to %.0f", nodeLabel(n), n.Value.Float())
		}
	}
}
