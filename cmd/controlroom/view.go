package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-controlroom/pkg/gesture"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	dragStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
)

var monitorColumns = []table.Column{
	{Title: "Monitor", Width: 16},
	{Title: "Reading", Width: 8},
	{Title: "Value", Width: 8},
	{Title: "Unit", Width: 8},
	{Title: "Status", Width: 16},
}

// monitorRows lists one row per reading of every monitor panel.
func monitorRows(nodes []model.Node) []table.Row {
	rows := make([]table.Row, 0)
	for _, n := range nodes {
		if len(n.SubValues) == 0 {
			continue
		}
		status := strings.Join(n.Statuses, " ")
		for i, sv := range n.SubValues {
			name := ""
			if i == 0 {
				name = nodeLabel(n)
			}
			rowStatus := ""
			if i == 0 {
				rowStatus = status
			}
			rows = append(rows, table.Row{
				name,
				sv.Label,
				fmt.Sprintf("%.1f", sv.Value),
				sv.Unit,
				rowStatus,
			})
		}
	}
	return rows
}

// View keeps the title on row 0 and the tabs on row 2 so bars start at
// barTop.
func (m ui) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	t := m.tab()
	var s strings.Builder

	state := "paused"
	if t.engine.Running() {
		state = "live"
	}
	title := fmt.Sprintf("Control Room  %s  seed %d", state, t.engine.Seed())
	if n := t.sub.Dropped(); n > 0 {
		title += fmt.Sprintf("  (%d updates skipped)", n)
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")
	s.WriteString(m.renderBars())

	if len(m.monitors.Rows()) > 0 {
		s.WriteString(boxStyle.Render(m.monitors.View()))
		s.WriteString("\n")
	}

	undo, redo := t.engine.History()
	s.WriteString(fmt.Sprintf("\nhistory: %d undo, %d redo", len(undo), len(redo)))

	if m.message != "" {
		s.WriteString("\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("x " + m.message))
		} else {
			s.WriteString(successStyle.Render("> " + m.message))
		}
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m ui) renderTabs() string {
	rendered := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		if i == m.current {
			rendered = append(rendered, activeTabStyle.Render(t.title))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(t.title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderBars draws one line per bar; the bar itself starts at barColumn.
func (m ui) renderBars() string {
	t := m.tab()
	nodes := make(map[string]model.Node, len(t.snap.Nodes))
	for _, n := range t.snap.Nodes {
		nodes[n.ID] = n
	}

	var s strings.Builder
	for _, b := range t.layout.bars {
		n := nodes[b.nodeID]
		v := n.Value.Float()
		filled := b.fill(v)

		color, _ := n.Meta["color"].(string)
		cells := lipgloss.NewStyle().Foreground(colorFor(color)).Render(strings.Repeat("█", filled)) +
			emptyStyle.Render(strings.Repeat("░", b.width-filled))

		label := fmt.Sprintf("%-*s", labelWidth, b.label)
		if state, _ := t.engine.GestureState(b.nodeID); state == gesture.Dragging {
			label = dragStyle.Render(label)
		}
		fmt.Fprintf(&s, "%s [%s] %7.1f %s\n", label, cells, v, n.Unit)
	}
	return s.String()
}
