package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nixmate/nixmate/internal/actions"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderTitle())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.view {
	case viewGenerations:
		b.WriteString(m.viewGenerationsBody())
	case viewStore:
		b.WriteString(m.viewStoreBody())
	case viewHistory:
		b.WriteString(m.viewHistoryBody())
	}

	switch m.deps.Machine.State() {
	case actions.StateConfirming:
		b.WriteString(m.renderConfirmPopup())
		b.WriteString("\n")
	case actions.StateUndoPending:
		b.WriteString(m.renderUndoNotice())
		b.WriteString("\n")
	case actions.StateFailed:
		b.WriteString(flashErrStyle.Render(" " + m.deps.Machine.Failure()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("  press any key to dismiss"))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderTitle() string {
	host := m.deps.System.Hostname
	info := fmt.Sprintf("  %s@%s", m.deps.System.Username, host)
	if m.deps.System.UsesFlakes {
		info += "  (flakes)"
	}
	return titleStyle.Render("nixmate") + dimStyle.Render(info)
}

func (m Model) renderTabs() string {
	labels := []string{"1 Generations", "2 Store", "3 History"}
	var parts []string
	for i, label := range labels {
		if view(i) == m.view {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	tabs := strings.Join(parts, " ")
	if m.view == viewGenerations {
		tabs += dimStyle.Render("  [" + m.source.Type.String() + "]")
	}
	return tabs
}

func (m Model) renderConfirmPopup() string {
	pending := m.deps.Machine.Pending()

	var lines []string
	lines = append(lines, fmt.Sprintf("%s?", pending.Kind))
	switch pending.Kind {
	case actions.KindRestore:
		lines = append(lines, fmt.Sprintf("generation %d", pending.ID))
	case actions.KindDelete:
		ids := make([]string, len(pending.IDs))
		for i, id := range pending.IDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		lines = append(lines, "generations "+strings.Join(ids, ", "))
	}
	lines = append(lines, "")
	lines = append(lines, dimStyle.Render(pending.Command))
	lines = append(lines, "")
	lines = append(lines, helpStyle.Render("y: confirm  n: cancel"))

	popup := popupStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, popup)
}

func (m Model) renderUndoNotice() string {
	remaining := int(m.deps.Machine.UndoRemaining().Seconds())
	notice := undoStyle.Render(fmt.Sprintf("%s  dismissing in %ds  (x to dismiss now)",
		m.deps.Machine.UndoDescription(), remaining))
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, notice)
}

func (m Model) renderStatusBar() string {
	if m.searching {
		return statusBarStyle.Render("Filter: ") + m.search.View()
	}

	if flash, isErr := m.visibleFlash(); flash != "" {
		if isErr {
			return flashErrStyle.Render(" " + flash)
		}
		return flashStyle.Render(" " + flash)
	}

	switch m.view {
	case viewGenerations:
		return helpStyle.Render("  j/k: move  p: pin  d: delete  r: restore  u: profile  R: reload  tab: view  q: quit")
	case viewStore:
		return helpStyle.Render("  j/k: move  x: dead only  /: filter  g: gc  f: full clean  o: optimise  R: reload  q: quit")
	default:
		return helpStyle.Render("  R: reload  tab: view  q: quit")
	}
}

// visibleRows is the body height: total minus title, tabs, header and
// status lines.
func (m Model) visibleRows() int {
	rows := m.height - 5
	if rows < 1 {
		rows = 1
	}
	return rows
}
