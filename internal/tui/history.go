package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nixmate/nixmate/internal/storage"
)

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "R":
		return m, m.loadHistoryCmd()
	}
	return m, nil
}

func (m Model) viewHistoryBody() string {
	var b strings.Builder

	if len(m.history) == 0 {
		b.WriteString(dimStyle.Render(" no cleanup history recorded"))
		b.WriteString("\n")
		return b.String()
	}

	header := fmt.Sprintf("%-20s %-22s %-10s %s", "When", "Action", "Freed", "Paths")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	end := minInt(m.visibleRows(), len(m.history))
	for i := 0; i < end; i++ {
		e := m.history[i]
		paths := "-"
		if e.PathsRemoved > 0 {
			paths = fmt.Sprintf("%d", e.PathsRemoved)
		}
		row := fmt.Sprintf("%-20s %-22s %-10s %s",
			e.Timestamp, clip(e.Action, 22), humanize.IBytes(uint64(e.FreedBytes)), paths)
		b.WriteString(normalStyle.Render(row))
		b.WriteString("\n")
	}

	last, total := storage.Summarize(m.history)
	b.WriteString(dimStyle.Render(fmt.Sprintf(" last cleanup %s, %s freed in total",
		last, humanize.IBytes(uint64(total)))))
	b.WriteString("\n")
	return b.String()
}
