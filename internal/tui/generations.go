package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nixmate/nixmate/internal/nix"
)

func (m Model) updateGenerations(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampGenOffset()
		}
	case "down", "j":
		if m.cursor < len(m.gens)-1 {
			m.cursor++
			m.clampGenOffset()
		}
	case "u":
		if other, ok := m.otherSource(); ok {
			m.source = other
			m.cursor = 0
			m.offset = 0
			m.gensLoading = true
			return m, m.loadGenerationsCmd(other)
		}
		m.setFlash("No Home-Manager profile detected", true)
	case "R":
		m.gensLoading = true
		return m, m.loadGenerationsCmd(m.source)
	case "p":
		if g, ok := m.selectedGeneration(); ok {
			pinned, err := m.deps.TogglePin(m.source.Type, g.ID)
			if err != nil {
				m.setFlash(err.Error(), true)
				break
			}
			m.gens[m.cursor].Pinned = pinned
			if pinned {
				m.setFlash(fmt.Sprintf("Pinned generation %d", g.ID), false)
			} else {
				m.setFlash(fmt.Sprintf("Unpinned generation %d", g.ID), false)
			}
		}
	case "d":
		if g, ok := m.selectedGeneration(); ok {
			m.deps.Machine.RequestDelete(m.source, m.gens, []int{g.ID}, false)
		}
	case "r":
		if g, ok := m.selectedGeneration(); ok {
			m.deps.Machine.RequestRestore(m.source, m.gens, g.ID, false)
		}
	}
	return m, nil
}

func (m Model) selectedGeneration() (nix.Generation, bool) {
	if len(m.gens) == 0 || m.cursor >= len(m.gens) {
		return nix.Generation{}, false
	}
	return m.gens[m.cursor], true
}

func (m *Model) clampGenOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) viewGenerationsBody() string {
	var b strings.Builder

	if m.gensLoading {
		b.WriteString(dimStyle.Render(fmt.Sprintf(" %s loading %s generations...", m.spin.View(), m.source.Type)))
		b.WriteString("\n")
		return b.String()
	}
	if len(m.gens) == 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf(" no %s generations found", m.source.Type)))
		b.WriteString("\n")
		return b.String()
	}

	header := fmt.Sprintf("%-5s %-17s %-22s %-16s %-5s %-9s %s",
		"ID", "Date", "Version", "Kernel", "Pkgs", "Size", "Status")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	end := minInt(m.offset+m.visibleRows(), len(m.gens))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderGenerationRow(m.gens[i], i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderGenerationRow(g nix.Generation, selected bool) string {
	size := "-"
	if g.ClosureSize > 0 {
		size = humanize.IBytes(uint64(g.ClosureSize))
	}
	pkgs := "-"
	if g.PackageCount > 0 {
		pkgs = fmt.Sprintf("%d", g.PackageCount)
	}

	row := fmt.Sprintf("%-5d %-17s %-22s %-16s %-5s %-9s",
		g.ID,
		g.Date.Format("2006-01-02 15:04"),
		clip(orDash(g.Version), 22),
		clip(orDash(g.Kernel), 16),
		pkgs,
		size)

	if selected {
		return selectedStyle.Render(row + " " + plainStatus(g))
	}
	return normalStyle.Render(row) + " " + styledStatus(g)
}

func plainStatus(g nix.Generation) string {
	var parts []string
	if g.Current {
		parts = append(parts, "current")
	}
	if g.Pinned {
		parts = append(parts, "pinned")
	}
	if g.InBootloader {
		parts = append(parts, "boot")
	}
	return strings.Join(parts, " ")
}

func styledStatus(g nix.Generation) string {
	var parts []string
	if g.Current {
		parts = append(parts, currentTag.Render("current"))
	}
	if g.Pinned {
		parts = append(parts, pinnedTag.Render("pinned"))
	}
	if g.InBootloader {
		parts = append(parts, dimStyle.Render("boot"))
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func clip(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-2]) + ".."
}
