package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nixmate/nixmate/internal/actions"
	"github.com/nixmate/nixmate/internal/storage"
)

func (m Model) updateStore(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	paths := m.filteredPaths()

	switch msg.String() {
	case "up", "k":
		if m.storeCursor > 0 {
			m.storeCursor--
			m.clampStoreOffset(len(paths))
		}
	case "down", "j":
		if m.storeCursor < len(paths)-1 {
			m.storeCursor++
			m.clampStoreOffset(len(paths))
		}
	case "x":
		m.deadOnly = !m.deadOnly
		m.storeCursor = 0
		m.storeOffset = 0
	case "/":
		m.searching = true
		m.search.Focus()
		return m, nil
	case "R":
		m.storeLoading = true
		return m, m.loadStoreCmd()
	case "g":
		m.deps.Machine.RequestClean(actions.KindGC)
	case "f":
		m.deps.Machine.RequestClean(actions.KindFullClean)
	case "o":
		m.deps.Machine.RequestClean(actions.KindOptimise)
	}
	return m, nil
}

// filteredPaths applies the dead-only toggle and the search filter to
// the store snapshot.
func (m Model) filteredPaths() []storage.StorePath {
	needle := strings.ToLower(m.search.Value())
	var out []storage.StorePath
	for _, p := range m.store.Paths {
		if m.deadOnly && !p.Dead {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *Model) clampStoreOffset(total int) {
	visible := m.visibleRows()
	if m.storeCursor < m.storeOffset {
		m.storeOffset = m.storeCursor
	}
	if m.storeCursor >= m.storeOffset+visible {
		m.storeOffset = m.storeCursor - visible + 1
	}
	if m.storeOffset < 0 || total == 0 {
		m.storeOffset = 0
	}
}

func (m Model) viewStoreBody() string {
	var b strings.Builder

	if m.storeLoading {
		b.WriteString(dimStyle.Render(fmt.Sprintf(" %s scanning store...", m.spin.View())))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.renderStoreHeader())

	paths := m.filteredPaths()
	if len(paths) == 0 {
		b.WriteString(dimStyle.Render(" no store paths to show"))
		b.WriteString("\n")
		return b.String()
	}

	header := fmt.Sprintf("%-52s %-9s %s", "Path", "Size", "State")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	visible := m.visibleRows() - 3 // header block above the listing
	if visible < 1 {
		visible = 1
	}
	end := minInt(m.storeOffset+visible, len(paths))
	for i := m.storeOffset; i < end; i++ {
		b.WriteString(m.renderStorePathRow(paths[i], i == m.storeCursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStoreHeader() string {
	var b strings.Builder

	if du := m.store.DiskRoot; du != nil {
		b.WriteString(fmt.Sprintf(" Disk %s: %s / %s (%.0f%%)\n",
			du.MountPoint,
			humanize.IBytes(uint64(du.Used)), humanize.IBytes(uint64(du.Total)), du.Percent))
	}
	if du := m.store.DiskStore; du != nil {
		b.WriteString(fmt.Sprintf(" Disk %s: %s / %s (%.0f%%)\n",
			du.MountPoint,
			humanize.IBytes(uint64(du.Used)), humanize.IBytes(uint64(du.Total)), du.Percent))
	}

	switch {
	case m.store.TotalPaths == 0:
		b.WriteString(dimStyle.Render(" store contents unavailable"))
		b.WriteString("\n")
	case m.store.HasSizes:
		b.WriteString(fmt.Sprintf(" %d paths, %s total, %s reclaimable (%d dead)\n",
			m.store.TotalPaths,
			humanize.IBytes(uint64(m.store.TotalSize)),
			humanize.IBytes(uint64(m.store.DeadSize)),
			m.store.DeadPaths))
	default:
		b.WriteString(fmt.Sprintf(" %d paths, sizes unavailable (%d dead)\n",
			m.store.TotalPaths, m.store.DeadPaths))
	}

	filters := []string{}
	if m.deadOnly {
		filters = append(filters, "dead only")
	}
	if m.search.Value() != "" {
		filters = append(filters, "filter: "+m.search.Value())
	}
	if len(filters) > 0 {
		b.WriteString(dimStyle.Render(" [" + strings.Join(filters, ", ") + "]"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStorePathRow(p storage.StorePath, selected bool) string {
	size := "-"
	if m.store.HasSizes {
		size = humanize.IBytes(uint64(p.Size))
	}

	row := fmt.Sprintf("%-52s %-9s", clip(p.Name, 52), size)
	if selected {
		state := "live"
		if p.Dead {
			state = "dead"
		}
		return selectedStyle.Render(row + " " + state)
	}

	state := liveTag.Render("live")
	if p.Dead {
		state = deadTag.Render("dead")
	}
	return normalStyle.Render(row) + " " + state
}
