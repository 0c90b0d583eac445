// Package output renders nixmate's terminal output: tables for
// generations, packages, diffs, store paths and cleanup history, plus
// a spinner for long store scans. Colors are ANSI and only emitted on
// a TTY with NO_COLOR unset.
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/nixmate/nixmate/internal/nix"
	"github.com/nixmate/nixmate/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// IsColorEnabled reports whether ANSI color codes should be emitted:
// stdout is a TTY and NO_COLOR is unset.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given color when color is enabled.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderGenerationTable renders the generation list for one profile,
// newest first, as produced by discovery.
func RenderGenerationTable(profile nix.ProfileType, gens []nix.Generation) string {
	if len(gens) == 0 {
		return fmt.Sprintf("No %s generations found.\n", profile)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s generations:\n", profile))
	sb.WriteString(fmt.Sprintf("%-5s %-17s %-22s %-16s %-9s %-9s %s\n",
		"ID", "Date", "Version", "Kernel", "Packages", "Size", "Status"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, g := range gens {
		size := "-"
		if g.ClosureSize > 0 {
			size = humanize.IBytes(uint64(g.ClosureSize))
		}
		packages := "-"
		if g.PackageCount > 0 {
			packages = fmt.Sprintf("%d", g.PackageCount)
		}

		sb.WriteString(fmt.Sprintf("%-5d %-17s %-22s %-16s %-9s %-9s %s\n",
			g.ID,
			g.Date.Format("2006-01-02 15:04"),
			truncate(orDash(g.Version), 22),
			truncate(orDash(g.Kernel), 16),
			packages,
			size,
			generationStatus(g)))
	}

	return sb.String()
}

// generationStatus combines the current / pinned / bootloader flags
// into one column.
func generationStatus(g nix.Generation) string {
	var parts []string
	if g.Current {
		parts = append(parts, colorize(colorGreen, "current"))
	}
	if g.Pinned {
		parts = append(parts, colorize(colorYellow, "pinned"))
	}
	if g.InBootloader {
		parts = append(parts, "boot")
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ")
}

// RenderPackageTable renders the package listing of one generation.
// The list keeps discovery's order.
func RenderPackageTable(pkgs []nix.Package) string {
	if len(pkgs) == 0 {
		return "No packages found.\n"
	}

	hasSizes := false
	var total int64
	for _, p := range pkgs {
		if p.Size > 0 {
			hasSizes = true
			total += p.Size
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-32s %-16s %s\n", "Package", "Version", "Size"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	for _, p := range pkgs {
		size := "-"
		if p.Size > 0 {
			size = humanize.IBytes(uint64(p.Size))
		}
		sb.WriteString(fmt.Sprintf("%-32s %-16s %s\n",
			truncate(p.Name, 32), truncate(orDash(p.Version), 16), size))
	}

	sb.WriteString(fmt.Sprintf("\n%d packages", len(pkgs)))
	if hasSizes {
		sb.WriteString(fmt.Sprintf(", %s total", humanize.IBytes(uint64(total))))
	}
	sb.WriteString("\n")
	return sb.String()
}

// RenderDiffTable renders the change sets between two generations.
func RenderDiffTable(oldID, newID int, diff nix.GenerationDiff) string {
	if diff.Empty() {
		return fmt.Sprintf("Generations %d and %d have identical packages.\n", oldID, newID)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Changes from generation %d to %d:\n", oldID, newID))

	for _, p := range diff.Added {
		sb.WriteString(colorize(colorGreen, fmt.Sprintf("  + %s %s", p.Name, p.Version)))
		sb.WriteString("\n")
	}
	for _, p := range diff.Removed {
		sb.WriteString(colorize(colorRed, fmt.Sprintf("  - %s %s", p.Name, p.Version)))
		sb.WriteString("\n")
	}
	for _, u := range diff.Updated {
		line := fmt.Sprintf("  ~ %s %s -> %s", u.Name, u.OldVersion, u.NewVersion)
		sb.WriteString(colorize(colorYellow, line))
		if u.Kernel {
			sb.WriteString(" " + colorize(colorCyan, "[kernel]"))
		}
		if u.Security {
			sb.WriteString(" " + colorize(colorRed, "[security]"))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n%d added, %d removed, %d updated\n",
		len(diff.Added), len(diff.Removed), len(diff.Updated)))
	return sb.String()
}

// RenderStoreSummary renders the accounting header: disk usage and
// live/dead totals. Degraded scans render what they have.
func RenderStoreSummary(info storage.StoreInfo) string {
	var sb strings.Builder

	if info.DiskStore != nil {
		sb.WriteString(renderDiskLine("store", *info.DiskStore))
	}
	if info.DiskRoot != nil {
		sb.WriteString(renderDiskLine("root", *info.DiskRoot))
	}

	if info.TotalPaths == 0 {
		sb.WriteString("Store contents unavailable (nix tooling not reachable).\n")
		return sb.String()
	}

	if info.HasSizes {
		sb.WriteString(fmt.Sprintf("Store: %d paths, %s total\n",
			info.TotalPaths, humanize.IBytes(uint64(info.TotalSize))))
		sb.WriteString(fmt.Sprintf("  live: %d paths (%s)\n",
			info.LivePaths, humanize.IBytes(uint64(info.LiveSize))))
		sb.WriteString(fmt.Sprintf("  dead: %d paths (%s reclaimable)\n",
			info.DeadPaths, humanize.IBytes(uint64(info.DeadSize))))
	} else {
		sb.WriteString(fmt.Sprintf("Store: %d paths (sizes unavailable)\n", info.TotalPaths))
		if info.DeadPaths > 0 {
			sb.WriteString(fmt.Sprintf("  dead: %d paths\n", info.DeadPaths))
		}
	}
	return sb.String()
}

func renderDiskLine(label string, du storage.DiskUsage) string {
	return fmt.Sprintf("Disk (%s, %s): %s / %s used (%.0f%%), %s free\n",
		label, du.MountPoint,
		humanize.IBytes(uint64(du.Used)), humanize.IBytes(uint64(du.Total)),
		du.Percent, humanize.IBytes(uint64(du.Available)))
}

// RenderStorePathTable renders the largest store paths, up to limit.
// With deadOnly set, live paths are filtered out.
func RenderStorePathTable(info storage.StoreInfo, limit int, deadOnly bool) string {
	paths := info.Paths
	if deadOnly {
		filtered := make([]storage.StorePath, 0, len(paths))
		for _, p := range paths {
			if p.Dead {
				filtered = append(filtered, p)
			}
		}
		paths = filtered
	}
	if len(paths) == 0 {
		return "No store paths to show.\n"
	}
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-44s %-9s %s\n", "Path", "Size", "State"))
	sb.WriteString(strings.Repeat("─", 62))
	sb.WriteString("\n")

	for _, p := range paths {
		size := "-"
		if info.HasSizes {
			size = humanize.IBytes(uint64(p.Size))
		}
		state := colorize(colorGray, "live")
		if p.Dead {
			state = colorize(colorRed, "dead")
		}
		sb.WriteString(fmt.Sprintf("%-44s %-9s %s\n", truncate(p.Name, 44), size, state))
	}
	return sb.String()
}

// RenderHistoryTable renders the cleanup ledger, newest first.
func RenderHistoryTable(entries []storage.HistoryEntry) string {
	if len(entries) == 0 {
		return "No cleanup history recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %-22s %-10s %s\n", "When", "Action", "Freed", "Paths"))
	sb.WriteString(strings.Repeat("─", 62))
	sb.WriteString("\n")

	for _, e := range entries {
		paths := "-"
		if e.PathsRemoved > 0 {
			paths = fmt.Sprintf("%d", e.PathsRemoved)
		}
		sb.WriteString(fmt.Sprintf("%-20s %-22s %-10s %s\n",
			e.Timestamp, truncate(e.Action, 22), humanize.IBytes(uint64(e.FreedBytes)), paths))
	}

	last, total := storage.Summarize(entries)
	sb.WriteString(fmt.Sprintf("\nLast cleanup %s, %s freed in total\n",
		last, humanize.IBytes(uint64(total))))
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens a string to maxLen, adding "..." when cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
