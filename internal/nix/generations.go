package nix

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	toolListTimeout = 15 * time.Second
	closureTimeout  = 15 * time.Second
)

// discoveryOutcome is the result of one discovery strategy. The
// fallback contract is explicit: only a non-empty success stops the
// pipeline, anything else moves on to the next strategy.
type discoveryOutcome int

const (
	outcomeFound discoveryOutcome = iota
	outcomeEmpty
	outcomeFailed
)

// Discoverer lists generations for a profile source. It tries a
// filesystem symlink scan first (no privileges needed) and falls back
// to `nix-env --list-generations` when the scan fails or finds
// nothing. Discovery never returns an error: an empty list is a
// valid result, and enrichment failures degrade individual fields.
type Discoverer struct {
	runner Runner

	// Boot loader locations, overridable for tests.
	loaderEntriesDir string
	grubConfigPath   string
}

// NewDiscoverer returns a Discoverer using the given runner for
// external-tool calls.
func NewDiscoverer(r Runner) *Discoverer {
	return &Discoverer{
		runner:           r,
		loaderEntriesDir: "/boot/loader/entries",
		grubConfigPath:   "/boot/grub/grub.cfg",
	}
}

// List returns all generations of the source, newest id first.
func (d *Discoverer) List(source GenerationSource) []Generation {
	gens, outcome := d.listFromLinks(source)
	if outcome == outcomeFound {
		return gens
	}
	return d.listFromTool(source)
}

// listFromLinks scans the profile's parent directory for entries named
// <prefix>-<id>-link and builds a generation from each one.
func (d *Discoverer) listFromLinks(source GenerationSource) ([]Generation, discoveryOutcome) {
	profileDir := filepath.Dir(source.ProfilePath)

	entries, err := os.ReadDir(profileDir)
	if err != nil {
		return nil, outcomeFailed
	}

	currentID := currentGenerationID(source.ProfilePath)
	boot := d.bootEntries(source.Type)

	var gens []Generation
	prefix := source.Type.linkPrefix()
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "-link") {
			continue
		}
		id, err := strconv.Atoi(name[len(prefix) : len(name)-len("-link")])
		if err != nil {
			continue
		}

		genPath := filepath.Join(profileDir, name)
		gens = append(gens, d.buildGeneration(
			source.Type, id, genPath, linkTimestamp(genPath), id == currentID, boot[id],
		))
	}

	if len(gens) == 0 {
		return nil, outcomeEmpty
	}
	sortByIDDescending(gens)
	return gens, outcomeFound
}

// listFromTool asks `nix-env --list-generations` for the id list and
// resolves each id back to its on-disk link. Ids whose link does not
// exist are skipped.
func (d *Discoverer) listFromTool(source GenerationSource) []Generation {
	res, ok := d.runner.Run("nix-env",
		[]string{"--list-generations", "--profile", source.ProfilePath}, toolListTimeout)
	if !ok || !res.Success {
		return nil
	}

	currentID := currentGenerationID(source.ProfilePath)
	boot := d.bootEntries(source.Type)

	var gens []Generation
	for _, entry := range parseGenerationListing(res.Stdout) {
		genPath := generationLinkPath(source, entry.id)
		if _, err := os.Lstat(genPath); err != nil {
			continue
		}
		gens = append(gens, d.buildGeneration(
			source.Type, entry.id, genPath, entry.date, entry.id == currentID, boot[entry.id],
		))
	}

	sortByIDDescending(gens)
	return gens
}

type listedGeneration struct {
	id   int
	date time.Time
}

// parseGenerationListing parses `nix-env --list-generations` output.
// Each line looks like "  42   2024-03-01 18:32:41   (current)".
// Malformed lines are skipped.
func parseGenerationListing(output string) []listedGeneration {
	var listed []listedGeneration
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		date, err := time.ParseInLocation("2006-01-02 15:04:05", fields[1]+" "+fields[2], time.Local)
		if err != nil {
			continue
		}
		listed = append(listed, listedGeneration{id: id, date: date})
	}
	return listed
}

// buildGeneration assembles one generation record. Every enrichment is
// best-effort: a failed lookup leaves the field empty or zero.
func (d *Discoverer) buildGeneration(profileType ProfileType, id int, genPath string, date time.Time, current, inBoot bool) Generation {
	gen := Generation{
		ID:           id,
		Date:         date,
		Current:      current,
		InBootloader: inBoot,
		Version:      versionLabel(genPath, profileType),
		PackageCount: packageCount(genPath),
		ClosureSize:  d.closureSize(genPath),
	}
	if profileType == ProfileSystem {
		gen.Kernel = kernelLabel(genPath)
	}
	if target, err := os.Readlink(genPath); err == nil {
		gen.StorePath = target
	}
	return gen
}

// linkTimestamp returns the generation's creation time, preferring the
// symlink's own metadata over the target's.
func linkTimestamp(path string) time.Time {
	if info, err := os.Lstat(path); err == nil {
		return info.ModTime()
	}
	if info, err := os.Stat(path); err == nil {
		return info.ModTime()
	}
	return time.Now()
}

// currentGenerationID resolves which generation the profile symlink
// currently points at, or 0 if that cannot be determined.
func currentGenerationID(profilePath string) int {
	target, err := os.Readlink(profilePath)
	if err != nil {
		return 0
	}
	id, ok := extractGenerationID(filepath.Base(target))
	if !ok {
		return 0
	}
	return id
}

// extractGenerationID pulls the numeric id out of a link name like
// "system-142-link" or "home-manager-89-link".
func extractGenerationID(name string) (int, bool) {
	if !strings.HasSuffix(name, "-link") {
		return 0, false
	}
	trimmed := strings.TrimSuffix(name, "-link")
	idx := strings.LastIndex(trimmed, "-")
	if idx < 0 {
		return 0, false
	}
	id, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil {
		return 0, false
	}
	return id, true
}

// generationLinkPath builds the on-disk link path for a generation id,
// e.g. /nix/var/nix/profiles/system-142-link.
func generationLinkPath(source GenerationSource, id int) string {
	name := source.Type.linkPrefix() + strconv.Itoa(id) + "-link"
	return filepath.Join(filepath.Dir(source.ProfilePath), name)
}

// versionLabel reads the version marker file inside the generation,
// falling back to pattern-extracting the version from the store path.
func versionLabel(genPath string, profileType ProfileType) string {
	marker := "nixos-version"
	if profileType == ProfileHomeManager {
		marker = "hm-version"
	}
	if data, err := os.ReadFile(filepath.Join(genPath, marker)); err == nil {
		return strings.TrimSpace(string(data))
	}

	// Store paths look like ...-nixos-system-<host>-<version>.
	target, err := os.Readlink(genPath)
	if err != nil {
		return ""
	}
	const markerStr = "-nixos-system-"
	idx := strings.Index(target, markerStr)
	if idx < 0 {
		return ""
	}
	parts := strings.SplitN(target[idx+len(markerStr):], "-", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// kernelLabel determines the kernel version of a system generation
// from the kernel symlink target, else from the kernel-modules tree.
func kernelLabel(genPath string) string {
	if target, err := os.Readlink(filepath.Join(genPath, "kernel")); err == nil {
		for _, part := range strings.Split(target, "/") {
			if rest, ok := strings.CutPrefix(part, "linux-"); ok && rest != "" {
				return strings.SplitN(rest, "-", 2)[0]
			}
		}
	}

	modules := filepath.Join(genPath, "kernel-modules/lib/modules")
	entries, err := os.ReadDir(modules)
	if err != nil || len(entries) == 0 {
		return ""
	}
	return entries[0].Name()
}

// packageCount counts entries under sw/bin for system generations,
// else manifest entries for Home-Manager generations.
func packageCount(genPath string) int {
	if entries, err := os.ReadDir(filepath.Join(genPath, "sw/bin")); err == nil {
		return len(entries)
	}

	manifest := filepath.Join(genPath, "home-files/.nix-profile/manifest.nix")
	data, err := os.ReadFile(manifest)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "name = ")
}

// closureSize queries `nix path-info -S` for the generation's closure
// size. 0 means unavailable.
func (d *Discoverer) closureSize(genPath string) int64 {
	res, ok := d.runner.Run("nix", []string{"path-info", "-S", genPath}, closureTimeout)
	if !ok || !res.Success {
		return 0
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if size, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			return size
		}
	}
	return 0
}

// bootEntries returns the set of generation ids referenced by the boot
// loader. Best-effort, system profiles only.
func (d *Discoverer) bootEntries(profileType ProfileType) map[int]bool {
	entries := make(map[int]bool)
	if profileType != ProfileSystem {
		return entries
	}

	// systemd-boot: /boot/loader/entries/nixos-generation-N.conf
	if dirEntries, err := os.ReadDir(d.loaderEntriesDir); err == nil {
		for _, e := range dirEntries {
			name := e.Name()
			if !strings.HasPrefix(name, "nixos-generation-") || !strings.HasSuffix(name, ".conf") {
				continue
			}
			idStr := strings.TrimSuffix(strings.TrimPrefix(name, "nixos-generation-"), ".conf")
			if id, err := strconv.Atoi(idStr); err == nil {
				entries[id] = true
			}
		}
	}
	if len(entries) > 0 {
		return entries
	}

	// GRUB: menu entries mention "NixOS ... Generation N".
	data, err := os.ReadFile(d.grubConfigPath)
	if err != nil {
		return entries
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "NixOS") || !strings.Contains(line, "Generation") {
			continue
		}
		idx := strings.Index(line, "Generation ")
		rest := line[idx+len("Generation "):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if id, err := strconv.Atoi(rest[:end]); err == nil {
			entries[id] = true
		}
	}
	return entries
}

func sortByIDDescending(gens []Generation) {
	sort.Slice(gens, func(i, j int) bool { return gens[i].ID > gens[j].ID })
}
