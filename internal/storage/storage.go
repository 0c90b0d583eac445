// Package storage builds the global picture of the Nix store — disk
// usage, live/dead path classification, per-path sizes — and runs the
// cleanup actions (garbage collection, optimisation) against it.
//
// Every sub-query degrades independently. A total tooling failure
// still yields an all-zero StoreInfo with HasSizes=false; the caller
// always has something to show.
package storage

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nixmate/nixmate/internal/nix"
)

const (
	deadSetTimeout    = 15 * time.Second
	unsizedTimeout    = 15 * time.Second
	sizedTimeout      = 30 * time.Second
	diskUsageTimeout  = 10 * time.Second
	storePathsPrefix  = "/nix/store/"
	defaultStoreMount = "/nix/store"
)

// StorePath is one content-addressed store entry. Dead means the path
// was present in the reclaimable-path scan; the dead and sizing scans
// run separately, so the flag is best-effort.
type StorePath struct {
	Path string
	Name string
	Size int64
	Dead bool
}

// DiskUsage is df-style usage for one monitored mount.
type DiskUsage struct {
	Filesystem string
	MountPoint string
	Total      int64
	Used       int64
	Available  int64
	Percent    float64
}

// StoreInfo is one complete store snapshot. When HasSizes is false,
// size data could not be obtained and every size field is zero and
// advisory only.
type StoreInfo struct {
	DiskStore *DiskUsage
	DiskRoot  *DiskUsage

	Paths      []StorePath
	TotalPaths int
	LivePaths  int
	DeadPaths  int
	TotalSize  int64
	LiveSize   int64
	DeadSize   int64
	HasSizes   bool
}

// Accountant produces StoreInfo snapshots and runs cleanup actions.
type Accountant struct {
	runner    nix.Runner
	storeDir  string
	rootMount string
}

// NewAccountant returns an Accountant over the real store location.
func NewAccountant(r nix.Runner) *Accountant {
	return &Accountant{runner: r, storeDir: defaultStoreMount, rootMount: "/"}
}

// ScanBudget is the worst-case wall time of one Load: the disk probes
// plus the dead scan plus the sized listing.
func ScanBudget() time.Duration {
	return diskUsageTimeout + deadSetTimeout + sizedTimeout
}

// Load assembles one snapshot. It never fails; see the package doc.
func (a *Accountant) Load() StoreInfo {
	var info StoreInfo

	info.DiskStore = a.diskUsage(a.storeDir)
	info.DiskRoot = a.diskUsage(a.rootMount)
	// Same filesystem twice is one mount; keep the root entry.
	if info.DiskStore != nil && info.DiskRoot != nil &&
		info.DiskStore.Filesystem == info.DiskRoot.Filesystem {
		info.DiskStore = nil
	}

	dead := a.deadSet()

	info.Paths = a.pathsWithSizes(dead)
	if len(info.Paths) > 0 {
		info.HasSizes = true
	} else {
		info.Paths = a.pathsWithoutSizes(dead)
	}

	sort.Slice(info.Paths, func(i, j int) bool { return info.Paths[i].Size > info.Paths[j].Size })

	info.TotalPaths = len(info.Paths)
	for _, p := range info.Paths {
		if p.Dead {
			info.DeadPaths++
			info.DeadSize += p.Size
		} else {
			info.LivePaths++
			info.LiveSize += p.Size
		}
	}
	info.TotalSize = info.LiveSize + info.DeadSize

	return info
}

// diskUsage queries df for one path. Nil when unavailable.
func (a *Accountant) diskUsage(path string) *DiskUsage {
	res, ok := a.runner.Run("df",
		[]string{"-B1", "--output=source,target,size,used,avail,pcent", path}, diskUsageTimeout)
	if !ok || !res.Success {
		return nil
	}
	return parseDiskUsage(res.Stdout)
}

// parseDiskUsage reads the first data line of df output.
func parseDiskUsage(output string) *DiskUsage {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < 2 {
		return nil
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 6 {
		return nil
	}

	total, _ := strconv.ParseInt(fields[2], 10, 64)
	used, _ := strconv.ParseInt(fields[3], 10, 64)
	avail, _ := strconv.ParseInt(fields[4], 10, 64)
	percent, _ := strconv.ParseFloat(strings.TrimSuffix(fields[5], "%"), 64)

	return &DiskUsage{
		Filesystem: fields[0],
		MountPoint: fields[1],
		Total:      total,
		Used:       used,
		Available:  avail,
		Percent:    percent,
	}
}

// deadSet returns the reclaimable store paths. Empty on failure or
// timeout — never blocks the rest of the report.
func (a *Accountant) deadSet() map[string]bool {
	dead := make(map[string]bool)
	res, ok := a.runner.Run("nix-store", []string{"--gc", "--print-dead"}, deadSetTimeout)
	if !ok || !res.Success {
		return dead
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, storePathsPrefix) {
			dead[line] = true
		}
	}
	return dead
}

// pathsWithSizes lists every store path with its NAR size via
// `nix path-info --all -S`.
func (a *Accountant) pathsWithSizes(dead map[string]bool) []StorePath {
	res, ok := a.runner.Run("nix", []string{"path-info", "--all", "-S"}, sizedTimeout)
	if !ok || !res.Success {
		return nil
	}

	var paths []StorePath
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Format: /nix/store/hash-name   SIZE. Split from the right so
		// a path containing whitespace stays intact.
		idx := strings.LastIndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
		if idx < 0 {
			continue
		}
		path := strings.TrimSpace(line[:idx])
		if !strings.HasPrefix(path, storePathsPrefix) {
			continue
		}
		size, _ := strconv.ParseInt(strings.TrimSpace(line[idx:]), 10, 64)
		paths = append(paths, StorePath{
			Path: path,
			Name: pathName(path),
			Size: size,
			Dead: dead[path],
		})
	}
	return paths
}

// pathsWithoutSizes is the cheaper fallback listing via
// `nix-store -q --all`.
func (a *Accountant) pathsWithoutSizes(dead map[string]bool) []StorePath {
	res, ok := a.runner.Run("nix-store", []string{"-q", "--all"}, unsizedTimeout)
	if !ok || !res.Success {
		return nil
	}

	var paths []StorePath
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, storePathsPrefix) {
			continue
		}
		paths = append(paths, StorePath{
			Path: line,
			Name: pathName(line),
			Dead: dead[line],
		})
	}
	return paths
}

// pathName strips the store prefix and hash:
// /nix/store/abc...xyz-ripgrep-14.1.0 → ripgrep-14.1.0.
func pathName(path string) string {
	rest := strings.TrimPrefix(path, storePathsPrefix)
	if len(rest) > 33 && rest[32] == '-' {
		return rest[33:]
	}
	return path
}
