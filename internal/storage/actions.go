package storage

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GCResult summarizes a garbage-collection run.
type GCResult struct {
	PathsRemoved int
	BytesFreed   int64
	Output       string
}

// OptimiseResult summarizes a store-optimise run.
type OptimiseResult struct {
	BytesSaved int64
	Output     string
}

// GarbageCollect removes dead store paths via nix-collect-garbage.
// Runs without a timeout: GC is long-running and user-confirmed.
func (a *Accountant) GarbageCollect() (GCResult, error) {
	return a.runGC("nix-collect-garbage")
}

// FullClean runs nix-collect-garbage -d under the elevation wrapper,
// deleting old generations as well as dead paths.
func (a *Accountant) FullClean() (GCResult, error) {
	return a.runGC("sudo", "nix-collect-garbage", "-d")
}

func (a *Accountant) runGC(name string, args ...string) (GCResult, error) {
	out, err := combinedOutput(name, args...)
	if err != nil {
		return GCResult{}, fmt.Errorf("failed to run %s: %w", name, err)
	}

	removed, freed := parseGCOutput(out)
	return GCResult{PathsRemoved: removed, BytesFreed: freed, Output: out}, nil
}

// Optimise deduplicates identical store files via hard links.
func (a *Accountant) Optimise() (OptimiseResult, error) {
	out, err := combinedOutput("nix", "store", "optimise")
	if err != nil {
		return OptimiseResult{}, fmt.Errorf("failed to run nix store optimise: %w", err)
	}
	return OptimiseResult{BytesSaved: parseOptimiseOutput(out), Output: out}, nil
}

// combinedOutput captures stderr then stdout: the Nix tools report
// their progress and summary lines on stderr.
func combinedOutput(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() == 0 && stdout.Len() == 0 {
			return "", err
		}
		// The tool ran and printed something; treat its output as the
		// result even on a non-zero exit (partial GCs do this).
	}
	return stderr.String() + stdout.String(), nil
}

// parseGCOutput extracts "N store paths deleted, X MiB freed".
func parseGCOutput(text string) (pathsRemoved int, bytesFreed int64) {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.ToLower(strings.TrimSpace(raw))

		if strings.Contains(line, "store paths deleted") || strings.Contains(line, "store path deleted") {
			if fields := strings.Fields(line); len(fields) > 0 {
				if n, err := strconv.Atoi(fields[0]); err == nil {
					pathsRemoved = n
				}
			}
		}

		if strings.Contains(line, "freed") {
			fields := strings.Fields(line)
			for i, field := range fields {
				if field != "freed" || i < 2 {
					continue
				}
				amount, err := strconv.ParseFloat(fields[i-2], 64)
				if err != nil {
					continue
				}
				bytesFreed = scaleUnit(amount, fields[i-1])
				break
			}
		}
	}
	return pathsRemoved, bytesFreed
}

// parseOptimiseOutput extracts "X MiB freed by hard-linking N files".
func parseOptimiseOutput(text string) int64 {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.ToLower(strings.TrimSpace(raw))
		if !strings.Contains(line, "freed") || !strings.Contains(line, "hard-linking") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		amount, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		return scaleUnit(amount, fields[1])
	}
	return 0
}

func scaleUnit(amount float64, unit string) int64 {
	switch strings.ToLower(unit) {
	case "b", "bytes":
		return int64(amount)
	case "kib":
		return int64(amount * 1024)
	case "mib":
		return int64(amount * 1024 * 1024)
	case "gib":
		return int64(amount * 1024 * 1024 * 1024)
	case "tib":
		return int64(amount * 1024 * 1024 * 1024 * 1024)
	default:
		return 0
	}
}
