package nix

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const packagesTimeout = 30 * time.Second

// storePathHashLen is the length of the base-32 hash prefix in a store
// path component ("/nix/store/<hash>-name-version").
const storePathHashLen = 32

// Packages extracts the package list of a generation. It prefers the
// recursive `nix path-info` query (which carries sizes), then falls
// back to reading sw/bin symlink targets, then the profile manifest.
// An empty list is a valid result.
func (d *Discoverer) Packages(genPath string) []Package {
	if pkgs := d.packagesFromPathInfo(genPath); len(pkgs) > 0 {
		return pkgs
	}
	return packagesFromProfile(genPath)
}

func (d *Discoverer) packagesFromPathInfo(genPath string) []Package {
	res, ok := d.runner.Run("nix",
		[]string{"path-info", "-r", "-s", "--json", genPath}, packagesTimeout)
	if !ok || !res.Success {
		return nil
	}
	return parsePathInfoJSON(res.Stdout)
}

// parsePathInfoJSON decodes `nix path-info --json` output: an object
// keyed by store path with a narSize per entry. Duplicate package
// names keep the larger size (one entry per name after dedup).
func parsePathInfoJSON(data string) []Package {
	var raw map[string]struct {
		NarSize int64 `json:"narSize"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil
	}

	index := make(map[string]int)
	var pkgs []Package
	for path, info := range raw {
		name, version, ok := SplitStorePath(path)
		if !ok || skipPackage(name) {
			continue
		}
		if i, seen := index[name]; seen {
			if pkgs[i].Size < info.NarSize {
				pkgs[i] = Package{Name: name, Version: version, Size: info.NarSize}
			}
			continue
		}
		index[name] = len(pkgs)
		pkgs = append(pkgs, Package{Name: name, Version: version, Size: info.NarSize})
	}

	sortPackages(pkgs)
	return pkgs
}

// packagesFromProfile lists packages without sizes by reading the
// generation's own tree: the manifest if present, else the symlink
// targets under sw/bin.
func packagesFromProfile(genPath string) []Package {
	swPath := filepath.Join(genPath, "sw")

	if manifest := filepath.Join(swPath, "manifest.nix"); fileExists(manifest) {
		return parseManifest(manifest)
	}

	binPath := filepath.Join(swPath, "bin")
	entries, err := os.ReadDir(binPath)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var pkgs []Package
	for _, entry := range entries {
		target, err := os.Readlink(filepath.Join(binPath, entry.Name()))
		if err != nil {
			continue
		}
		name, version, ok := SplitStorePath(target)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		pkgs = append(pkgs, Package{Name: name, Version: version})
	}

	sortPackages(pkgs)
	return pkgs
}

// parseManifest extracts package names from a nix-env manifest file
// by scanning its `name = "...";` attributes.
func parseManifest(path string) []Package {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var pkgs []Package
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, `name = "`)
		if !ok {
			continue
		}
		full := strings.TrimSuffix(rest, `";`)
		if skipPackage(full) {
			continue
		}
		name, version := splitNameVersion(full)
		pkgs = append(pkgs, Package{Name: name, Version: version})
	}

	sortPackages(pkgs)
	return pkgs
}

// SplitStorePath splits a store path into package name and version.
// "/nix/store/<32-char hash>-ripgrep-14.1.0" yields ("ripgrep",
// "14.1.0", true). Paths without the hash prefix are rejected.
func SplitStorePath(path string) (name, version string, ok bool) {
	base := filepath.Base(path)
	if len(base) <= storePathHashLen+1 || base[storePathHashLen] != '-' {
		return "", "", false
	}
	name, version = splitNameVersion(base[storePathHashLen+1:])
	return name, version, true
}

// splitNameVersion splits "name-1.2.3" at the last dash followed by a
// digit. Entries without a version part keep the whole string as name.
func splitNameVersion(s string) (string, string) {
	for i := len(s) - 1; i > 0; i-- {
		if s[i-1] == '-' && s[i] >= '0' && s[i] <= '9' {
			return s[:i-1], s[i:]
		}
	}
	return s, ""
}

// skipPackage filters out build-machinery store entries that are not
// user-meaningful packages. Advisory heuristics, shared with the Rust
// tooling this layout comes from.
func skipPackage(name string) bool {
	prefixes := []string{
		"bootstrap-", "hook-", "wrap-", "setup-", "stdenv-", "builder-",
		"source-", "raw-", "manifest", "env-manifest", "nix-support",
		"nixos-system-",
	}
	suffixes := []string{"-info", "-man", "-doc", "-dev", "-debug", ".drv"}
	exact := []string{"source", "builder", "hook", "wrapper"}

	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	for _, e := range exact {
		if name == e {
			return true
		}
	}
	return false
}

func sortPackages(pkgs []Package) {
	sort.Slice(pkgs, func(i, j int) bool {
		return strings.ToLower(pkgs[i].Name) < strings.ToLower(pkgs[j].Name)
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
