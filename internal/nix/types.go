// Package nix wraps the external Nix tooling and filesystem layout:
// generation discovery, package extraction, diffing, and the restore
// and delete command builders.
//
// Nothing in this package is fatal. External tools may be missing,
// time out, or print garbage; every query degrades to an empty or
// zero value and the caller always gets something usable back.
package nix

import "time"

// ProfileType identifies which kind of profile a generation belongs to.
type ProfileType int

const (
	// ProfileSystem is the NixOS system profile.
	ProfileSystem ProfileType = iota
	// ProfileHomeManager is a per-user Home-Manager profile.
	ProfileHomeManager
)

// String returns the display name of the profile type.
func (t ProfileType) String() string {
	switch t {
	case ProfileSystem:
		return "System"
	case ProfileHomeManager:
		return "Home-Manager"
	default:
		return "Unknown"
	}
}

// linkPrefix is the generation symlink prefix for this profile type,
// e.g. "system-" for /nix/var/nix/profiles/system-142-link.
func (t ProfileType) linkPrefix() string {
	if t == ProfileHomeManager {
		return "home-manager-"
	}
	return "system-"
}

// GenerationSource identifies where to look for generations: a profile
// symlink path plus its type. Immutable once constructed.
type GenerationSource struct {
	Type        ProfileType
	ProfilePath string
}

// Generation is a numbered, immutable snapshot of a profile.
//
// Pinned and InBootloader are overlays applied after discovery: Pinned
// comes from nixmate's own pin store, InBootloader from scanning the
// boot loader configuration. Everything else is fixed at discovery.
type Generation struct {
	ID           int
	Date         time.Time
	Current      bool
	Version      string // empty if unknown
	Kernel       string // system profiles only, empty if unknown
	PackageCount int
	ClosureSize  int64 // bytes, 0 if unknown
	StorePath    string
	Pinned       bool
	InBootloader bool
}

// Package is a single package inside a generation. Identity is the
// name; a Size of 0 means unknown, not empty.
type Package struct {
	Name    string
	Version string
	Size    int64
}

// PackageUpdate is a package whose version differs between two
// generations. Kernel and Security are advisory name-pattern
// classifications, not verified facts.
type PackageUpdate struct {
	Name       string
	OldVersion string
	NewVersion string
	Kernel     bool
	Security   bool
}

// GenerationDiff is the result of comparing the package sets of two
// generations of the same source. Computed, never persisted.
type GenerationDiff struct {
	Added   []Package
	Removed []Package
	Updated []PackageUpdate
}

// Empty reports whether the diff contains no changes at all.
func (d GenerationDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}
