package nix

import "strings"

// kernelPrefix marks kernel packages by name. Advisory only.
const kernelPrefix = "linux-"

// securityMarkers flags packages whose name suggests security
// relevance. A fixed heuristic table, not a guaranteed classification.
var securityMarkers = []string{
	"openssl", "openssh", "gnupg", "gpg", "sudo", "polkit",
	"pam", "shadow", "nss", "ca-certificates", "curl", "wget",
}

// Diff compares two package lists by name. Added entries are present
// only in newPkgs, removed only in oldPkgs, and updated entries share
// a name but differ in version (byte-wise, no semantic comparison).
//
// Output order: Added follows newPkgs order, Removed follows oldPkgs
// order, Updated follows newPkgs order.
func Diff(oldPkgs, newPkgs []Package) GenerationDiff {
	oldByName := make(map[string]Package, len(oldPkgs))
	for _, p := range oldPkgs {
		oldByName[p.Name] = p
	}
	newNames := make(map[string]bool, len(newPkgs))
	for _, p := range newPkgs {
		newNames[p.Name] = true
	}

	var diff GenerationDiff
	for _, p := range newPkgs {
		old, existed := oldByName[p.Name]
		if !existed {
			diff.Added = append(diff.Added, p)
			continue
		}
		if old.Version != p.Version {
			diff.Updated = append(diff.Updated, PackageUpdate{
				Name:       p.Name,
				OldVersion: old.Version,
				NewVersion: p.Version,
				Kernel:     IsKernelPackage(p.Name),
				Security:   IsSecurityPackage(p.Name),
			})
		}
	}
	for _, p := range oldPkgs {
		if !newNames[p.Name] {
			diff.Removed = append(diff.Removed, p)
		}
	}

	return diff
}

// IsKernelPackage reports whether a package name looks like a kernel
// package.
func IsKernelPackage(name string) bool {
	return strings.HasPrefix(name, kernelPrefix)
}

// IsSecurityPackage reports whether a package name contains any known
// security-relevant marker.
func IsSecurityPackage(name string) bool {
	for _, marker := range securityMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
