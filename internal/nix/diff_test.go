package nix

import "testing"

func pkg(name, version string) Package {
	return Package{Name: name, Version: version}
}

func names(pkgs []Package) map[string]bool {
	set := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		set[p.Name] = true
	}
	return set
}

func TestDiff_AddedRemovedUpdated(t *testing.T) {
	oldPkgs := []Package{pkg("firefox", "120"), pkg("vim", "9.0"), pkg("git", "2.42")}
	newPkgs := []Package{pkg("firefox", "121"), pkg("git", "2.42"), pkg("ripgrep", "14")}

	diff := Diff(oldPkgs, newPkgs)

	if len(diff.Added) != 1 || diff.Added[0].Name != "ripgrep" {
		t.Errorf("Added = %+v, want [ripgrep]", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Name != "vim" {
		t.Errorf("Removed = %+v, want [vim]", diff.Removed)
	}
	if len(diff.Updated) != 1 {
		t.Fatalf("Updated = %+v, want one entry", diff.Updated)
	}
	up := diff.Updated[0]
	if up.Name != "firefox" || up.OldVersion != "120" || up.NewVersion != "121" {
		t.Errorf("Updated[0] = %+v", up)
	}
}

func TestDiff_SymmetricAddedRemoved(t *testing.T) {
	a := []Package{pkg("a", "1"), pkg("b", "2"), pkg("c", "3")}
	b := []Package{pkg("b", "2"), pkg("d", "4"), pkg("e", "5")}

	ab := Diff(a, b)
	ba := Diff(b, a)

	added := names(ab.Added)
	removed := names(ba.Removed)
	if len(added) != len(removed) {
		t.Fatalf("|diff(a,b).Added| = %d, |diff(b,a).Removed| = %d", len(added), len(removed))
	}
	for name := range added {
		if !removed[name] {
			t.Errorf("%s in diff(a,b).Added but not in diff(b,a).Removed", name)
		}
	}
}

func TestDiff_SelfIsEmpty(t *testing.T) {
	a := []Package{pkg("a", "1"), pkg("b", "2")}
	diff := Diff(a, a)
	if !diff.Empty() {
		t.Errorf("Diff(a,a) = %+v, want empty", diff)
	}
}

func TestDiff_VersionComparisonIsByteWise(t *testing.T) {
	// "1.0" vs "1.0.0" differ as bytes even if semantically equal.
	diff := Diff([]Package{pkg("x", "1.0")}, []Package{pkg("x", "1.0.0")})
	if len(diff.Updated) != 1 {
		t.Fatalf("Updated = %+v, want one entry", diff.Updated)
	}
}

func TestDiff_KernelAndSecurityFlags(t *testing.T) {
	oldPkgs := []Package{pkg("linux-firmware", "23"), pkg("openssl", "3.0.1"), pkg("htop", "3.2")}
	newPkgs := []Package{pkg("linux-firmware", "24"), pkg("openssl", "3.0.2"), pkg("htop", "3.3")}

	diff := Diff(oldPkgs, newPkgs)
	if len(diff.Updated) != 3 {
		t.Fatalf("Updated has %d entries, want 3", len(diff.Updated))
	}
	byName := make(map[string]PackageUpdate)
	for _, u := range diff.Updated {
		byName[u.Name] = u
	}

	if !byName["linux-firmware"].Kernel {
		t.Error("linux-firmware not flagged as kernel")
	}
	if !byName["openssl"].Security {
		t.Error("openssl not flagged as security")
	}
	if u := byName["htop"]; u.Kernel || u.Security {
		t.Errorf("htop flagged unexpectedly: %+v", u)
	}
}

func TestDiff_OutputOrder(t *testing.T) {
	oldPkgs := []Package{pkg("z", "1"), pkg("m", "1"), pkg("a", "1")}
	newPkgs := []Package{pkg("q", "1"), pkg("b", "1")}

	diff := Diff(oldPkgs, newPkgs)

	// Added preserves new-list order, Removed preserves old-list order.
	if diff.Added[0].Name != "q" || diff.Added[1].Name != "b" {
		t.Errorf("Added order = %+v", diff.Added)
	}
	if diff.Removed[0].Name != "z" || diff.Removed[1].Name != "m" || diff.Removed[2].Name != "a" {
		t.Errorf("Removed order = %+v", diff.Removed)
	}
}

func TestIsSecurityPackage(t *testing.T) {
	for _, name := range []string{"openssh", "ca-certificates", "pam", "curl-8.4"} {
		if !IsSecurityPackage(name) {
			t.Errorf("IsSecurityPackage(%q) = false", name)
		}
	}
	for _, name := range []string{"firefox", "htop"} {
		if IsSecurityPackage(name) {
			t.Errorf("IsSecurityPackage(%q) = true", name)
		}
	}
}
