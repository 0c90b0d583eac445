package nix

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitStorePath(t *testing.T) {
	hash := "abcdefghijklmnopqrstuvwxyz012345" // 32 chars

	cases := []struct {
		path    string
		name    string
		version string
		ok      bool
	}{
		{"/nix/store/" + hash + "-ripgrep-14.1.0", "ripgrep", "14.1.0", true},
		{"/nix/store/" + hash + "-gcc-wrapper-13.2.0", "gcc-wrapper", "13.2.0", true},
		{"/nix/store/" + hash + "-hello", "hello", "", true},
		{"/nix/store/short-name", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		name, version, ok := SplitStorePath(c.path)
		if name != c.name || version != c.version || ok != c.ok {
			t.Errorf("SplitStorePath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.path, name, version, ok, c.name, c.version, c.ok)
		}
	}
}

func TestParsePathInfoJSON_DedupKeepsLargerSize(t *testing.T) {
	hashA := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	data := `{
		"/nix/store/` + hashA + `-ripgrep-14.1.0": {"narSize": 100},
		"/nix/store/` + hashB + `-ripgrep-14.1.0": {"narSize": 5000},
		"/nix/store/` + hashA + `-stdenv-linux": {"narSize": 10}
	}`

	pkgs := parsePathInfoJSON(data)
	if len(pkgs) != 1 {
		t.Fatalf("parsed %d packages, want 1 (dedup + skip list): %+v", len(pkgs), pkgs)
	}
	if pkgs[0].Name != "ripgrep" || pkgs[0].Size != 5000 {
		t.Errorf("pkgs[0] = %+v, want ripgrep with the larger size", pkgs[0])
	}
}

func TestParsePathInfoJSON_Garbage(t *testing.T) {
	if pkgs := parsePathInfoJSON("error: path info unavailable"); pkgs != nil {
		t.Errorf("garbage input produced %+v, want nil", pkgs)
	}
}

func TestSkipPackage(t *testing.T) {
	skipped := []string{
		"bootstrap-tools", "stdenv-linux", "hook-audit", "source",
		"glibc-dev", "man-db-man", "foo.drv", "nixos-system-myhost",
	}
	for _, name := range skipped {
		if !skipPackage(name) {
			t.Errorf("skipPackage(%q) = false, want true", name)
		}
	}
	kept := []string{"ripgrep", "firefox", "devenv", "openssl"}
	for _, name := range kept {
		if skipPackage(name) {
			t.Errorf("skipPackage(%q) = true, want false", name)
		}
	}
}

func TestPackages_SwBinFallback(t *testing.T) {
	hash := "cccccccccccccccccccccccccccccccc"
	gen := t.TempDir()
	bin := filepath.Join(gen, "sw/bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}

	links := map[string]string{
		"rg":  "/nix/store/" + hash + "-ripgrep-14.1.0/bin/rg",
		"vim": "/nix/store/" + hash + "-vim-9.0/bin/vim",
		// Second binary of the same package: must not duplicate.
		"vimdiff": "/nix/store/" + hash + "-vim-9.0/bin/vimdiff",
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(bin, name)); err != nil {
			t.Fatal(err)
		}
	}

	d := NewDiscoverer(failingRunner{})
	pkgs := d.Packages(gen)
	if len(pkgs) != 2 {
		t.Fatalf("Packages() = %+v, want ripgrep and vim", pkgs)
	}
	// Case-insensitive name sort puts ripgrep first.
	if pkgs[0].Name != "ripgrep" || pkgs[1].Name != "vim" {
		t.Errorf("order = [%s %s], want [ripgrep vim]", pkgs[0].Name, pkgs[1].Name)
	}
	if pkgs[0].Size != 0 {
		t.Errorf("sw/bin fallback should report unknown sizes, got %d", pkgs[0].Size)
	}
}

func TestPackages_ManifestFallback(t *testing.T) {
	gen := t.TempDir()
	sw := filepath.Join(gen, "sw")
	if err := os.MkdirAll(sw, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `[ {
  name = "ripgrep-14.1.0";
  name = "stdenv-linux";
  name = "htop-3.2.2";
} ]`
	if err := os.WriteFile(filepath.Join(sw, "manifest.nix"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDiscoverer(failingRunner{})
	pkgs := d.Packages(gen)
	if len(pkgs) != 2 {
		t.Fatalf("Packages() = %+v, want htop and ripgrep", pkgs)
	}
	if pkgs[0].Name != "htop" || pkgs[0].Version != "3.2.2" {
		t.Errorf("pkgs[0] = %+v", pkgs[0])
	}
}

func TestPackages_NothingAvailable(t *testing.T) {
	d := NewDiscoverer(failingRunner{})
	if pkgs := d.Packages(filepath.Join(t.TempDir(), "missing")); len(pkgs) != 0 {
		t.Errorf("Packages() = %+v, want empty", pkgs)
	}
}
