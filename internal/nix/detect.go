package nix

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SystemProfilePath is the well-known NixOS system profile symlink.
const SystemProfilePath = "/nix/var/nix/profiles/system"

// SystemInfo describes the detected host: who we are, whether the
// configuration uses flakes, and where the profiles live.
type SystemInfo struct {
	Hostname      string
	Username      string
	UsesFlakes    bool
	SystemProfile string
	HomeManager   *HomeManagerInfo
}

// HomeManagerInfo points at a detected Home-Manager profile directory.
type HomeManagerInfo struct {
	ProfilePath string
	Standalone  bool
}

// SystemSource returns the generation source for the system profile.
func (s SystemInfo) SystemSource() GenerationSource {
	return GenerationSource{Type: ProfileSystem, ProfilePath: s.SystemProfile}
}

// HomeManagerSource returns the generation source for the Home-Manager
// profile, or false if none was detected.
func (s SystemInfo) HomeManagerSource() (GenerationSource, bool) {
	if s.HomeManager == nil {
		return GenerationSource{}, false
	}
	return GenerationSource{
		Type: ProfileHomeManager,
		// Discovery scans the parent directory for *-link entries, so
		// the source points at the profile symlink inside it.
		ProfilePath: filepath.Join(s.HomeManager.ProfilePath, "home-manager"),
	}, true
}

// Detect inspects the running system. It always succeeds: anything it
// cannot determine falls back to a sensible default.
func Detect() SystemInfo {
	return SystemInfo{
		Hostname:      hostname(),
		Username:      username(),
		UsesFlakes:    detectFlakes(),
		SystemProfile: SystemProfilePath,
		HomeManager:   detectHomeManager(username()),
	}
}

func hostname() string {
	if data, err := os.ReadFile("/etc/hostname"); err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			return name
		}
	}
	if out, err := exec.Command("hostname").Output(); err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}
	return "unknown"
}

func username() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if user := os.Getenv("LOGNAME"); user != "" {
		return user
	}
	return "unknown"
}

func detectFlakes() bool {
	home := os.Getenv("HOME")
	candidates := []string{
		"/etc/nixos/flake.nix",
		filepath.Join(home, ".config/nixos/flake.nix"),
		filepath.Join(home, "nixos/flake.nix"),
		filepath.Join(home, ".nixos/flake.nix"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// detectHomeManager probes the known Home-Manager installation layouts
// in order: standalone XDG state dir, NixOS-module per-user profile,
// and the legacy ~/.nix-profile arrangement.
func detectHomeManager(user string) *HomeManagerInfo {
	home := os.Getenv("HOME")
	if home == "" {
		return nil
	}

	standalone := filepath.Join(home, ".local/state/home-manager/profiles")
	if hasGenerationLinks(standalone) {
		return &HomeManagerInfo{ProfilePath: standalone, Standalone: true}
	}

	module := filepath.Join("/nix/var/nix/profiles/per-user", user, "home-manager")
	if _, err := os.Lstat(module); err == nil {
		return &HomeManagerInfo{ProfilePath: filepath.Dir(module)}
	}

	if _, err := os.Stat(filepath.Join(home, ".nix-profile")); err == nil {
		alt := filepath.Join(home, ".local/state/nix/profiles/home-manager")
		if _, err := os.Stat(alt); err == nil {
			return &HomeManagerInfo{ProfilePath: filepath.Dir(alt), Standalone: true}
		}
	}

	return nil
}

func hasGenerationLinks(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "home-manager-") && strings.HasSuffix(name, "-link") {
			return true
		}
	}
	return false
}
