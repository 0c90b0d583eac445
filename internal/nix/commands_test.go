package nix

import (
	"fmt"
	"testing"
)

func testPlanner(hasHomeManager, activateExists bool) *Planner {
	return &Planner{
		probe:  func(name string) bool { return hasHomeManager && name == "home-manager" },
		exists: func(string) bool { return activateExists },
	}
}

func systemSource() GenerationSource {
	return GenerationSource{Type: ProfileSystem, ProfilePath: "/nix/var/nix/profiles/system"}
}

func hmSource() GenerationSource {
	return GenerationSource{Type: ProfileHomeManager, ProfilePath: "/home/u/.local/state/home-manager/profiles/home-manager"}
}

func TestDeleteCommand_System(t *testing.T) {
	p := testPlanner(false, false)

	got := p.DeletePreview(systemSource(), []int{38})
	want := "sudo nix-env --delete-generations 38 --profile /nix/var/nix/profiles/system"
	if got != want {
		t.Errorf("DeletePreview = %q, want %q", got, want)
	}
}

func TestDeleteCommand_ExplicitIDsNeverARange(t *testing.T) {
	p := testPlanner(false, false)

	got := p.DeletePreview(systemSource(), []int{38, 37, 35})
	want := "sudo nix-env --delete-generations 38 37 35 --profile /nix/var/nix/profiles/system"
	if got != want {
		t.Errorf("DeletePreview = %q, want %q", got, want)
	}
}

func TestDeleteCommand_HomeManagerPrefersDedicatedTool(t *testing.T) {
	withTool := testPlanner(true, false).DeletePreview(hmSource(), []int{5, 6})
	if want := "home-manager remove-generations 5 6"; withTool != want {
		t.Errorf("with tool: %q, want %q", withTool, want)
	}

	withoutTool := testPlanner(false, false).DeletePreview(hmSource(), []int{5, 6})
	want := "nix-env --delete-generations 5 6 --profile /home/u/.local/state/home-manager/profiles/home-manager"
	if withoutTool != want {
		t.Errorf("without tool: %q, want %q", withoutTool, want)
	}
}

func TestRestoreCommand_SystemUsesElevatedActivationBinary(t *testing.T) {
	got := testPlanner(false, false).RestorePreview(systemSource(), 40)
	want := "sudo /nix/var/nix/profiles/system-40-link/bin/switch-to-configuration switch"
	if got != want {
		t.Errorf("RestorePreview = %q, want %q", got, want)
	}
}

func TestRestoreCommand_HomeManagerActivateScript(t *testing.T) {
	got := testPlanner(false, true).RestorePreview(hmSource(), 9)
	want := "/home/u/.local/state/home-manager/profiles/home-manager-9-link/activate"
	if got != want {
		t.Errorf("RestorePreview = %q, want %q", got, want)
	}
}

func TestRestoreCommand_HomeManagerFallsBackToNixEnv(t *testing.T) {
	got := testPlanner(false, false).RestorePreview(hmSource(), 9)
	want := "nix-env --switch-generation 9 --profile /home/u/.local/state/home-manager/profiles/home-manager"
	if got != want {
		t.Errorf("RestorePreview = %q, want %q", got, want)
	}
}

func TestDelete_DryRunMatchesPreviewExactly(t *testing.T) {
	p := testPlanner(false, false)
	src := systemSource()
	ids := []int{38}

	res := p.Delete(src, ids, true)
	if !res.Success {
		t.Fatalf("dry-run delete failed: %s", res.Message)
	}
	if res.Command != p.DeletePreview(src, ids) {
		t.Errorf("dry-run command %q != preview %q", res.Command, p.DeletePreview(src, ids))
	}
	if want := "Dry run: Would delete 1 generation(s)"; res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
}

func TestRestore_DryRunMatchesPreviewExactly(t *testing.T) {
	p := testPlanner(false, false)
	src := systemSource()

	res := p.Restore(src, 39, true)
	if !res.Success {
		t.Fatalf("dry-run restore failed: %s", res.Message)
	}
	if res.Command != p.RestorePreview(src, 39) {
		t.Errorf("dry-run command %q != preview %q", res.Command, p.RestorePreview(src, 39))
	}
	if want := "Dry run: Would execute restore to generation 39"; res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
}

func TestDelete_EmptyIDListIsNoOp(t *testing.T) {
	p := testPlanner(false, false)

	for _, dryRun := range []bool{true, false} {
		res := p.Delete(systemSource(), nil, dryRun)
		if !res.Success {
			t.Errorf("dryRun=%v: empty delete should be a no-op success, got %+v", dryRun, res)
		}
		if res.Command != "" {
			t.Errorf("dryRun=%v: no command should be built, got %q", dryRun, res.Command)
		}
	}
}

func TestRunMutation_FailureMessagePreference(t *testing.T) {
	// sh -c lets the test control exactly what lands on each stream.
	cases := []struct {
		script string
		want   string
	}{
		{"echo out; echo err >&2; exit 1", "err"},
		{"echo out; exit 1", "out"},
		{"exit 3", "command failed with exit code: 3"},
	}
	for _, c := range cases {
		res := runMutation("sh", []string{"-c", c.script}, "did it", "do it")
		if res.Success {
			t.Errorf("script %q reported success", c.script)
			continue
		}
		want := fmt.Sprintf("Failed to do it: %s", c.want)
		if res.Message != want {
			t.Errorf("script %q: Message = %q, want %q", c.script, res.Message, want)
		}
	}
}

func TestRunMutation_Success(t *testing.T) {
	res := runMutation("true", nil, "did it", "do it")
	if !res.Success || res.Message != "Successfully did it" {
		t.Errorf("runMutation(true) = %+v", res)
	}
}
