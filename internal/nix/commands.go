package nix

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CommandResult is the outcome of a restore or delete. Command always
// carries the exact invocation text, whether it ran or was previewed.
type CommandResult struct {
	Success bool
	Message string
	Command string
}

// Planner builds and executes the restore and delete invocations.
// The previewed and executed command text are always byte-identical:
// both come from the same builder.
type Planner struct {
	// probe checks whether an optional companion tool exists on PATH.
	probe func(string) bool
	// exists checks a path on disk; overridable for tests.
	exists func(string) bool
}

// NewPlanner returns a Planner probing the real system.
func NewPlanner() *Planner {
	return &Planner{probe: CommandExists, exists: fileExists}
}

// RestorePreview returns the command text a restore would execute.
func (p *Planner) RestorePreview(source GenerationSource, id int) string {
	name, args := p.restoreCommand(source, id)
	return commandString(name, args)
}

// DeletePreview returns the command text a delete would execute.
func (p *Planner) DeletePreview(source GenerationSource, ids []int) string {
	name, args := p.deleteCommand(source, ids)
	return commandString(name, args)
}

// Restore switches the profile to the given generation. With dryRun
// set, nothing runs and the result carries the would-be command.
func (p *Planner) Restore(source GenerationSource, id int, dryRun bool) CommandResult {
	name, args := p.restoreCommand(source, id)
	command := commandString(name, args)

	if dryRun {
		return CommandResult{
			Success: true,
			Message: fmt.Sprintf("Dry run: Would execute restore to generation %d", id),
			Command: command,
		}
	}

	return runMutation(name, args,
		fmt.Sprintf("restored generation %d", id),
		fmt.Sprintf("restore generation %d", id))
}

// Delete removes exactly the given generation ids from the profile.
// An empty id list is a no-op success with no command executed.
func (p *Planner) Delete(source GenerationSource, ids []int, dryRun bool) CommandResult {
	if len(ids) == 0 {
		return CommandResult{Success: true, Message: "No generations specified for deletion"}
	}

	name, args := p.deleteCommand(source, ids)
	command := commandString(name, args)

	if dryRun {
		return CommandResult{
			Success: true,
			Message: fmt.Sprintf("Dry run: Would delete %d generation(s)", len(ids)),
			Command: command,
		}
	}

	return runMutation(name, args,
		fmt.Sprintf("deleted %d generation(s)", len(ids)),
		fmt.Sprintf("delete %d generation(s)", len(ids)))
}

// restoreCommand builds the profile-switch invocation.
//
// System profiles run the generation's own activation binary under the
// elevation wrapper. Home-Manager generations run their activate
// script when present, else fall back to nix-env's generic switch.
func (p *Planner) restoreCommand(source GenerationSource, id int) (string, []string) {
	genPath := generationLinkPath(source, id)

	if source.Type == ProfileSystem {
		return "sudo", []string{filepath.Join(genPath, "bin/switch-to-configuration"), "switch"}
	}

	activate := filepath.Join(genPath, "activate")
	if p.exists(activate) {
		return activate, nil
	}
	return "nix-env", []string{
		"--switch-generation", strconv.Itoa(id),
		"--profile", source.ProfilePath,
	}
}

// deleteCommand builds the generation-removal invocation. Ids are
// always passed explicitly, never as a range or "old".
func (p *Planner) deleteCommand(source GenerationSource, ids []int) (string, []string) {
	idArgs := make([]string, len(ids))
	for i, id := range ids {
		idArgs[i] = strconv.Itoa(id)
	}

	if source.Type == ProfileSystem {
		args := append([]string{"nix-env", "--delete-generations"}, idArgs...)
		args = append(args, "--profile", source.ProfilePath)
		return "sudo", args
	}

	if p.probe("home-manager") {
		return "home-manager", append([]string{"remove-generations"}, idArgs...)
	}
	args := append([]string{"--delete-generations"}, idArgs...)
	args = append(args, "--profile", source.ProfilePath)
	return "nix-env", args
}

func commandString(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// runMutation executes a built command synchronously. Mutations are
// short, rare, and user-confirmed, so they run without a timeout and
// inherit stdin for the elevation wrapper's password prompt. Failures
// surface the trimmed stderr, else stdout, else the exit code.
func runMutation(name string, args []string, okDesc, failDesc string) CommandResult {
	command := commandString(name, args)

	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return CommandResult{
			Success: true,
			Message: "Successfully " + okDesc,
			Command: command,
		}
	}

	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = strings.TrimSpace(stdout.String())
	}
	if detail == "" {
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = fmt.Sprintf("command failed with exit code: %d", exitErr.ExitCode())
		} else {
			detail = err.Error()
		}
	}
	return CommandResult{
		Success: false,
		Message: fmt.Sprintf("Failed to %s: %s", failDesc, detail),
		Command: command,
	}
}
