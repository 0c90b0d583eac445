package nix

import (
	"bytes"
	"os/exec"
	"time"
)

// Result holds the captured output of a finished external command.
type Result struct {
	Stdout   string
	Stderr   string
	Success  bool
	ExitCode int
}

// Runner executes external commands with a hard wall-clock timeout.
// It is the only place in nixmate where an external process may block,
// and even here the block is bounded: on expiry the child is killed
// and reaped, and the caller gets ok=false.
//
// ok=false means "no result" — the command could not be started or did
// not finish in time. It is data-unavailable, never an error: callers
// fall back or degrade the affected field. A non-zero exit is a real
// result and comes back with ok=true and Success=false.
type Runner interface {
	Run(name string, args []string, timeout time.Duration) (Result, bool)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(name string, args []string, timeout time.Duration) (Result, bool) {
	cmd := exec.Command(name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{}, false
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		res := Result{
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
			Success: err == nil,
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		}
		return res, true
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-done // reap
		return Result{}, false
	}
}

// CommandExists reports whether a command can be found on PATH.
// Used to probe for optional companion tools like home-manager.
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
