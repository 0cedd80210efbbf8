//go:build windows

package runner

import (
	"errors"
	"os/exec"
)

func shellArgv(script string) []string { return []string{"cmd", "/C", script} }

func configureProcess(cmd *exec.Cmd) {}

// interruptProcess has no graceful equivalent on Windows.
func interruptProcess(cmd *exec.Cmd) { killProcess(cmd) }

func killProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
