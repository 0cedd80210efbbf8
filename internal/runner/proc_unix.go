//go:build !windows

package runner

import (
	"errors"
	"os/exec"
	"syscall"
)

func shellArgv(script string) []string { return []string{"sh", "-c", script} }

// configureProcess puts the child in its own process group so signals reach the shell and
// everything it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return
	}
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		// Negative PGID targets the full process group.
		_ = syscall.Kill(-pgid, sig)
		return
	}
	_ = cmd.Process.Signal(sig)
}

// interruptProcess asks the process group to stop.
func interruptProcess(cmd *exec.Cmd) { signalGroup(cmd, syscall.SIGTERM) }

// killProcess force-kills the process group.
func killProcess(cmd *exec.Cmd) { signalGroup(cmd, syscall.SIGKILL) }

// exitStatus maps a Wait error to a shell-style exit code.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
