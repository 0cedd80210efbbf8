package runner

import (
	"context"
	"fmt"
	"strings"
)

// ExitError describes a command that finished unsuccessfully.
type ExitError struct {
	Command   string
	Code      int
	Stderr    string
	Cancelled bool
}

func (e *ExitError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("%s: cancelled by operator", e.Command)
	}
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Unwrap reports a cancelled command as context.Canceled.
func (e *ExitError) Unwrap() error {
	if e.Cancelled {
		return context.Canceled
	}
	return nil
}

// Err converts a non-successful Result into an *ExitError.
func (r Result) Err(c Command) error {
	if r.Success() {
		return nil
	}
	return &ExitError{Command: c.String(), Code: r.ExitCode, Stderr: r.Stderr, Cancelled: r.Cancelled}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
