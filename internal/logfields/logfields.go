package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyStatus     = "status"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyBranch     = "branch"
	KeyTool       = "tool"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration renders d as fractional milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d) / float64(time.Millisecond))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
