package control

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// ControlsHint lists the operator commands.
const ControlsHint = "Controls: [s]tart, [p]ause, [r]esume, [c]ancel, [e]xport report, [h]elp"

// Logger is the subset of the log sink the listener writes to.
type Logger interface {
	Log(msg string)
}

// ReportFunc produces a diagnostic report and returns its path.
type ReportFunc func() (string, error)

// Command is a recognised operator command.
type Command string

const (
	CmdStart   Command = "start"
	CmdPause   Command = "pause"
	CmdResume  Command = "resume"
	CmdCancel  Command = "cancel"
	CmdReport  Command = "report"
	CmdHelp    Command = "help"
	CmdUnknown Command = ""
)

var commandAliases = map[string]Command{
	"start":  CmdStart,
	"s":      CmdStart,
	"pause":  CmdPause,
	"p":      CmdPause,
	"resume": CmdResume,
	"r":      CmdResume,
	"cancel": CmdCancel,
	"c":      CmdCancel,
	"stop":   CmdCancel,
	"report": CmdReport,
	"e":      CmdReport,
	"help":   CmdHelp,
	"h":      CmdHelp,
}

// ParseCommand lower-cases and trims input and maps it to a Command.
func ParseCommand(input string) Command {
	if c, ok := commandAliases[strings.ToLower(strings.TrimSpace(input))]; ok {
		return c
	}
	return CmdUnknown
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Listener reads operator commands and applies them to the shared State. It never touches
// stage state; everything it does is visible only through State and the log.
type Listener struct {
	state  *State
	log    Logger
	in     io.Reader
	report ReportFunc
}

// NewListener creates a listener reading from in. report may be nil, in which case the
// report command logs that reports are unavailable.
func NewListener(state *State, log Logger, in io.Reader, report ReportFunc) *Listener {
	return &Listener{state: state, log: log, in: in, report: report}
}

// Run processes commands until ctx is done (the run has ended) or the input reaches EOF, then
// logs a closing notice. A read that is blocked when ctx ends is abandoned; the reader
// goroutine exits with the process or on the next line.
func (l *Listener) Run(ctx context.Context) {
	l.log.Log(ControlsHint)

	lines := make(chan string)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Debug("Control input read failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.log.Log("ℹ Control interface closed.")
			return
		case <-readDone:
			l.log.Log("ℹ Control interface closed.")
			return
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			l.Handle(line)
		}
	}
}

// Handle applies a single input line.
func (l *Listener) Handle(input string) {
	token := strings.ToLower(strings.TrimSpace(input))
	switch ParseCommand(token) {
	case CmdStart:
		switch {
		case l.state.OpenStart():
			l.log.Log("▶ Start command received.")
		case l.state.Cancelled():
			l.log.Log("ℹ Build is cancelling; start ignored.")
		default:
			l.log.Log("ℹ Build already running.")
		}
	case CmdPause:
		switch {
		case l.state.Pause():
			l.log.Log("⏸ Build paused. Output processing is suspended until resume; a running command keeps running.")
		case l.state.Cancelled():
			l.log.Log("ℹ Build is cancelling; pause ignored.")
		default:
			l.log.Log("ℹ Build already paused.")
		}
	case CmdResume:
		switch {
		case l.state.Resume():
			l.log.Log("▶ Build resumed.")
		case l.state.Cancelled():
			l.log.Log("ℹ Build is cancelling; resume ignored.")
		default:
			l.log.Log("ℹ Build already running.")
		}
	case CmdCancel:
		if l.state.Cancel() {
			l.log.Log("🛑 Cancellation requested. Attempting graceful shutdown.")
		} else {
			l.log.Log("ℹ Cancellation already requested.")
		}
	case CmdReport:
		if l.report == nil {
			l.log.Log("⚠ Report generation is not available for this run.")
			return
		}
		path, err := l.report()
		if err != nil {
			l.log.Log("⚠ Failed to generate error report: " + err.Error())
			return
		}
		l.log.Log("📁 Error report saved to " + path)
	case CmdHelp:
		l.log.Log(ControlsHint)
	default:
		l.log.Log("⚠ Unknown command: " + token)
	}
}
