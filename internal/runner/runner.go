// Package runner executes external build commands on behalf of stage handlers.
//
// Execute is synchronous from the caller's point of view: it streams the child's stdout line
// by line into the log while watching the run's cancel flag and pause gate. Cancellation
// interrupts the child's process group, escalates to a kill after a bounded wait and reports
// exit code 130. A closed pause gate stops the runner from consuming further output; the
// child itself is not signalled and keeps running until its pipe fills.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/buildpilot/internal/logfields"
)

const (
	// DefaultPollInterval bounds how long a pause or cancel can go unnoticed.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultKillTimeout is the grace period between interrupt and kill on cancel.
	DefaultKillTimeout = 5 * time.Second
	// DefaultDrainTimeout bounds reading leftover output after the child exits.
	DefaultDrainTimeout = 2 * time.Second

	ExitCancelled     = 130
	ExitLaunchFailure = 1

	CancelNotice = "Command cancelled by operator."
)

// Gate is the read side of the run-control state.
type Gate interface {
	Cancelled() bool
	Paused() bool
	CancelRequested() <-chan struct{}
	Resumed() <-chan struct{}
}

// Logger receives streamed output lines.
type Logger interface {
	Log(msg string)
}

// Result is the outcome of one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Cancelled is set only when run cancellation stopped the command. A child that exits
	// 130 on its own is an ordinary failure.
	Cancelled bool
}

// Success reports a zero exit code.
func (r Result) Success() bool { return r.ExitCode == 0 }

// DurationRecorder receives per-command timings; metrics.Recorder satisfies it.
type DurationRecorder interface {
	ObserveCommandDuration(command string, d time.Duration, exitCode int)
}

// Runner launches and supervises external commands.
type Runner struct {
	gate         Gate
	log          Logger
	recorder     DurationRecorder
	environ      func() []string
	workDir      string
	env          map[string]string
	pollInterval time.Duration
	killTimeout  time.Duration
	drainTimeout time.Duration
}

// Option customises a Runner.
type Option func(*Runner)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option { return func(r *Runner) { r.pollInterval = d } }

// WithKillTimeout overrides DefaultKillTimeout.
func WithKillTimeout(d time.Duration) Option { return func(r *Runner) { r.killTimeout = d } }

// WithWorkDir sets the directory used when a Command has no Dir.
func WithWorkDir(dir string) Option { return func(r *Runner) { r.workDir = dir } }

// WithEnv sets run-wide environment overrides; per-command overrides still win.
func WithEnv(env map[string]string) Option { return func(r *Runner) { r.env = env } }

// WithRecorder reports every command's duration and exit code to rec.
func WithRecorder(rec DurationRecorder) Option { return func(r *Runner) { r.recorder = rec } }

// New creates a runner bound to the run's control gate and log.
func New(gate Gate, log Logger, opts ...Option) *Runner {
	r := &Runner{
		gate:         gate,
		log:          log,
		environ:      baseEnviron,
		pollInterval: DefaultPollInterval,
		killTimeout:  DefaultKillTimeout,
		drainTimeout: DefaultDrainTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// LookPath reports whether tool resolves on PATH.
func LookPath(tool string) (string, bool) {
	p, err := exec.LookPath(tool)
	return p, err == nil
}

// Execute runs c to completion, cancellation or launch failure. It never returns an error:
// launch problems are reported as exit code 1 with the error text on stderr.
func (r *Runner) Execute(ctx context.Context, c Command) Result {
	start := time.Now()
	res := r.execute(ctx, c)
	if r.recorder != nil {
		r.recorder.ObserveCommandDuration(c.String(), time.Since(start), res.ExitCode)
	}
	return res
}

func (r *Runner) execute(ctx context.Context, c Command) Result {
	dir := c.Dir
	if dir == "" {
		dir = r.workDir
	}
	r.log.Log("$ " + c.String())
	slog.Debug("Running command", logfields.Command(c.String()), logfields.Path(dir))

	argv, err := c.argv()
	if err != nil {
		return r.launchFailure(c, err)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = mergeEnv(r.environ(), r.env, c.Env)
	configureProcess(cmd)

	// Plain os.Pipes (instead of StdoutPipe) let Wait run concurrently with our reads.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return r.launchFailure(c, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return r.launchFailure(c, err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	startErr := cmd.Start()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	defer func() { _ = stdoutR.Close() }()
	defer func() { _ = stderrR.Close() }()
	if startErr != nil {
		return r.launchFailure(c, startErr)
	}

	stop := make(chan struct{})
	defer close(stop)

	outLines := make(chan string)
	go streamLines(stdoutR, outLines, stop)
	errLines := make(chan []string, 1)
	go func() { errLines <- collectLines(stderrR) }()
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	var stdout []string
	for {
		if r.gate.Cancelled() || ctx.Err() != nil {
			return r.cancel(c, cmd, exited, stdout)
		}
		if r.gate.Paused() {
			// Output is left unread while paused; the child keeps running.
			select {
			case waitErr := <-exited:
				return r.complete(c, waitErr, stdout, outLines, errLines, stdoutR, stderrR)
			case <-r.gate.Resumed():
			case <-r.gate.CancelRequested():
			case <-ctx.Done():
			case <-ticker.C:
			}
			continue
		}
		select {
		case line, ok := <-outLines:
			if !ok {
				outLines = nil
				continue
			}
			stdout = append(stdout, line)
			r.log.Log(line)
		case waitErr := <-exited:
			return r.complete(c, waitErr, stdout, outLines, errLines, stdoutR, stderrR)
		case <-r.gate.CancelRequested():
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// complete drains output left in the pipes after the child exited. A cancel request cuts the
// drain short; the child's own exit code is kept.
func (r *Runner) complete(c Command, waitErr error, stdout []string, outLines <-chan string, errLines <-chan []string, pipes ...*os.File) Result {
	deadline := time.Now().Add(r.drainTimeout)
	for _, p := range pipes {
		// Unblocks readers if a grandchild still holds the write end open.
		_ = p.SetReadDeadline(deadline)
	}
	drainCtx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	for outLines != nil {
		select {
		case line, ok := <-outLines:
			if !ok {
				outLines = nil
				continue
			}
			stdout = append(stdout, line)
			r.log.Log(line)
		case <-drainCtx.Done():
			outLines = nil
		case <-r.gate.CancelRequested():
			outLines = nil
		}
	}

	var stderr []string
	select {
	case stderr = <-errLines:
	case <-drainCtx.Done():
	case <-r.gate.CancelRequested():
	}
	for _, line := range stderr {
		r.log.Log("[stderr] " + line)
	}

	code := exitStatus(waitErr)
	slog.Debug("Command finished", logfields.Command(c.String()), logfields.ExitCode(code))
	return Result{
		ExitCode: code,
		Stdout:   strings.Join(stdout, "\n"),
		Stderr:   strings.Join(stderr, "\n"),
	}
}

// cancel interrupts the child, escalating to a kill after killTimeout, and returns without
// waiting for the child's output to finish.
func (r *Runner) cancel(c Command, cmd *exec.Cmd, exited <-chan error, stdout []string) Result {
	r.log.Log("🛑 " + CancelNotice)
	slog.Info("Cancelling command", logfields.Command(c.String()))
	interruptProcess(cmd)

	timer := time.NewTimer(r.killTimeout)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		killProcess(cmd)
		slog.Warn("Command ignored interrupt; killed", logfields.Command(c.String()))
	}

	stdout = append(stdout, CancelNotice)
	return Result{
		ExitCode:  ExitCancelled,
		Stdout:    strings.Join(stdout, "\n"),
		Stderr:    CancelNotice,
		Cancelled: true,
	}
}

func (r *Runner) launchFailure(c Command, err error) Result {
	msg := fmt.Sprintf("Command execution failed: %v", err)
	r.log.Log("[ERROR] " + msg)
	slog.Warn("Command failed to launch", logfields.Command(c.String()), logfields.Error(err))
	return Result{ExitCode: ExitLaunchFailure, Stderr: msg}
}

// streamLines forwards each line of rd to out until EOF or stop.
func streamLines(rd io.Reader, out chan<- string, stop <-chan struct{}) {
	defer close(out)
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			select {
			case out <- strings.TrimRight(line, "\r\n"):
			case <-stop:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func collectLines(rd io.Reader) []string {
	var lines []string
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return lines
		}
	}
}
