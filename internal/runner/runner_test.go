//go:build !windows

package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildpilot/internal/control"
)

type captureLog struct {
	mu    sync.Mutex
	lines []string
}

func (c *captureLog) Log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, msg)
}

func (c *captureLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *captureLog) contains(s string) bool {
	for _, l := range c.all() {
		if l == s {
			return true
		}
	}
	return false
}

func newRunner(opts ...Option) (*Runner, *control.State, *captureLog) {
	state := control.NewState()
	state.OpenStart()
	log := &captureLog{}
	return New(state, log, opts...), state, log
}

func TestExecuteStreamsStdout(t *testing.T) {
	r, _, log := newRunner()

	res := r.Execute(t.Context(), Shell("for i in 1 2 3 4 5; do echo line$i; done"))

	require.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Success())
	assert.Equal(t, "line1\nline2\nline3\nline4\nline5", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.NoError(t, res.Err(Shell("x")))

	lines := log.all()
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "$ for i in"))
	assert.Equal(t, []string{"line1", "line2", "line3", "line4", "line5"}, lines[1:])
}

func TestExecuteCapturesStderrAndExitCode(t *testing.T) {
	r, _, log := newRunner()

	cmd := Shell("echo out; echo boom >&2; exit 3")
	res := r.Execute(t.Context(), cmd)

	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "boom", res.Stderr)
	assert.True(t, log.contains("[stderr] boom"))

	err := res.Err(cmd)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, err.Error(), "exited with code 3: boom")
}

func TestExecuteLaunchFailure(t *testing.T) {
	r, _, log := newRunner()

	res := r.Execute(t.Context(), Exec("buildpilot-definitely-not-a-binary"))

	assert.Equal(t, ExitLaunchFailure, res.ExitCode)
	assert.Empty(t, res.Stdout)
	assert.Contains(t, res.Stderr, "Command execution failed")
	assert.True(t, strings.HasPrefix(log.all()[len(log.all())-1], "[ERROR] Command execution failed"))
}

func TestExecuteEmptyCommand(t *testing.T) {
	r, _, _ := newRunner()
	res := r.Execute(t.Context(), Command{})
	assert.Equal(t, ExitLaunchFailure, res.ExitCode)
	assert.Contains(t, res.Stderr, "empty command")
}

func TestExecuteAppliesWorkDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newRunner(WithWorkDir(dir), WithEnv(map[string]string{"BP_A": "run", "BP_B": "run"}))

	res := r.Execute(t.Context(), Shell(`pwd; echo "$BP_A-$BP_B"`).WithEnv(map[string]string{"BP_B": "cmd"}))

	require.Equal(t, 0, res.ExitCode, res.Stderr)
	lines := strings.Split(res.Stdout, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, filepath.Base(dir), filepath.Base(lines[0]))
	assert.Equal(t, "run-cmd", lines[1])
}

func TestExecuteCancelReturns130(t *testing.T) {
	r, state, log := newRunner()

	go func() {
		time.Sleep(200 * time.Millisecond)
		state.Cancel()
	}()

	start := time.Now()
	res := r.Execute(t.Context(), Shell("echo started; sleep 30"))

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, ExitCancelled, res.ExitCode)
	assert.True(t, res.Cancelled)
	assert.True(t, strings.HasSuffix(res.Stdout, CancelNotice))
	assert.Contains(t, res.Stderr, CancelNotice)
	assert.True(t, log.contains("🛑 "+CancelNotice))
	err := res.Err(Shell("sleep 30"))
	assert.Contains(t, err.Error(), "cancelled by operator")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteExit130WithoutCancelIsFailure(t *testing.T) {
	for _, script := range []string{"exit 130", "kill -INT $$"} {
		t.Run(script, func(t *testing.T) {
			r, state, _ := newRunner()

			res := r.Execute(t.Context(), Shell(script))

			assert.False(t, state.Cancelled())
			assert.Equal(t, ExitCancelled, res.ExitCode)
			assert.False(t, res.Cancelled)
			err := res.Err(Shell(script))
			require.Error(t, err)
			assert.NotErrorIs(t, err, context.Canceled)
			assert.NotContains(t, err.Error(), "cancelled")
			assert.Contains(t, err.Error(), "exited with code 130")
		})
	}
}

func TestExecuteCancelCutsDrainShort(t *testing.T) {
	r, state, _ := newRunner()

	go func() {
		time.Sleep(300 * time.Millisecond)
		state.Cancel()
	}()

	start := time.Now()
	res := r.Execute(t.Context(), Shell("echo one; sleep 3 & echo two"))

	assert.Less(t, time.Since(start), 1500*time.Millisecond)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Cancelled)
}

func TestExecuteCancelEscalatesToKill(t *testing.T) {
	r, state, _ := newRunner(WithKillTimeout(300 * time.Millisecond))

	go func() {
		time.Sleep(200 * time.Millisecond)
		state.Cancel()
	}()

	start := time.Now()
	res := r.Execute(t.Context(), Shell("trap '' TERM; while true; do sleep 0.1; done"))

	assert.Equal(t, ExitCancelled, res.ExitCode)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestExecuteAlreadyCancelled(t *testing.T) {
	r, state, _ := newRunner()
	state.Cancel()

	res := r.Execute(t.Context(), Shell("sleep 30"))
	assert.Equal(t, ExitCancelled, res.ExitCode)
}

func TestExecuteContextCancel(t *testing.T) {
	r, _, _ := newRunner()
	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	res := r.Execute(ctx, Shell("sleep 30"))
	assert.Equal(t, ExitCancelled, res.ExitCode)
}

func TestExecutePauseSuspendsOutput(t *testing.T) {
	r, state, log := newRunner()
	state.Pause()

	done := make(chan Result, 1)
	go func() { done <- r.Execute(t.Context(), Shell("echo one; sleep 0.5; echo two")) }()

	time.Sleep(200 * time.Millisecond)
	assert.False(t, log.contains("one"), "output must not be consumed while paused")

	state.Resume()
	select {
	case res := <-done:
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "one\ntwo", res.Stdout)
	case <-time.After(5 * time.Second):
		t.Fatal("command did not finish after resume")
	}
	assert.True(t, log.contains("one"))
	assert.True(t, log.contains("two"))
}

func TestExecuteCancelWhilePaused(t *testing.T) {
	r, state, _ := newRunner()
	state.Pause()

	done := make(chan Result, 1)
	go func() { done <- r.Execute(t.Context(), Shell("sleep 30")) }()

	time.Sleep(150 * time.Millisecond)
	state.Cancel()

	select {
	case res := <-done:
		assert.Equal(t, ExitCancelled, res.ExitCode)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not interrupt a paused command")
	}
}

func TestExecuteManyLines(t *testing.T) {
	r, _, _ := newRunner()
	const n = 500

	res := r.Execute(t.Context(), Shell(fmt.Sprintf("i=0; while [ $i -lt %d ]; do echo $i; i=$((i+1)); done", n)))

	require.Equal(t, 0, res.ExitCode)
	lines := strings.Split(res.Stdout, "\n")
	require.Len(t, lines, n)
	assert.Equal(t, "0", lines[0])
	assert.Equal(t, fmt.Sprint(n-1), lines[n-1])
}

func TestMergeEnvOverridesWin(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2", "junk"}, map[string]string{"B": "3"}, map[string]string{"C": "4", "B": "5"})
	assert.Equal(t, []string{"A=1", "B=5", "C=4"}, got)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "cargo build --release", Exec("cargo", "build", "--release").String())
	assert.Equal(t, "npm run build", Shell("npm run build").String())
	assert.Equal(t, "/tmp", Exec("ls").In("/tmp").Dir)
}

func TestLookPath(t *testing.T) {
	_, ok := LookPath("sh")
	assert.True(t, ok)
	_, ok = LookPath("buildpilot-definitely-not-a-binary")
	assert.False(t, ok)
}

type durationRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (d *durationRecorder) ObserveCommandDuration(_ string, _ time.Duration, exitCode int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes = append(d.codes, exitCode)
}

func TestExecuteReportsDurations(t *testing.T) {
	rec := &durationRecorder{}
	r, _, _ := newRunner(WithRecorder(rec))

	r.Execute(t.Context(), Shell("exit 0"))
	r.Execute(t.Context(), Shell("exit 4"))

	assert.Equal(t, []int{0, 4}, rec.codes)
}
