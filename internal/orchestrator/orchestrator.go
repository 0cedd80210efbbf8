// Package orchestrator drives a pipeline of stages through their lifecycle.
//
// Stages run strictly in order on the caller's goroutine. Before the first stage the
// orchestrator waits on the start gate; before every stage it honours the cancel flag and the
// pause gate. The first failing stage ends the run and no stage is ever retried. Operator
// commands arrive concurrently through control.State and never touch stages directly.
package orchestrator

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/buildpilot/internal/control"
	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/logfields"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// CancelledMessage is recorded on a stage interrupted by operator cancellation.
const CancelledMessage = "cancelled by operator"

// Logger receives operator-facing progress lines.
type Logger interface {
	Log(msg string)
}

// Orchestrator executes one run.
type Orchestrator struct {
	state    *control.State
	log      Logger
	entries  []stage.Entry
	summary  *RunSummary
	observer Observer
	now      func() time.Time
}

// Option customises an Orchestrator.
type Option func(*config)

type config struct {
	runID     string
	observers Observers
	now       func() time.Time
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option { return func(c *config) { c.runID = id } }

// WithObserver adds lifecycle observers.
func WithObserver(obs ...Observer) Option {
	return func(c *config) { c.observers = append(c.observers, obs...) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }

// New prepares a run over the stages assembled in p.
func New(state *control.State, log Logger, p *stage.Pipeline, opts ...Option) *Orchestrator {
	cfg := config{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	entries := p.Entries()
	return &Orchestrator{
		state:    state,
		log:      log,
		entries:  entries,
		summary:  newRunSummary(cfg.runID, entries, p.Skipped(), cfg.now),
		observer: cfg.observers,
		now:      cfg.now,
	}
}

// Summary exposes the run summary for concurrent readers such as report generation.
func (o *Orchestrator) Summary() *RunSummary { return o.summary }

// Run executes the pipeline and reports whether every stage succeeded. It always stamps the
// run's end time before returning, whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context) (ok bool) {
	runCtx, cancel := o.state.Context(ctx)
	defer cancel()

	defer func() {
		o.summary.end(o.now(), o.state.Cancelled())
		snap := o.summary.Snapshot()
		slog.Info("Build run finished",
			logfields.RunID(o.summary.ID()),
			slog.Bool("success", ok),
			logfields.Duration(snap.Duration))
		o.observer.OnRunComplete(snap)
	}()

	if !o.state.Started() {
		o.log.Log("⏳ Waiting for start command...")
	}
	if err := o.state.WaitStart(runCtx); err != nil && !o.state.Cancelled() {
		o.log.Log("🛑 Build aborted before start.")
		return false
	}
	if o.state.Cancelled() {
		o.log.Log("🛑 Build cancelled before start.")
		return false
	}

	o.summary.begin(o.now())
	slog.Info("Build run started", logfields.RunID(o.summary.ID()), slog.Int("stages", len(o.entries)))
	o.observer.OnRunStart(o.summary.Snapshot())

	for _, e := range o.entries {
		if o.aborted(ctx) {
			o.log.Log("🛑 Build cancelled; remaining stages were not started.")
			return false
		}
		if o.state.Paused() {
			o.log.Log(fmt.Sprintf("⏸ Build paused before %s. Waiting for resume...", e.Stage.Name.Title()))
			_ = o.state.WaitResumed(runCtx)
			if o.aborted(ctx) {
				o.log.Log("🛑 Build cancelled while paused.")
				return false
			}
			o.log.Log("▶ Build resumed.")
		}
		if !o.runStage(runCtx, e) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) aborted(ctx context.Context) bool {
	return o.state.Cancelled() || ctx.Err() != nil
}

func (o *Orchestrator) runStage(ctx context.Context, e stage.Entry) bool {
	st := e.Stage
	runID := o.summary.ID()

	o.log.Log(fmt.Sprintf("▶ %s: %s", st.Name.Title(), st.Description))
	if err := o.summary.update(func() error { return st.Begin(o.now()) }); err != nil {
		// Only reachable if a pipeline is run twice.
		slog.Error("Stage could not start", logfields.Stage(string(st.Name)), logfields.Error(err))
		return false
	}
	o.observer.OnStageStart(runID, o.stageSnapshot(st))

	start := time.Now()
	err := invoke(ctx, e.Handler)
	elapsed := time.Since(start)

	if err == nil && o.state.Cancelled() {
		err = stdErrors.New(CancelledMessage)
	}

	if err != nil {
		msg := failureMessage(err, o.state.Cancelled())
		_ = o.summary.update(func() error { return st.Fail(o.now(), msg) })
		o.log.Log(fmt.Sprintf("✗ %s failed after %s: %s", st.Name.Title(), stage.FormatDuration(elapsed), msg))
		slog.Warn("Stage failed",
			logfields.RunID(runID),
			logfields.Stage(string(st.Name)),
			logfields.Duration(elapsed),
			logfields.Error(err))
		o.observer.OnStageComplete(runID, o.stageSnapshot(st))
		return false
	}

	_ = o.summary.update(func() error { return st.Succeed(o.now()) })
	o.log.Log(fmt.Sprintf("✓ %s completed in %s", st.Name.Title(), stage.FormatDuration(elapsed)))
	slog.Debug("Stage succeeded",
		logfields.RunID(runID),
		logfields.Stage(string(st.Name)),
		logfields.Duration(elapsed))
	o.observer.OnStageComplete(runID, o.stageSnapshot(st))
	return true
}

func (o *Orchestrator) stageSnapshot(st *stage.Stage) stage.Snapshot {
	o.summary.mu.RLock()
	defer o.summary.mu.RUnlock()
	return st.Snapshot(o.now())
}

// invoke calls h, converting a panic into an error so one broken handler cannot take the
// process down.
func invoke(ctx context.Context, h stage.Handler) (err error) {
	if h == nil {
		return stdErrors.New("no handler registered for stage")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return h(ctx)
}

// failureMessage is the text recorded on a failed stage. Classified errors contribute their
// human message rather than the category-tagged form.
func failureMessage(err error, cancelled bool) string {
	if cancelled && stdErrors.Is(err, context.Canceled) {
		return CancelledMessage
	}
	var msg string
	if ce, ok := errors.AsClassified(err); ok {
		msg = ce.Message()
		if cause := ce.Cause(); cause != nil {
			msg += ": " + cause.Error()
		}
	} else {
		msg = err.Error()
	}
	if msg == "" {
		if cancelled {
			return CancelledMessage
		}
		return "stage reported failure"
	}
	return msg
}
