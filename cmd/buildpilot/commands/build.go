package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildpilot/internal/config"
	"git.home.luguber.info/inful/buildpilot/internal/console"
	"git.home.luguber.info/inful/buildpilot/internal/control"
	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/history"
	"git.home.luguber.info/inful/buildpilot/internal/logfields"
	"git.home.luguber.info/inful/buildpilot/internal/logsink"
	"git.home.luguber.info/inful/buildpilot/internal/metrics"
	"git.home.luguber.info/inful/buildpilot/internal/notify"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/report"
	"git.home.luguber.info/inful/buildpilot/internal/runner"
	"git.home.luguber.info/inful/buildpilot/internal/steps"
	"git.home.luguber.info/inful/buildpilot/internal/version"
)

// verboseBufferLines is the Log Sink capacity used with --verbose.
const verboseBufferLines = 200

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Branch    string `help:"Git branch to build"`
	Release   bool   `help:"Build in release mode (optimized)"`
	Clean     bool   `help:"Clean build artifacts before building"`
	NoGUI     bool   `name:"no-gui" help:"Skip GUI build (backend only)"`
	SkipTests bool   `name:"skip-tests" help:"Skip running tests"`
	OutputDir string `name:"output-dir" help:"Output directory for build artifacts"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	b.apply(cfg)
	configureLogging(cfg, root.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := RunBuild(ctx, cfg, BuildIO{
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: control.IsInteractive(os.Stdin),
	}, root.Verbose)
	if err != nil {
		return err
	}
	return verdict(summary)
}

// apply lays command-line switches over the configuration.
func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Branch != "" {
		cfg.Build.Branch = b.Branch
	}
	if b.Release {
		cfg.Build.Release = true
	}
	if b.Clean {
		cfg.Build.Clean = true
	}
	if b.NoGUI {
		cfg.Build.GUI = false
	}
	if b.SkipTests {
		cfg.Build.Tests = false
	}
	if b.OutputDir != "" {
		cfg.Build.OutputDir = b.OutputDir
	}
}

// verdict maps a finished run onto the command's error: nil, a build failure (exit 1) or a
// cancellation (exit 130).
func verdict(s orchestrator.Summary) error {
	if s.Cancelled {
		return errors.CancelledError("build cancelled by operator").Build()
	}
	if s.Success() {
		return nil
	}
	if failed, ok := s.FirstFailure(); ok {
		return errors.BuildError(fmt.Sprintf("build failed at %s", failed.Title)).
			WithContext("stage", string(failed.Name)).
			Build()
	}
	return errors.BuildError("build failed").Build()
}

// BuildIO carries the streams a build talks to.
type BuildIO struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool // read operator commands from In
}

// RunBuild wires the control state, log sink, runner, stage handlers and observers, runs
// the pipeline and prints the summary. The returned error covers setup only; the build's
// own outcome is in the summary.
func RunBuild(ctx context.Context, cfg *config.Config, bio BuildIO, verbose bool) (orchestrator.Summary, error) {
	started := time.Now()
	console.PrintBanner(bio.Out, cfg, version.Version)

	capacity := cfg.Logging.BufferLines
	if verbose && capacity < verboseBufferLines {
		capacity = verboseBufferLines
	}
	var sinkOpts []logsink.Option
	transcript, err := logsink.OpenTranscript(logsink.TranscriptPath(cfg.Resolve(cfg.Logging.TranscriptDir), started))
	if err != nil {
		slog.Warn("Build log disabled", logfields.Error(err))
	} else {
		sinkOpts = append(sinkOpts, logsink.WithTranscript(transcript))
	}
	sink := logsink.New(capacity, sinkOpts...)

	renderCtx, stopRender := context.WithCancel(context.Background())
	var renderWG sync.WaitGroup
	renderWG.Add(1)
	go func() {
		defer renderWG.Done()
		console.NewRenderer(sink, bio.Out).Run(renderCtx)
	}()

	state := control.NewState()
	var (
		observers []orchestrator.Observer
		recorder  metrics.Recorder = metrics.NoopRecorder{}
		registry  *prom.Registry
	)
	if cfg.Metrics.Enabled {
		registry = prom.NewRegistry()
		rec := metrics.NewPrometheusRecorder(registry)
		recorder = rec
		observers = append(observers, metrics.NewRunObserver(rec))
	}
	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.Resolve(cfg.History.Path))
		if err != nil {
			slog.Warn("Run history disabled", logfields.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			observers = append(observers, history.NewObserver(store, runMetadata(cfg)))
		}
	}
	if cfg.Notify.Enabled {
		notifier, err := notify.Connect(cfg.Notify.URL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Build notifications disabled", logfields.Error(err))
		} else {
			defer func() {
				if err := notifier.Close(); err != nil {
					slog.Warn("Failed to flush notifications", logfields.Error(err))
				}
			}()
			observers = append(observers, notifier)
		}
	}

	exec := runner.New(state, sink,
		runner.WithEnv(cfg.Env),
		runner.WithKillTimeout(cfg.KillTimeoutDuration()),
		runner.WithRecorder(recorder),
	)
	builder := steps.New(cfg, exec, sink)
	orch := orchestrator.New(state, sink, builder.Pipeline(), orchestrator.WithObserver(observers...))
	builder.BindSummary(orch.Summary())

	reportOpts := []report.Option{}
	if transcript != nil {
		reportOpts = append(reportOpts, report.WithTranscript(transcript))
	}
	if registry != nil {
		reportOpts = append(reportOpts, report.WithMetrics(registry))
	}
	reports := report.New(cfg.Resolve(cfg.Reports.Dir), orch.Summary(), reportOpts...)

	// Interrupts reach the run only through the cancel flag, so the summary always records
	// them as a cancellation.
	runCtx := context.WithoutCancel(ctx)
	listenCtx, stopListen := context.WithCancel(runCtx)
	defer stopListen()
	if bio.Interactive {
		go control.NewListener(state, sink, bio.In, reports.Generate).Run(listenCtx)
	}
	stopAutoStart, err := control.AutoStart(state, sink, cfg.AutoStartDelayDuration())
	if err != nil {
		slog.Warn("Auto-start unavailable; waiting for the start command", logfields.Error(err))
		stopAutoStart = func() {}
	}
	defer stopAutoStart()

	go func() {
		select {
		case <-ctx.Done():
			if state.Cancel() {
				sink.Log("⚠ Build interrupted by user")
			}
		case <-listenCtx.Done():
		}
	}()

	slog.Info("Build started", logfields.RunID(orch.Summary().ID()), logfields.Branch(cfg.Build.Branch))
	ok := orch.Run(runCtx)
	stopListen()

	var reportPath string
	if !ok && cfg.Reports.AutoOnFailure {
		path, err := reports.Generate()
		if err != nil {
			sink.Logf("⚠ Failed to generate error report: %v", err)
		} else {
			reportPath = path
		}
	}
	if cfg.Metrics.Textfile != "" && registry != nil {
		path := cfg.Resolve(cfg.Metrics.Textfile)
		if err := metrics.WriteTextfile(path, registry); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
		}
	}

	stopRender()
	renderWG.Wait()

	var logFile string
	if transcript != nil {
		logFile = transcript.Path()
		if err := transcript.Close(); err != nil {
			slog.Warn("Failed to close build log", logfields.Path(logFile), logfields.Error(err))
		}
	}

	summary := orch.Summary().Snapshot()
	console.PrintSummary(bio.Out, summary, console.Outcome{
		OutputDir:  cfg.Resolve(cfg.Build.OutputDir),
		LogFile:    logFile,
		ReportPath: reportPath,
	})
	return summary, nil
}

func runMetadata(cfg *config.Config) map[string]string {
	return map[string]string{
		"project": cfg.Project.Name,
		"branch":  cfg.Build.Branch,
		"profile": cfg.BuildProfile(),
		"gui":     fmt.Sprint(cfg.Build.GUI),
		"tests":   fmt.Sprint(cfg.Build.Tests),
		"dir":     filepath.Clean(cfg.Project.Dir),
		"version": cfg.Project.Version,
	}
}
