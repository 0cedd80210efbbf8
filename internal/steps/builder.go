// Package steps implements the concrete build actions behind each pipeline stage and
// assembles them into a stage.Pipeline.
//
// Handlers log operator-facing progress through the run's Log Sink and execute external
// commands through a runner so every command honours pause and cancel. Commands come from
// the configuration; stages with no configured commands fall back to the built-in defaults.
package steps

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"git.home.luguber.info/inful/buildpilot/internal/config"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/runner"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
	"git.home.luguber.info/inful/buildpilot/internal/sysinfo"
)

// Executor runs one external command; *runner.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, c runner.Command) runner.Result
}

// Logger receives operator-facing progress lines.
type Logger interface {
	Log(msg string)
}

// SummarySource exposes the in-progress run for the finalize stage.
type SummarySource interface {
	Snapshot() orchestrator.Summary
}

// Builder holds the collaborators shared by every stage handler.
type Builder struct {
	cfg      *config.Config
	exec     Executor
	log      Logger
	summary  SummarySource
	now      func() time.Time
	lookPath func(tool string) (string, bool)
	freeDisk func(path string) (uint64, error)
	facts    func() sysinfo.Facts
	goos     string
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for manifests.
func WithClock(now func() time.Time) Option { return func(b *Builder) { b.now = now } }

// WithLookPath overrides tool discovery.
func WithLookPath(fn func(string) (string, bool)) Option {
	return func(b *Builder) { b.lookPath = fn }
}

// WithFreeDisk overrides the free disk probe.
func WithFreeDisk(fn func(string) (uint64, error)) Option {
	return func(b *Builder) { b.freeDisk = fn }
}

// WithFacts overrides host fact collection.
func WithFacts(fn func() sysinfo.Facts) Option { return func(b *Builder) { b.facts = fn } }

// WithSummary sets the run summary consulted by Finalize.
func WithSummary(s SummarySource) Option { return func(b *Builder) { b.summary = s } }

// New creates a Builder for cfg.
func New(cfg *config.Config, exec Executor, log Logger, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		exec:     exec,
		log:      log,
		now:      time.Now,
		lookPath: runner.LookPath,
		freeDisk: sysinfo.FreeDisk,
		facts:    sysinfo.Collect,
		goos:     runtime.GOOS,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BindSummary attaches the run summary once the orchestrator exists. Must be called before
// the run starts.
func (b *Builder) BindSummary(s SummarySource) { b.summary = s }

// Pipeline assembles the ordered stage list. Stages disabled by configuration are recorded
// as skipped.
func (b *Builder) Pipeline() *stage.Pipeline {
	build := b.cfg.Build
	return stage.NewPipeline().
		Add(stage.EnvironmentCheck, "Verify required tools and system resources", b.CheckEnvironment).
		Add(stage.PrepareRepository, "Check out the target branch and update submodules", b.PrepareRepository).
		AddIf(build.Clean, stage.CleanArtifacts, "Remove previous build outputs", b.CleanArtifacts).
		Add(stage.BuildCore, "Compile the core application", b.BuildCore).
		AddIf(build.Tests, stage.RunTests, "Run the core test suite", b.RunTests).
		AddIf(build.GUI, stage.BuildFrontend, "Install dependencies and build the frontend", b.BuildFrontend).
		AddIf(build.GUI, stage.BuildDesktop, "Bundle the desktop application", b.BuildDesktop).
		Add(stage.PackageDistribution, "Collect artifacts into the output directory", b.PackageDistribution).
		Add(stage.Finalize, "Write the build manifest", b.Finalize)
}

func (b *Builder) logf(format string, args ...any) { b.log.Log(fmt.Sprintf(format, args...)) }

// run executes cmds in order, stopping at the first failure.
func (b *Builder) run(ctx context.Context, cmds ...runner.Command) error {
	for _, c := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := b.exec.Execute(ctx, c)
		if err := res.Err(c); err != nil {
			return err
		}
	}
	return nil
}

// commands returns the configured shell lines as commands in dir, or fallback when none are
// configured.
func commands(configured []string, dir string, fallback ...runner.Command) []runner.Command {
	if len(configured) == 0 {
		out := make([]runner.Command, len(fallback))
		for i, c := range fallback {
			out[i] = c.In(dir)
		}
		return out
	}
	out := make([]runner.Command, 0, len(configured))
	for _, line := range configured {
		out = append(out, runner.Shell(line).In(dir))
	}
	return out
}

func (b *Builder) projectDir() string { return b.cfg.Project.Dir }
func (b *Builder) appDir() string     { return b.cfg.Resolve(b.cfg.Project.AppDir) }
func (b *Builder) guiDir() string     { return b.cfg.Resolve(b.cfg.Project.GUIDir) }
func (b *Builder) outputDir() string  { return b.cfg.Resolve(b.cfg.Build.OutputDir) }

// executableName appends the platform executable suffix.
func executableName(name, goos string) string {
	if goos == "windows" {
		return name + ".exe"
	}
	return name
}
