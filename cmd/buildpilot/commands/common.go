package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildpilot/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"buildpilot.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging and a larger console buffer"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Run the build pipeline"`
	Report  ReportCmd  `cmd:"" help:"List generated error reports"`
	History HistoryCmd `cmd:"" help:"Show recent builds"`
	Init    InitCmd    `cmd:"" help:"Write a default configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, level, config.LogFormatText))
	return nil
}

// configureLogging replaces the default logger with one honouring the loaded configuration.
// --verbose always wins over the configured level.
func configureLogging(cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.Logging.Level.Slog()
	if verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
