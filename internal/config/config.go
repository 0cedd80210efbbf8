// Package config loads buildpilot.yaml, applies defaults and validates the result.
package config

import (
	"time"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "buildpilot.yaml"

// Config is the complete buildpilot configuration.
type Config struct {
	Project  ProjectConfig     `yaml:"project"`
	Build    BuildConfig       `yaml:"build"`
	Tools    ToolsConfig       `yaml:"tools"`
	Commands CommandsConfig    `yaml:"commands"`
	Env      map[string]string `yaml:"env,omitempty"` // overrides applied to every command
	Logging  LoggingConfig     `yaml:"logging"`
	Control  ControlConfig     `yaml:"control"`
	Reports  ReportsConfig     `yaml:"reports"`
	History  HistoryConfig     `yaml:"history"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Notify   NotifyConfig      `yaml:"notify"`
}

// ProjectConfig describes the project being built.
type ProjectConfig struct {
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
	Dir        string `yaml:"dir"`         // project root; relative paths below resolve against it
	AppDir     string `yaml:"app_dir"`     // core crate, relative to Dir
	GUIDir     string `yaml:"gui_dir"`     // desktop frontend, relative to Dir
	BinaryName string `yaml:"binary_name"` // standalone binary copied by packaging
}

// BuildConfig holds the per-run switches, all overridable from the command line.
type BuildConfig struct {
	Branch    string `yaml:"branch"`
	Release   bool   `yaml:"release"`
	Clean     bool   `yaml:"clean"`
	GUI       bool   `yaml:"gui"`
	Tests     bool   `yaml:"tests"`
	OutputDir string `yaml:"output_dir"`
}

// ToolsConfig lists executables the environment check requires on PATH.
type ToolsConfig struct {
	Core []string `yaml:"core"`
	GUI  []string `yaml:"gui"` // only required when the GUI is built
	// MinFreeDiskGB triggers a low-disk warning; it never fails the check.
	MinFreeDiskGB float64 `yaml:"min_free_disk_gb"`
}

// CommandsConfig overrides the shell commands of each stage. Empty lists fall back to the
// built-in defaults, which depend on the release switch.
type CommandsConfig struct {
	Submodules []string `yaml:"submodules,omitempty"`
	BuildCore  []string `yaml:"build_core,omitempty"`
	Test       []string `yaml:"test,omitempty"`
	Frontend   []string `yaml:"frontend,omitempty"`
	Desktop    []string `yaml:"desktop,omitempty"`
}

// LoggingConfig controls diagnostics and the operator transcript.
type LoggingConfig struct {
	Level         LogLevel  `yaml:"level"`
	Format        LogFormat `yaml:"format"`
	BufferLines   int       `yaml:"buffer_lines"` // Log Sink capacity
	TranscriptDir string    `yaml:"transcript_dir"`
}

// ControlConfig tunes the operator control interface.
type ControlConfig struct {
	AutoStartDelay string `yaml:"auto_start_delay"`
	KillTimeout    string `yaml:"kill_timeout"`
}

// ReportsConfig controls error report archives.
type ReportsConfig struct {
	Dir           string `yaml:"dir"`
	AutoOnFailure bool   `yaml:"auto_on_failure"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls Prometheus metrics export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"` // written at run end when set
}

// NotifyConfig controls NATS lifecycle events.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// AutoStartDelayDuration returns the parsed auto-start delay. Call after Validate.
func (c *Config) AutoStartDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.Control.AutoStartDelay)
	return d
}

// KillTimeoutDuration returns the parsed interrupt-to-kill grace period. Call after Validate.
func (c *Config) KillTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Control.KillTimeout)
	return d
}

// BuildProfile is "release" or "debug".
func (c *Config) BuildProfile() string {
	if c.Build.Release {
		return "release"
	}
	return "debug"
}
