package config

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Name:       "CookieOne Voice Assistant",
			Version:    "1.0.0",
			Dir:        ".",
			AppDir:     "app",
			GUIDir:     "gui",
			BinaryName: "jarvis-app",
		},
		Build: BuildConfig{
			Branch:    "main",
			Release:   false,
			GUI:       true,
			Tests:     true,
			OutputDir: "dist",
		},
		Tools: ToolsConfig{
			Core:          []string{"rustc", "cargo"},
			GUI:           []string{"node", "npm"},
			MinFreeDiskGB: 5,
		},
		Logging: LoggingConfig{
			Level:         LogLevelInfo,
			Format:        LogFormatText,
			BufferLines:   100,
			TranscriptDir: "build_logs",
		},
		Control: ControlConfig{
			AutoStartDelay: "1s",
			KillTimeout:    "5s",
		},
		Reports: ReportsConfig{
			Dir:           "build_reports",
			AutoOnFailure: true,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".buildpilot/history.db",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Notify: NotifyConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "buildpilot.events",
		},
	}
}

// fillZero restores defaults for fields a config file explicitly blanked.
func fillZero(c *Config) {
	d := Default()
	setIfEmpty(&c.Project.Dir, d.Project.Dir)
	setIfEmpty(&c.Project.AppDir, d.Project.AppDir)
	setIfEmpty(&c.Project.GUIDir, d.Project.GUIDir)
	setIfEmpty(&c.Build.OutputDir, d.Build.OutputDir)
	setIfEmpty(&c.Logging.TranscriptDir, d.Logging.TranscriptDir)
	setIfEmpty(&c.Control.AutoStartDelay, d.Control.AutoStartDelay)
	setIfEmpty(&c.Control.KillTimeout, d.Control.KillTimeout)
	setIfEmpty(&c.Reports.Dir, d.Reports.Dir)
	setIfEmpty(&c.History.Path, d.History.Path)
	setIfEmpty(&c.Notify.Subject, d.Notify.Subject)
	if c.Logging.BufferLines == 0 {
		c.Logging.BufferLines = d.Logging.BufferLines
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
