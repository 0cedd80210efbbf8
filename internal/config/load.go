package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
)

// EnvLogLevel overrides logging.level when set.
const EnvLogLevel = "BUILDPILOT_LOG_LEVEL"

// Load reads configPath over the defaults. A missing file is fine when configPath is the
// default path; an explicitly named file must exist.
func Load(configPath string) (*Config, error) {
	explicit := configPath != "" && configPath != DefaultPath
	if configPath == "" {
		configPath = DefaultPath
	}
	loadEnvFiles(EnvFiles...)

	cfg := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err) && !explicit:
		// defaults only
	case err != nil:
		return nil, errors.ConfigError("failed to read config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	default:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.ConfigError("failed to parse config file").
				WithCause(err).
				WithContext("path", configPath).
				Build()
		}
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Logging.Level = LogLevel(lvl)
	}
	Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize canonicalises enumerations and restores blanked defaults.
func Normalize(cfg *Config) {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	fillZero(cfg)
}

// Validate checks cross-field constraints.
func Validate(cfg *Config) error {
	if cfg.Logging.BufferLines < 0 {
		return validation("logging.buffer_lines must not be negative", cfg.Logging.BufferLines)
	}
	if cfg.Tools.MinFreeDiskGB < 0 {
		return validation("tools.min_free_disk_gb must not be negative", cfg.Tools.MinFreeDiskGB)
	}
	for field, raw := range map[string]string{
		"control.auto_start_delay": cfg.Control.AutoStartDelay,
		"control.kill_timeout":     cfg.Control.KillTimeout,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.ValidationError(field+" is not a duration").
				WithCause(err).
				WithContext("value", raw).
				Build()
		}
		if d < 0 {
			return validation(field+" must not be negative", raw)
		}
	}
	if cfg.Notify.Enabled && cfg.Notify.URL == "" {
		return validation("notify.url is required when notify is enabled", "")
	}
	if filepath.IsAbs(cfg.Project.AppDir) || filepath.IsAbs(cfg.Project.GUIDir) {
		return validation("project.app_dir and project.gui_dir must be relative to project.dir", cfg.Project.AppDir)
	}
	return nil
}

func validation(msg string, value any) error {
	return errors.ValidationError(msg).WithContext("value", value).Build()
}

// Resolve joins a project-relative path onto Project.Dir.
func (c *Config) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Project.Dir, rel)
}

// Init writes a default configuration file.
func Init(configPath string, force bool) error {
	if configPath == "" {
		configPath = DefaultPath
	}
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.InternalError("marshal default config").WithCause(err).Build()
	}
	header := "# buildpilot configuration. Empty command lists use the built-in defaults.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return errors.FileSystemError("write config file").WithCause(err).WithContext("path", configPath).Build()
	}
	return nil
}
