package config

import (
	"path/filepath"
	"time"

	"github.com/mattjoyce/pipekeep/internal/joblog"
)

// FileName is looked up inside a directory passed to Load.
const FileName = "pipekeep.yaml"

// Config represents the complete pipekeep configuration.
type Config struct {
	ProjectRoot string        `yaml:"project_root"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	Logs        LogsConfig    `yaml:"logs"`
	Plugins     PluginsConfig `yaml:"plugins"`

	// SourcePath is the file the config was loaded from; empty for defaults.
	SourcePath string `yaml:"-"`
}

// LogsConfig controls job log handling.
type LogsConfig struct {
	DefaultFileName string        `yaml:"default_file_name"`
	MaxReadBytes    int64         `yaml:"max_read_bytes"`
	Retention       time.Duration `yaml:"retention"`
}

// PluginsConfig controls plugin definitions and lockfile history.
type PluginsConfig struct {
	DefinitionsDir string `yaml:"definitions_dir"`
	// HistoryDB is the sqlite lock history. Empty disables history.
	HistoryDB string `yaml:"history_db"`
}

// Defaults returns a config with all default values applied.
func Defaults() *Config {
	return &Config{
		ProjectRoot: ".",
		LogLevel:    "info",
		LogFormat:   "json",
		Logs: LogsConfig{
			DefaultFileName: joblog.DefaultFileName,
			MaxReadBytes:    joblog.MaxFileSize,
			Retention:       30 * 24 * time.Hour,
		},
		Plugins: PluginsConfig{
			DefinitionsDir: "./plugin-definitions",
			HistoryDB:      "state/history.db",
		},
	}
}

// DefinitionsPath resolves plugins.definitions_dir against the project root.
func (c *Config) DefinitionsPath() string {
	return c.underRoot(c.Plugins.DefinitionsDir)
}

// HistoryDBPath resolves plugins.history_db against the project root. It
// returns "" when history is disabled.
func (c *Config) HistoryDBPath() string {
	if c.Plugins.HistoryDB == "" {
		return ""
	}
	return c.underRoot(c.Plugins.HistoryDB)
}

func (c *Config) underRoot(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectRoot, path)
}
