package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file. A directory argument is
// resolved to the pipekeep.yaml inside it. A relative project_root is taken
// relative to the config file's directory.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag: %w", absPath, err)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, FileName)
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but %s not found: %s: %w", FileName, absPath, err)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", absPath, err)
	}
	cfg.SourcePath = absPath

	if !filepath.IsAbs(cfg.ProjectRoot) {
		cfg.ProjectRoot = filepath.Join(filepath.Dir(absPath), cfg.ProjectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDefaults returns the default configuration rooted at the current
// working directory.
func LoadDefaults() (*Config, error) {
	cfg := Defaults()
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	cfg.ProjectRoot = root
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolateEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return applyConfigDefaults(cfg), nil
}

// applyConfigDefaults fills fields that were explicitly left empty. An empty
// plugins.history_db is kept: it disables history.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = defaults.ProjectRoot
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}
	if cfg.Logs.DefaultFileName == "" {
		cfg.Logs.DefaultFileName = defaults.Logs.DefaultFileName
	}
	if cfg.Logs.MaxReadBytes == 0 {
		cfg.Logs.MaxReadBytes = defaults.Logs.MaxReadBytes
	}
	if cfg.Logs.Retention == 0 {
		cfg.Logs.Retention = defaults.Logs.Retention
	}
	if cfg.Plugins.DefinitionsDir == "" {
		cfg.Plugins.DefinitionsDir = defaults.Plugins.DefinitionsDir
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
