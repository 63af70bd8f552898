package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]struct{}{
	"debug":   {},
	"info":    {},
	"warn":    {},
	"warning": {},
	"error":   {},
}

// Validate checks the configuration for values the services cannot use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectRoot) == "" {
		return fmt.Errorf("project_root must not be empty")
	}
	if _, ok := validLogLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("log_format: must be json or text, got %q", c.LogFormat)
	}

	if c.Logs.MaxReadBytes <= 0 {
		return fmt.Errorf("logs.max_read_bytes must be positive, got %d", c.Logs.MaxReadBytes)
	}
	if c.Logs.Retention < 0 {
		return fmt.Errorf("logs.retention must not be negative, got %s", c.Logs.Retention)
	}
	if strings.ContainsAny(c.Logs.DefaultFileName, `/\`) {
		return fmt.Errorf("logs.default_file_name must be a bare file name, got %q", c.Logs.DefaultFileName)
	}

	for _, value := range []string{c.ProjectRoot, c.Plugins.DefinitionsDir, c.Plugins.HistoryDB} {
		if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
			return fmt.Errorf("environment variable ${%s} is not set", matches[1])
		}
	}
	return nil
}
