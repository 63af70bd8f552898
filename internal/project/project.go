// Package project resolves the on-disk layout of a pipeline project: job log
// directories, the legacy run directory and plugin lockfile paths.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	LogsDirName    = "logs"
	RunDirName     = "run"
	PluginsDirName = "plugins"

	// JobLogKind is the logs/<kind> and run/<kind> segment used for pipeline runs.
	JobLogKind = "elt"

	LockfileSuffix = ".lock.json"
)

// Project is a directory tree rooted at Root.
type Project struct {
	Root string
}

// New returns a Project rooted at root. The root does not need to exist yet.
func New(root string) (*Project, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("project root is empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve project root %q: %w", root, err)
	}
	return &Project{Root: filepath.Clean(abs)}, nil
}

// JobLogsDir returns <root>/logs/elt/<stateID>/<parts...>, creating it.
// A state id may contain "/" to nest its logs; every other part is a single
// path component.
func (p *Project) JobLogsDir(stateID string, parts ...string) (string, error) {
	if err := validateStateID(stateID); err != nil {
		return "", err
	}
	for _, part := range parts {
		if err := validateComponent("path component", part); err != nil {
			return "", err
		}
	}

	elems := append([]string{p.Root, LogsDirName, JobLogKind, filepath.FromSlash(stateID)}, parts...)
	dir := filepath.Join(elems...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job logs directory for %q: %w", stateID, err)
	}
	return dir, nil
}

// RunDir returns <root>/run/<kind>/<parts...>. Nothing is created.
func (p *Project) RunDir(kind string, parts ...string) string {
	elems := append([]string{p.Root, RunDirName, kind}, parts...)
	return filepath.Join(elems...)
}

// PluginLocksDir is the root under which all lockfiles live.
func (p *Project) PluginLocksDir() string {
	return filepath.Join(p.Root, PluginsDirName)
}

// PluginLockPath returns <root>/plugins/<type>/<name>--<variant>.lock.json and
// creates its parent directory.
func (p *Project) PluginLockPath(pluginType, name, variantName string) (string, error) {
	if err := validateComponent("plugin type", pluginType); err != nil {
		return "", err
	}
	if err := validateComponent("plugin name", name); err != nil {
		return "", err
	}

	base := name
	if variantName != "" {
		if err := validateComponent("variant name", variantName); err != nil {
			return "", err
		}
		base = name + "--" + variantName
	}

	dir := filepath.Join(p.PluginLocksDir(), pluginType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create lockfile directory for %s/%s: %w", pluginType, name, err)
	}
	return filepath.Join(dir, base+LockfileSuffix), nil
}

func validateComponent(what, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s is empty", what)
	}
	if trimmed == "." || trimmed == ".." {
		return fmt.Errorf("%s %q is invalid", what, value)
	}
	if strings.Contains(value, "/") || strings.Contains(value, `\`) {
		return fmt.Errorf("%s %q must not contain path separators", what, value)
	}
	return nil
}

func validateStateID(stateID string) error {
	if strings.TrimSpace(stateID) == "" {
		return fmt.Errorf("state id is empty")
	}
	for _, segment := range strings.Split(stateID, "/") {
		if err := validateComponent("state id segment", segment); err != nil {
			return fmt.Errorf("state id %q: %w", stateID, err)
		}
	}
	return nil
}
