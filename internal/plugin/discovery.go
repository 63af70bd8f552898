package plugin

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry holds plugin definitions indexed by type and name.
type Registry struct {
	defs map[Ref]*Definition
}

// NewRegistry creates an empty definition registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[Ref]*Definition),
	}
}

// Get retrieves a definition by type and name.
func (r *Registry) Get(t Type, name string) (*Definition, bool) {
	d, ok := r.defs[Ref{Type: t, Name: name}]
	return d, ok
}

// All returns every definition ordered by type, then name.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Add registers a definition.
func (r *Registry) Add(d *Definition) error {
	ref := d.Ref()
	if _, exists := r.defs[ref]; exists {
		return fmt.Errorf("plugin %s already registered", ref)
	}
	r.defs[ref] = d
	return nil
}

// ProjectPlugin resolves a project plugin against the registry.
func (r *Registry) ProjectPlugin(t Type, name, variant string) (*ProjectPlugin, error) {
	d, ok := r.Get(t, name)
	if !ok {
		return nil, fmt.Errorf("no definition for plugin %s", Ref{Type: t, Name: name})
	}
	return &ProjectPlugin{Type: t, Name: name, Variant: variant, Definition: d}, nil
}

// LoadDefinition reads and validates a single YAML definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition YAML: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", path, err)
	}
	return &def, nil
}

// DiscoverDefinitions scans dir recursively for *.yml / *.yaml definition
// files. Invalid files are logged and skipped; duplicate plugins keep the
// first discovered definition.
func DiscoverDefinitions(dir string, logger func(level, msg string, args ...any)) (*Registry, error) {
	if logger == nil {
		logger = func(level, msg string, args ...any) {}
	}

	absDir, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve definitions dir %q: %w", dir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("definitions dir does not exist: %s", absDir)
		}
		return nil, fmt.Errorf("failed to stat definitions dir %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("definitions dir is not a directory: %s", absDir)
	}

	registry := NewRegistry()
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}

		def, err := LoadDefinition(path)
		if err != nil {
			logger("warn", "failed to load plugin definition", "path", path, "error", err.Error())
			return nil
		}

		if err := registry.Add(def); err != nil {
			logger("warn", "duplicate plugin definition ignored (keeping first discovered)",
				"plugin", def.Ref().String(),
				"ignored_path", path,
			)
			return nil
		}

		logger("debug", "loaded plugin definition", "plugin", def.Ref().String(), "path", path, "variants", len(def.Variants))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan definitions dir %s: %w", absDir, err)
	}

	return registry, nil
}
