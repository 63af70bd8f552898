// Package pluginlock pins a plugin's resolved definition to a JSON lockfile so
// that installs are reproducible.
package pluginlock

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/mattjoyce/pipekeep/internal/plugin"
	"github.com/mattjoyce/pipekeep/internal/project"
)

// Loader parses an open lockfile.
type Loader func(r io.Reader) (*plugin.StandalonePlugin, error)

// DefaultLoader decodes a lockfile as a JSON standalone plugin. Numeric
// setting values are kept as json.Number so they re-encode exactly.
func DefaultLoader(r io.Reader) (*plugin.StandalonePlugin, error) {
	var sp plugin.StandalonePlugin
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&sp); err != nil {
		return nil, fmt.Errorf("decode lockfile JSON: %w", err)
	}
	if !sp.PluginType.Valid() {
		return nil, fmt.Errorf("lockfile has invalid plugin_type %q", sp.PluginType)
	}
	if strings.TrimSpace(sp.Name) == "" {
		return nil, fmt.Errorf("lockfile has no plugin name")
	}
	return &sp, nil
}

// Lock is the lockfile of one plugin variant. Path is derived from the
// definition's type and name and the resolved variant name.
type Lock struct {
	Plugin     plugin.Ref
	Definition *plugin.Definition
	Variant    *plugin.Variant
	Path       string
}

// New resolves the variant pp asks for and the lockfile path for it. Errors
// from the variant lookup are returned as-is.
func New(p *project.Project, pp *plugin.ProjectPlugin) (*Lock, error) {
	if pp == nil || pp.Definition == nil {
		return nil, fmt.Errorf("plugin has no definition")
	}

	def := pp.Definition
	variant, err := def.FindVariant(pp.Variant)
	if err != nil {
		return nil, err
	}

	path, err := p.PluginLockPath(string(def.Type), def.Name, variant.Name)
	if err != nil {
		return nil, err
	}

	return &Lock{
		Plugin:     pp.Ref(),
		Definition: def,
		Variant:    variant,
		Path:       path,
	}, nil
}

// Standalone returns the plugin in the form the lockfile stores.
func (l *Lock) Standalone() *plugin.StandalonePlugin {
	return plugin.FromVariant(l.Variant, l.Definition)
}

// Save writes the canonical definition as 2-space indented JSON, replacing
// any existing content. The write is not atomic.
func (l *Lock) Save() error {
	data, err := encode(l.Standalone())
	if err != nil {
		return fmt.Errorf("encode lockfile for %s: %w", l.Plugin, err)
	}

	if err := os.WriteFile(l.Path, data, 0o644); err != nil {
		return fmt.Errorf("write lockfile %s: %w", l.Path, err)
	}
	return nil
}

// encode renders sp in lockfile form: canonical keys, 2-space indent, a
// trailing newline.
func encode(sp *plugin.StandalonePlugin) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sp.Canonical()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads the lockfile through loader (DefaultLoader when nil). When the
// file is missing and create is set, it is saved from the in-memory definition
// first; otherwise the error satisfies errors.Is(err, fs.ErrNotExist).
func (l *Lock) Load(create bool, loader Loader) (*plugin.StandalonePlugin, error) {
	if loader == nil {
		loader = DefaultLoader
	}

	sp, err := l.load(loader)
	if err == nil || !create || !errors.Is(err, errLockfileNotFound) {
		return sp, err
	}

	if err := l.Save(); err != nil {
		return nil, err
	}
	return l.load(loader)
}

var errLockfileNotFound = errors.New("lockfile not found")

func (l *Lock) load(loader Loader) (*plugin.StandalonePlugin, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", errLockfileNotFound, err)
		}
		return nil, fmt.Errorf("open lockfile %s: %w", l.Path, err)
	}
	defer f.Close()

	sp, err := loader(f)
	if err != nil {
		return nil, fmt.Errorf("load lockfile %s: %w", l.Path, err)
	}
	return sp, nil
}

// Exists reports whether the lockfile is present on disk.
func (l *Lock) Exists() (bool, error) {
	_, err := os.Stat(l.Path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat lockfile %s: %w", l.Path, err)
}

// SHA256Checksum hashes the lockfile's current bytes. It is recomputed on
// every call so edits made outside this process are reflected.
func (l *Lock) SHA256Checksum() (string, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return "", fmt.Errorf("read lockfile %s: %w", l.Path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
