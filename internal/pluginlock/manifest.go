package pluginlock

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/pipekeep/internal/project"
)

// ManifestFilename is written at the root of the project's plugins directory.
const ManifestFilename = ".checksums"

// Manifest records the BLAKE3 hash of every lockfile, keyed by its
// slash-separated path relative to the plugins directory.
type Manifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// ManifestFile is one hashed lockfile.
type ManifestFile struct {
	Name string
	Path string
	Hash string
}

// ManifestReport describes a GenerateManifest run.
type ManifestReport struct {
	ManifestPath string
	Written      bool
	Files        []ManifestFile
}

// VerifyResult lists lockfiles whose bytes drifted from the manifest.
type VerifyResult struct {
	Passed     bool
	Mismatched []string
	Missing    []string
	Untracked  []string
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// GenerateManifest hashes every lockfile under the project's plugins
// directory and writes the manifest. With dryRun nothing is written.
func GenerateManifest(p *project.Project, dryRun bool) (*ManifestReport, error) {
	root := p.PluginLocksDir()
	names, err := listLockfiles(root)
	if err != nil {
		return nil, err
	}

	manifest := Manifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      make(map[string]string, len(names)),
	}
	report := &ManifestReport{
		ManifestPath: filepath.Join(root, ManifestFilename),
		Files:        make([]ManifestFile, 0, len(names)),
	}

	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		hash, err := ComputeBlake3Hash(path)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", name, err)
		}
		manifest.Hashes[name] = hash
		report.Files = append(report.Files, ManifestFile{Name: name, Path: path, Hash: hash})
	}

	if dryRun {
		return report, nil
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plugins directory: %w", err)
	}
	if err := os.WriteFile(report.ManifestPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}
	report.Written = true

	return report, nil
}

// LoadManifest reads the project's lockfile manifest.
func LoadManifest(p *project.Project) (*Manifest, error) {
	path := filepath.Join(p.PluginLocksDir(), ManifestFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checksums file not found at %s (run 'pipekeep lock manifest'): %w", path, err)
		}
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}
	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}
	return &manifest, nil
}

// VerifyManifest compares every lockfile on disk with the manifest.
func VerifyManifest(p *project.Project) (*VerifyResult, error) {
	manifest, err := LoadManifest(p)
	if err != nil {
		return nil, err
	}

	root := p.PluginLocksDir()
	names, err := listLockfiles(root)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Passed: true}
	onDisk := make(map[string]struct{}, len(names))
	for _, name := range names {
		onDisk[name] = struct{}{}

		expected, ok := manifest.Hashes[name]
		if !ok {
			result.Untracked = append(result.Untracked, name)
			continue
		}
		actual, err := ComputeBlake3Hash(filepath.Join(root, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", name, err)
		}
		if actual != expected {
			result.Mismatched = append(result.Mismatched, name)
		}
	}

	for name := range manifest.Hashes {
		if _, ok := onDisk[name]; !ok {
			result.Missing = append(result.Missing, name)
		}
	}
	sort.Strings(result.Missing)

	result.Passed = len(result.Mismatched) == 0 && len(result.Missing) == 0 && len(result.Untracked) == 0
	return result, nil
}

// listLockfiles returns slash-separated lockfile paths relative to root,
// sorted. A missing root yields no files.
func listLockfiles(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root && errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), project.LockfileSuffix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("resolve relative path: %w", err)
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan lockfiles in %s: %w", root, err)
	}
	sort.Strings(names)
	return names, nil
}
