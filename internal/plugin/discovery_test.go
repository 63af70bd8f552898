package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

const tapGithubYAML = `plugin_type: extractors
name: tap-github
namespace: tap_github
label: GitHub
variants:
  - name: meltanolabs
    pip_url: meltanolabs-tap-github
    capabilities: [catalog, state]
    settings:
      - name: auth_token
        kind: password
        sensitive: true
  - name: singer-io
    original: true
    pip_url: tap-github
`

func TestDiscoverDefinitions(t *testing.T) {
	tests := []struct {
		name      string
		setupFn   func(t *testing.T) string
		wantCount int
		wantErr   bool
		checkFn   func(t *testing.T, reg *Registry)
	}{
		{
			name: "valid definition discovered",
			setupFn: func(t *testing.T) string {
				dir := t.TempDir()
				os.WriteFile(filepath.Join(dir, "tap-github.yml"), []byte(tapGithubYAML), 0644)
				return dir
			},
			wantCount: 1,
			checkFn: func(t *testing.T, reg *Registry) {
				def, ok := reg.Get(TypeExtractors, "tap-github")
				if !ok {
					t.Fatal("tap-github not found")
				}
				if len(def.Variants) != 2 {
					t.Fatalf("variants = %d, want 2", len(def.Variants))
				}
				if !def.Variants[0].Settings[0].Sensitive {
					t.Error("auth_token should be sensitive")
				}
			},
		},
		{
			name: "nested directories and both extensions",
			setupFn: func(t *testing.T) string {
				dir := t.TempDir()
				os.MkdirAll(filepath.Join(dir, "loaders"), 0755)
				os.WriteFile(filepath.Join(dir, "tap-github.yml"), []byte(tapGithubYAML), 0644)
				os.WriteFile(filepath.Join(dir, "loaders", "target-jsonl.yaml"), []byte(`plugin_type: loaders
name: target-jsonl
variants:
  - name: andyh1203
`), 0644)
				os.WriteFile(filepath.Join(dir, "README.md"), []byte("# not a definition"), 0644)
				return dir
			},
			wantCount: 2,
			checkFn: func(t *testing.T, reg *Registry) {
				all := reg.All()
				if all[0].Type != TypeExtractors || all[1].Type != TypeLoaders {
					t.Errorf("unexpected order: %s, %s", all[0].Ref(), all[1].Ref())
				}
			},
		},
		{
			name: "invalid definition skipped",
			setupFn: func(t *testing.T) string {
				dir := t.TempDir()
				os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("plugin_type: widgets\nname: x\nvariants: [{name: a}]\n"), 0644)
				os.WriteFile(filepath.Join(dir, "novariants.yml"), []byte("plugin_type: loaders\nname: y\n"), 0644)
				os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("::: not yaml"), 0644)
				return dir
			},
			wantCount: 0,
		},
		{
			name: "duplicate keeps first",
			setupFn: func(t *testing.T) string {
				dir := t.TempDir()
				os.WriteFile(filepath.Join(dir, "a.yml"), []byte(tapGithubYAML), 0644)
				os.WriteFile(filepath.Join(dir, "b.yml"), []byte(tapGithubYAML), 0644)
				return dir
			},
			wantCount: 1,
		},
		{
			name: "nonexistent directory",
			setupFn: func(t *testing.T) string {
				return "/nonexistent/path"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setupFn(t)

			logger := func(level, msg string, args ...any) {
				// Silent logger for tests
			}

			reg, err := DiscoverDefinitions(dir, logger)

			if (err != nil) != tt.wantErr {
				t.Errorf("DiscoverDefinitions() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if len(reg.All()) != tt.wantCount {
					t.Errorf("DiscoverDefinitions() found %d definitions, want %d", len(reg.All()), tt.wantCount)
				}

				if tt.checkFn != nil {
					tt.checkFn(t, reg)
				}
			}
		})
	}
}

func TestRegistryProjectPlugin(t *testing.T) {
	reg := NewRegistry()
	def := &Definition{Type: TypeLoaders, Name: "target-jsonl", Variants: []Variant{{Name: "andyh1203"}}}
	if err := reg.Add(def); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(def); err == nil {
		t.Error("expected duplicate Add to fail")
	}

	pp, err := reg.ProjectPlugin(TypeLoaders, "target-jsonl", "andyh1203")
	if err != nil {
		t.Fatal(err)
	}
	if pp.Definition != def || pp.Variant != "andyh1203" {
		t.Errorf("unexpected project plugin: %+v", pp)
	}

	if _, err := reg.ProjectPlugin(TypeLoaders, "missing", ""); err == nil {
		t.Error("expected error for unknown plugin")
	}
}
