package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyRoot(t *testing.T) {
	_, err := New("   ")
	assert.Error(t, err)
}

func TestNewMakesRootAbsolute(t *testing.T) {
	p, err := New(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.Root))
}

func TestJobLogsDirCreatesTree(t *testing.T) {
	root := t.TempDir()
	p, err := New(root)
	require.NoError(t, err)

	dir, err := p.JobLogsDir("dev:tap-to-target", "run-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "logs", "elt", "dev:tap-to-target", "run-1"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestJobLogsDirNestedStateID(t *testing.T) {
	root := t.TempDir()
	p, err := New(root)
	require.NoError(t, err)

	dir, err := p.JobLogsDir("team/dev:tap-x-to-target-y", "run-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "logs", "elt", "team", "dev:tap-x-to-target-y", "run-1"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestJobLogsDirValidation(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name    string
		stateID string
		parts   []string
	}{
		{name: "empty state id", stateID: ""},
		{name: "dot dot", stateID: ".."},
		{name: "absolute", stateID: "/etc"},
		{name: "trailing slash", stateID: "team/"},
		{name: "double slash", stateID: "team//job"},
		{name: "nested dot dot", stateID: "team/../../escape"},
		{name: "backslash", stateID: `a\b`},
		{name: "bad part", stateID: "ok", parts: []string{"../escape"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.JobLogsDir(tt.stateID, tt.parts...)
			assert.Error(t, err)
		})
	}
}

func TestRunDirDoesNotCreate(t *testing.T) {
	root := t.TempDir()
	p, err := New(root)
	require.NoError(t, err)

	dir := p.RunDir("elt", "dev-job")
	assert.Equal(t, filepath.Join(root, "run", "elt", "dev-job"), dir)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPluginLockPath(t *testing.T) {
	root := t.TempDir()
	p, err := New(root)
	require.NoError(t, err)

	path, err := p.PluginLockPath("extractors", "tap-github", "meltanolabs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "plugins", "extractors", "tap-github--meltanolabs.lock.json"), path)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	path, err = p.PluginLockPath("loaders", "target-jsonl", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "plugins", "loaders", "target-jsonl.lock.json"), path)

	_, err = p.PluginLockPath("", "x", "y")
	assert.Error(t, err)
	_, err = p.PluginLockPath("extractors", "x", "a/b")
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"dev:tap-github-to-target-jsonl": "dev-tap-github-to-target-jsonl",
		"  Hello World  ":                "hello-world",
		"a__b--c":                        "a-b-c",
		"--x--":                          "x",
		"":                               "",
		"Ünïcode Job":                    "ünïcode-job",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}
