package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedFilesystem(name string) func(string) (string, error) {
	return func(string) (string, error) { return name, nil }
}

func TestCheckLocalFilesystem(t *testing.T) {
	tests := []struct {
		name    string
		fsType  string
		wantErr bool
	}{
		{name: "ext4", fsType: "ext4"},
		{name: "apfs", fsType: "apfs"},
		{name: "unknown linux magic", fsType: "0x6a656a63"},
		{name: "nfs", fsType: "nfs", wantErr: true},
		{name: "smbfs uppercase", fsType: "SMBFS", wantErr: true},
		{name: "9p", fsType: "9p", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.db")
			err := checkLocalFilesystemWith(path, fixedFilesystem(tt.fsType))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrNetworkFilesystem)
			var nfsErr *NetworkFilesystemError
			require.True(t, errors.As(err, &nfsErr))
			assert.Equal(t, path, nfsErr.Path)
			assert.Contains(t, err.Error(), "plugins.history_db")
		})
	}
}

func TestCheckLocalFilesystemInspectsExistingAncestor(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "state", "nested", "history.db")

	var inspected string
	err := checkLocalFilesystemWith(path, func(dir string) (string, error) {
		inspected = dir
		return "ext4", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, inspected)
}

func TestCheckLocalFilesystemUnsupportedPlatformPasses(t *testing.T) {
	err := checkLocalFilesystemWith(filepath.Join(t.TempDir(), "history.db"), func(string) (string, error) {
		return "", errDetectionUnsupported
	})
	assert.NoError(t, err)
}

func TestCheckLocalFilesystemDetectorFailure(t *testing.T) {
	err := checkLocalFilesystemWith(filepath.Join(t.TempDir(), "history.db"), func(string) (string, error) {
		return "", errors.New("statfs: permission denied")
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNetworkFilesystem)
}

func TestFilesystemTypeOfTempDir(t *testing.T) {
	name, err := filesystemType(t.TempDir())
	if errors.Is(err, errDetectionUnsupported) {
		t.Skip("no filesystem detection on this platform")
	}
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}
