package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNetworkFilesystem matches any *NetworkFilesystemError via errors.Is.
var ErrNetworkFilesystem = errors.New("database is on a network filesystem")

var errDetectionUnsupported = errors.New("filesystem detection is unsupported on this platform")

// SQLite file locking is unreliable on these.
var networkFilesystems = map[string]struct{}{
	"9p":     {},
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smb2":   {},
	"smbfs":  {},
	"webdav": {},
}

// NetworkFilesystemError reports a history database placed on a network mount.
type NetworkFilesystemError struct {
	Path       string
	Filesystem string
}

func (e *NetworkFilesystemError) Error() string {
	return fmt.Sprintf("history database %s is on network filesystem %q; SQLite requires a local filesystem for reliable locking. "+
		"Set plugins.history_db to a local path, or leave it empty to disable lock history", e.Path, e.Filesystem)
}

func (e *NetworkFilesystemError) Is(target error) bool {
	return target == ErrNetworkFilesystem
}

// checkLocalFilesystem rejects database paths on network mounts. The path may
// not exist yet; its closest existing ancestor is inspected instead. Platforms
// without detection pass.
func checkLocalFilesystem(path string) error {
	return checkLocalFilesystemWith(path, filesystemType)
}

func checkLocalFilesystemWith(path string, detect func(dir string) (string, error)) error {
	dir, err := existingAncestor(path)
	if err != nil {
		return err
	}

	fsType, err := detect(dir)
	switch {
	case errors.Is(err, errDetectionUnsupported):
		return nil
	case err != nil:
		return fmt.Errorf("detect filesystem of history database %s: %w", path, err)
	}

	fsType = strings.ToLower(strings.TrimSpace(fsType))
	if _, remote := networkFilesystems[fsType]; remote {
		return &NetworkFilesystemError{Path: path, Filesystem: fsType}
	}
	return nil
}

// existingAncestor returns the absolute path itself when it exists, otherwise
// the nearest parent that does.
func existingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve history database path %q: %w", path, err)
	}

	for dir := abs; ; {
		_, err := os.Stat(dir)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing ancestor of %s", abs)
		}
		dir = parent
	}
}
