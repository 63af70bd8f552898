package pluginlock

import (
	"errors"
	"fmt"

	"github.com/mattjoyce/pipekeep/internal/plugin"
)

// ErrLockfileExists matches any *AlreadyExistsError via errors.Is.
var ErrLockfileExists = errors.New("lockfile already exists")

// AlreadyExistsError is returned by Service.Save when a lockfile is already
// present and overwriting was not requested. The file is left untouched.
type AlreadyExistsError struct {
	Path   string
	Plugin plugin.Ref
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("lockfile already exists: %s (plugin %s)", e.Path, e.Plugin)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrLockfileExists
}
