package joblog

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingJobLog is returned when no log exists for a state id, or the
	// newest one disappeared before it could be read.
	ErrMissingJobLog = errors.New("missing job log")

	// ErrSizeThreshold is returned when a log is too large to read into memory.
	ErrSizeThreshold = errors.New("job log size threshold exceeded")
)

// SizeThresholdError describes a log that exceeds the in-memory read ceiling.
// Use GetDownloadableLog to access it by path instead.
type SizeThresholdError struct {
	StateID string
	Path    string
	Size    int64
	Limit   int64
}

func (e *SizeThresholdError) Error() string {
	return fmt.Sprintf("log file %s for job with ID %q is %d bytes, exceeding %d",
		e.Path, e.StateID, e.Size, e.Limit)
}

func (e *SizeThresholdError) Is(target error) bool {
	return target == ErrSizeThreshold
}

func noLogsError(stateID string) error {
	return fmt.Errorf("%w: could not find any log for job with ID %q", ErrMissingJobLog, stateID)
}

func vanishedError(stateID, path string, err error) error {
	return fmt.Errorf("%w: cannot read log for job with ID %q: %s is missing: %w",
		ErrMissingJobLog, stateID, path, err)
}
