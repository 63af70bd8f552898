// Package joblog creates, discovers, reads and prunes per-run job log files.
//
// Logs live under <root>/logs/elt/<state_id>/<run_id>/<file>. Older projects
// wrote them under <root>/run/elt/<slug(state_id)>/; that directory is searched
// too when it exists, and never created.
package joblog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/pipekeep/internal/log"
	"github.com/mattjoyce/pipekeep/internal/project"
)

const (
	DefaultFileName = "elt.log"

	// MaxFileSize is the largest log GetLatestLog will load into memory (2 MiB).
	MaxFileSize int64 = 2097152

	logExt = ".log"
)

// LogFile is one run's log on disk.
type LogFile struct {
	Path      string
	CreatedAt time.Time
	Size      int64
}

// PruneReport summarizes a PruneLogs run.
type PruneReport struct {
	Deleted int
	Kept    int
}

// Service manages the log files of jobs within a project.
type Service struct {
	project         *project.Project
	logger          *slog.Logger
	maxReadBytes    int64
	defaultFileName string

	now   func() time.Time
	stamp func(os.FileInfo) time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxReadBytes overrides MaxFileSize for GetLatestLog.
func WithMaxReadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReadBytes = n
		}
	}
}

// WithDefaultFileName overrides DefaultFileName for calls that pass "".
func WithDefaultFileName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultFileName = name
		}
	}
}

// NewService returns a job log service for p.
func NewService(p *project.Project, opts ...Option) *Service {
	s := &Service{
		project:         p,
		maxReadBytes:    MaxFileSize,
		defaultFileName: DefaultFileName,
		now:             time.Now,
		stamp:           creationTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithComponent("joblog")
	}
	return s
}

// GenerateLogName returns the log path for a run, creating its directory.
// An empty fileName selects the default.
func (s *Service) GenerateLogName(stateID, runID, fileName string) (string, error) {
	if fileName == "" {
		fileName = s.defaultFileName
	}
	dir, err := s.project.JobLogsDir(stateID, runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// CreateLog opens a run's log for writing and hands it to fn, closing it on
// every exit path. If the file cannot be opened, fn receives io.Discard
// instead so the run is never blocked by its own logging.
func (s *Service) CreateLog(stateID, runID, fileName string, fn func(w io.Writer) error) (err error) {
	path, err := s.GenerateLogName(stateID, runID, fileName)
	if err != nil {
		return err
	}

	f, openErr := os.Create(path)
	if openErr != nil {
		s.logger.Warn("could not open log file for writing, using discard sink",
			"state_id", stateID,
			"run_id", runID,
			"path", path,
			"error", openErr.Error(),
		)
		return fn(io.Discard)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close log file %s: %w", path, cerr)
		}
	}()

	return fn(f)
}

// GetLatestLog returns the content of the most recent log for stateID.
func (s *Service) GetLatestLog(stateID string) (string, error) {
	latest, err := s.latest(stateID)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(latest.Path)
	if err != nil {
		return "", s.statError(stateID, latest.Path, err)
	}
	if info.Size() > s.maxReadBytes {
		return "", &SizeThresholdError{
			StateID: stateID,
			Path:    latest.Path,
			Size:    info.Size(),
			Limit:   s.maxReadBytes,
		}
	}

	data, err := os.ReadFile(latest.Path)
	if err != nil {
		return "", s.statError(stateID, latest.Path, err)
	}
	return string(data), nil
}

// GetDownloadableLog returns the resolved absolute path of the most recent
// log for stateID. There is no size limit.
func (s *Service) GetDownloadableLog(stateID string) (string, error) {
	latest, err := s.latest(stateID)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(latest.Path)
	if err != nil {
		return "", fmt.Errorf("resolve log path %s: %w", latest.Path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", s.statError(stateID, latest.Path, err)
	}
	return resolved, nil
}

// GetAllLogs returns every *.log file for stateID across the current and
// legacy layouts, newest first. Each call rescans the disk.
func (s *Service) GetAllLogs(stateID string) ([]LogFile, error) {
	dirs, err := s.logsDirs(stateID)
	if err != nil {
		return nil, err
	}

	var logs []LogFile
	for _, dir := range dirs {
		found, err := s.scan(dir)
		if err != nil {
			return nil, err
		}
		logs = append(logs, found...)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	return logs, nil
}

// DeleteAllLogs removes every log for stateID. Deletion stops at the first
// failure; files already removed stay removed.
func (s *Service) DeleteAllLogs(ctx context.Context, stateID string) error {
	logs, err := s.GetAllLogs(stateID)
	if err != nil {
		return err
	}
	for _, lf := range logs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(lf.Path); err != nil {
			return fmt.Errorf("delete log %s for job with ID %q: %w", lf.Path, stateID, err)
		}
	}
	return nil
}

// PruneLogs removes the logs of stateID created more than olderThan ago.
func (s *Service) PruneLogs(ctx context.Context, stateID string, olderThan time.Duration) (PruneReport, error) {
	if olderThan <= 0 {
		return PruneReport{}, fmt.Errorf("olderThan must be positive")
	}

	logs, err := s.GetAllLogs(stateID)
	if err != nil {
		return PruneReport{}, err
	}

	cutoff := s.now().Add(-olderThan)
	report := PruneReport{}
	for _, lf := range logs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !lf.CreatedAt.Before(cutoff) {
			report.Kept++
			continue
		}
		if err := os.Remove(lf.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return report, fmt.Errorf("prune log %s for job with ID %q: %w", lf.Path, stateID, err)
		}
		report.Deleted++
	}

	s.logger.Debug("pruned job logs", "state_id", stateID, "deleted", report.Deleted, "kept", report.Kept)
	return report, nil
}

// logsDirs lists the directories to search, current layout first.
func (s *Service) logsDirs(stateID string) ([]string, error) {
	primary, err := s.project.JobLogsDir(stateID)
	if err != nil {
		return nil, err
	}

	dirs := []string{primary}
	if legacy, ok := s.legacyLogsDir(stateID); ok {
		dirs = append(dirs, legacy)
	}
	return dirs, nil
}

func (s *Service) legacyLogsDir(stateID string) (string, bool) {
	slug := project.Slugify(stateID)
	if slug == "" {
		return "", false
	}
	dir := s.project.RunDir(project.JobLogKind, slug)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

func (s *Service) scan(dir string) ([]LogFile, error) {
	var found []LogFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// A run directory removed mid-scan is skipped like a vanished file.
			if path != dir && errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), logExt) {
			return nil
		}

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat log %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		found = append(found, LogFile{
			Path:      path,
			CreatedAt: s.stamp(info),
			Size:      info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan logs in %s: %w", dir, err)
	}
	return found, nil
}

func (s *Service) latest(stateID string) (LogFile, error) {
	logs, err := s.GetAllLogs(stateID)
	if err != nil {
		return LogFile{}, err
	}
	if len(logs) == 0 {
		return LogFile{}, noLogsError(stateID)
	}
	return logs[0], nil
}

func (s *Service) statError(stateID, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return vanishedError(stateID, path, err)
	}
	return fmt.Errorf("read log %s for job with ID %q: %w", path, stateID, err)
}
