package pluginlock

import (
	"context"
	"log/slog"
	"time"

	"github.com/mattjoyce/pipekeep/internal/history"
	"github.com/mattjoyce/pipekeep/internal/log"
	"github.com/mattjoyce/pipekeep/internal/plugin"
	"github.com/mattjoyce/pipekeep/internal/project"
)

//go:generate mockgen -destination=mocks/mock_history.go -package=mocks github.com/mattjoyce/pipekeep/internal/pluginlock History

// History receives a record of every lockfile the service writes.
type History interface {
	Record(ctx context.Context, e history.Entry) error
}

// Service writes lockfiles while refusing to clobber existing ones unless
// asked to.
type Service struct {
	project *project.Project
	logger  *slog.Logger
	history History
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithHistory records successful saves in h.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

func NewService(p *project.Project, opts ...Option) *Service {
	s := &Service{
		project: p,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithComponent("pluginlock")
	}
	return s
}

// Lock returns the lock for pp without touching the disk.
func (s *Service) Lock(pp *plugin.ProjectPlugin) (*Lock, error) {
	return New(s.project, pp)
}

// Save writes the lockfile for pp. If one already exists and existsOK is
// false, it returns *AlreadyExistsError and leaves the file as it was. The
// check and the write are not atomic.
func (s *Service) Save(ctx context.Context, pp *plugin.ProjectPlugin, existsOK bool) (*Lock, error) {
	lock, err := New(s.project, pp)
	if err != nil {
		return nil, err
	}

	exists, err := lock.Exists()
	if err != nil {
		return nil, err
	}
	if exists && !existsOK {
		return nil, &AlreadyExistsError{Path: lock.Path, Plugin: pp.Ref()}
	}

	if err := lock.Save(); err != nil {
		return nil, err
	}
	s.logger.Debug("Locked plugin definition", "path", lock.Path, "plugin", lock.Plugin.String(), "variant", lock.Variant.Name)

	s.record(ctx, lock)
	return lock, nil
}

// record is best effort: the lockfile is already on disk.
func (s *Service) record(ctx context.Context, lock *Lock) {
	if s.history == nil {
		return
	}

	sum, err := lock.SHA256Checksum()
	if err != nil {
		s.logger.Warn("failed to checksum lockfile for history", "path", lock.Path, "error", err.Error())
		return
	}

	entry := history.Entry{
		Plugin:   lock.Plugin,
		Variant:  lock.Variant.Name,
		Path:     lock.Path,
		SHA256:   sum,
		LockedAt: s.now().UTC(),
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record lock history", "path", lock.Path, "error", err.Error())
	}
}
