// Package history keeps an append-only record of plugin lock operations in
// SQLite. The lockfiles on disk stay authoritative; the history answers "who
// locked what, when, and with which checksum".
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/pipekeep/internal/plugin"
)

// timeLayout is fixed width so locked_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one successful lockfile write.
type Entry struct {
	ID       string
	Plugin   plugin.Ref
	Variant  string
	Path     string
	SHA256   string
	LockedAt time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

// Record appends e. A missing ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Plugin.Name == "" || e.Plugin.Type == "" {
		return fmt.Errorf("history entry has no plugin")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.LockedAt.IsZero() {
		e.LockedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO plugin_lock_history(id, plugin_type, plugin_name, variant, path, sha256, locked_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, e.ID, string(e.Plugin.Type), e.Plugin.Name, e.Variant, e.Path, e.SHA256, e.LockedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert lock history: %w", err)
	}
	return nil
}

// List returns the history of ref, newest first.
func (s *Store) List(ctx context.Context, ref plugin.Ref) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, plugin_type, plugin_name, variant, path, sha256, locked_at
FROM plugin_lock_history
WHERE plugin_type = ? AND plugin_name = ?
ORDER BY locked_at DESC, rowid DESC;
`, string(ref.Type), ref.Name)
	if err != nil {
		return nil, fmt.Errorf("query lock history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			pluginType string
			lockedAt   string
		)
		if err := rows.Scan(&e.ID, &pluginType, &e.Plugin.Name, &e.Variant, &e.Path, &e.SHA256, &lockedAt); err != nil {
			return nil, fmt.Errorf("scan lock history: %w", err)
		}
		e.Plugin.Type = plugin.Type(pluginType)
		e.LockedAt, err = time.Parse(timeLayout, lockedAt)
		if err != nil {
			return nil, fmt.Errorf("parse locked_at %q: %w", lockedAt, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lock history: %w", err)
	}
	return out, nil
}
