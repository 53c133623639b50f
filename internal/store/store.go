/*
Package store owns the per-workspace SQLite database: schema creation,
task/entity/link persistence, and the soft-delete discipline.

Each workspace id maps to exactly one database file. The schema is
applied idempotently on every open, so a store is always usable after
OpenStore returns. Uniqueness of active (entity_type, identifier) pairs
and of active (task_id, entity_id) links is enforced by partial unique
indexes; constraint violations are re-mapped to domain errors at this
boundary so callers never see a raw driver error.
*/
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/taskmesh/taskmesh/internal/tracker"
	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout bounds how long a write waits for the single
// writer lock before failing instead of hanging.
const DefaultBusyTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'todo'
	                CHECK(status IN ('todo', 'in_progress', 'blocked', 'done', 'cancelled')),
	priority        TEXT NOT NULL DEFAULT 'medium'
	                CHECK(priority IN ('low', 'medium', 'high')),
	parent_task_id  INTEGER REFERENCES tasks(id),
	depends_on      TEXT NOT NULL DEFAULT '[]',
	tags            TEXT NOT NULL DEFAULT '',
	blocker_reason  TEXT NOT NULL DEFAULT '',
	file_references TEXT NOT NULL DEFAULT '[]',
	created_by      TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	completed_at    TEXT,
	deleted_at      TEXT
);

CREATE TABLE IF NOT EXISTS entities (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL CHECK(entity_type IN ('file', 'other')),
	name        TEXT NOT NULL,
	identifier  TEXT,
	description TEXT NOT NULL DEFAULT '',
	metadata    TEXT,
	tags        TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	deleted_at  TEXT
);

CREATE TABLE IF NOT EXISTS task_entity_links (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    INTEGER NOT NULL REFERENCES tasks(id),
	entity_id  INTEGER NOT NULL REFERENCES entities(id),
	created_by TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	deleted_at TEXT
);

-- Partial indexes scope queries and uniqueness to active rows only, so
-- a soft-deleted entity can be recreated with the same identifier.
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_active_identifier
	ON entities(entity_type, identifier)
	WHERE deleted_at IS NULL AND identifier IS NOT NULL AND identifier != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_links_active_pair
	ON task_entity_links(task_id, entity_id)
	WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_tasks_active_status ON tasks(status) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_tasks_active_parent ON tasks(parent_task_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_entities_active_type ON entities(entity_type) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_links_active_task ON task_entity_links(task_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_links_active_entity ON task_entity_links(entity_id) WHERE deleted_at IS NULL;
`

// Store is the persistence layer for one workspace.
type Store struct {
	db          *sql.DB
	path        string
	workspaceID string
}

// OpenStore opens (creating on first use) the database for a workspace
// and guarantees its schema is present before returning.
func OpenStore(dbPath, workspaceID string, busyTimeout time.Duration) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open workspace database: %w", err)
	}

	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: dbPath, workspaceID: workspaceID}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema for workspace %s: %w", workspaceID, err)
	}
	return s, nil
}

// initSchema creates tables and indexes if absent. Safe to call on
// every open.
func (s *Store) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// WorkspaceID returns the workspace identity this store belongs to.
func (s *Store) WorkspaceID() string {
	return s.workspaceID
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// mapConstraintErr converts SQLite constraint violations into domain
// errors. Anything unrecognized is returned wrapped with context.
func mapConstraintErr(err error, kind string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &tracker.ConflictError{Kind: kind, Detail: "an active row with the same identity already exists"}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &tracker.ValidationError{Field: kind, Detail: "referenced row does not exist"}
	case strings.Contains(msg, "CHECK constraint failed"):
		return &tracker.ValidationError{Field: kind, Detail: "value rejected by storage constraint"}
	}
	return fmt.Errorf("%s write: %w", kind, err)
}

// nullTimeString returns nil for zero time, RFC3339 string otherwise.
func nullTimeString(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTimePtr parses an optional RFC3339 column into a *time.Time.
func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// prefixColumns qualifies a comma-separated column list with a table
// alias for use in join queries.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// checkRowsErr surfaces deferred iteration errors from rows.Next.
func checkRowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration: %w", err)
	}
	return nil
}
