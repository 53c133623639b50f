/*
Package registry owns the single shared database that maps workspace
identities to paths and records every tool invocation. It has an
independent lifecycle from the per-workspace stores: registration never
touches workspace data, and dropping a workspace store leaves its
registry record (and usage history) intact.
*/
package registry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/internal/workspace"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id             TEXT PRIMARY KEY,
	workspace_path TEXT NOT NULL UNIQUE,
	friendly_name  TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	last_accessed  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tool_usage (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	tool_name    TEXT NOT NULL,
	workspace_id TEXT NOT NULL REFERENCES workspaces(id),
	timestamp    TEXT NOT NULL,
	success      INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_tool_usage_workspace ON tool_usage(workspace_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_tool_usage_tool ON tool_usage(tool_name);
`

// Workspace is one registered workspace.
type Workspace struct {
	ID           string    `json:"id"`
	Path         string    `json:"workspace_path"`
	FriendlyName string    `json:"friendly_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// UsageStat aggregates invocations of one tool.
type UsageStat struct {
	ToolName string    `json:"tool_name"`
	Calls    int       `json:"calls"`
	Failures int       `json:"failures"`
	LastUsed time.Time `json:"last_used"`
}

// Store is the shared registry database.
type Store struct {
	db *sql.DB
}

// Open opens (creating lazily) the registry database and ensures its
// schema.
func Open(dbPath string, busyTimeout time.Duration) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init registry schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the registry handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register upserts a workspace record: inserted on first sight,
// otherwise only last_accessed is refreshed. Returns the workspace id.
func (s *Store) Register(absPath string) (string, error) {
	id := workspace.Hash(absPath)
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO workspaces (id, workspace_path, created_at, last_accessed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_accessed = excluded.last_accessed
	`, id, absPath, now, now)
	if err != nil {
		return "", fmt.Errorf("register workspace %s: %w", absPath, err)
	}
	return id, nil
}

// SetFriendlyName updates the display name of a registered workspace.
func (s *Store) SetFriendlyName(id, name string) error {
	res, err := s.db.Exec(`UPDATE workspaces SET friendly_name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("set friendly name: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &tracker.NotFoundError{Kind: "workspace", Name: id}
	}
	return nil
}

// Get returns one workspace record by id.
func (s *Store) Get(id string) (*Workspace, error) {
	var w Workspace
	var createdAt, lastAccessed string
	err := s.db.QueryRow(`
		SELECT id, workspace_path, friendly_name, created_at, last_accessed
		FROM workspaces WHERE id = ?
	`, id).Scan(&w.ID, &w.Path, &w.FriendlyName, &createdAt, &lastAccessed)
	if err == sql.ErrNoRows {
		return nil, &tracker.NotFoundError{Kind: "workspace", Name: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query workspace %s: %w", id, err)
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	w.LastAccessed, _ = time.Parse(time.RFC3339, lastAccessed)
	return &w, nil
}

// List returns every registered workspace, most recently accessed
// first.
func (s *Store) List() ([]Workspace, error) {
	rows, err := s.db.Query(`
		SELECT id, workspace_path, friendly_name, created_at, last_accessed
		FROM workspaces ORDER BY last_accessed DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Workspace
	for rows.Next() {
		var w Workspace
		var createdAt, lastAccessed string
		if err := rows.Scan(&w.ID, &w.Path, &w.FriendlyName, &createdAt, &lastAccessed); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		w.LastAccessed, _ = time.Parse(time.RFC3339, lastAccessed)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return out, nil
}

// RecordToolUsage appends one invocation to the audit trail. The trail
// is append-only; there is no update or delete path.
func (s *Store) RecordToolUsage(toolName, workspaceID string, success bool) error {
	succ := 0
	if success {
		succ = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO tool_usage (tool_name, workspace_id, timestamp, success)
		VALUES (?, ?, ?, ?)
	`, toolName, workspaceID, time.Now().UTC().Format(time.RFC3339), succ)
	if err != nil {
		return fmt.Errorf("record tool usage: %w", err)
	}
	return nil
}

// UsageStats aggregates tool invocations for a workspace over the last
// N days, optionally restricted to one tool.
func (s *Store) UsageStats(workspaceID string, days int, toolName string) ([]UsageStat, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	query := `
		SELECT tool_name, COUNT(*),
		       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
		       MAX(timestamp)
		FROM tool_usage
		WHERE workspace_id = ? AND timestamp >= ?`
	args := []any{workspaceID, cutoff}
	if toolName != "" {
		query += ` AND tool_name = ?`
		args = append(args, toolName)
	}
	query += ` GROUP BY tool_name ORDER BY COUNT(*) DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []UsageStat
	for rows.Next() {
		var st UsageStat
		var lastUsed string
		if err := rows.Scan(&st.ToolName, &st.Calls, &st.Failures, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan usage stat: %w", err)
		}
		st.LastUsed, _ = time.Parse(time.RFC3339, lastUsed)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("usage stats: %w", err)
	}
	return stats, nil
}
