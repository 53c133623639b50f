package store

import (
	"fmt"
)

// TaskAuditRow is a raw projection of one task for integrity scans.
// File references are returned as the stored JSON text so the scanner
// can decide how to treat malformed values instead of the store
// silently repairing them.
type TaskAuditRow struct {
	ID                int64
	Title             string
	Description       string
	Tags              string
	RawFileReferences string
	Deleted           bool
}

// EntityAuditRow is a raw projection of one entity for integrity scans.
type EntityAuditRow struct {
	ID         int64
	EntityType string
	Name       string
	Identifier string
	Tags       string
	Deleted    bool
}

// AuditTasks returns every non-deleted task row (or every row when
// includeDeleted is set) as raw audit projections.
func (s *Store) AuditTasks(includeDeleted bool) ([]TaskAuditRow, error) {
	query := `SELECT id, title, description, tags, file_references, deleted_at IS NOT NULL FROM tasks`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("scan tasks for audit: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TaskAuditRow
	for rows.Next() {
		var r TaskAuditRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Tags, &r.RawFileReferences, &r.Deleted); err != nil {
			return nil, fmt.Errorf("scan task audit row: %w", err)
		}
		out = append(out, r)
	}
	return out, checkRowsErr(rows)
}

// AuditEntities returns every non-deleted entity row (or every row when
// includeDeleted is set) as raw audit projections.
func (s *Store) AuditEntities(includeDeleted bool) ([]EntityAuditRow, error) {
	query := `SELECT id, entity_type, name, COALESCE(identifier, ''), tags, deleted_at IS NOT NULL FROM entities`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("scan entities for audit: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []EntityAuditRow
	for rows.Next() {
		var r EntityAuditRow
		if err := rows.Scan(&r.ID, &r.EntityType, &r.Name, &r.Identifier, &r.Tags, &r.Deleted); err != nil {
			return nil, fmt.Errorf("scan entity audit row: %w", err)
		}
		out = append(out, r)
	}
	return out, checkRowsErr(rows)
}
