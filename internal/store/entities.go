package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taskmesh/taskmesh/internal/tracker"
)

const entityColumns = `id, entity_type, name, identifier, description, metadata, tags,
	created_by, created_at, updated_at, deleted_at`

func scanEntity(row rowScanner) (tracker.Entity, error) {
	var e tracker.Entity
	var identifier, metadata sql.NullString
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := row.Scan(&e.ID, &e.EntityType, &e.Name, &identifier, &e.Description, &metadata,
		&e.Tags, &e.CreatedBy, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return e, err
	}

	e.Identifier = identifier.String
	if metadata.Valid && metadata.String != "" {
		e.Metadata = json.RawMessage(metadata.String)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	e.DeletedAt = parseTimePtr(deletedAt)
	return e, nil
}

// CreateEntity validates and inserts a new entity. A duplicate active
// (entity_type, identifier) pair is rejected by the partial unique
// index and surfaced as a conflict.
func (s *Store) CreateEntity(e *tracker.Entity) (*tracker.Entity, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.Tags = tracker.NormalizeTags(e.Tags)

	if err := e.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	e.CreatedAt = now
	e.UpdatedAt = now

	var metadata interface{}
	if len(e.Metadata) > 0 {
		metadata = string(e.Metadata)
	}

	res, err := s.db.Exec(`
		INSERT INTO entities (entity_type, name, identifier, description, metadata, tags, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.EntityType, e.Name, e.Identifier, e.Description, metadata, e.Tags, e.CreatedBy,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, mapConstraintErr(err, "entity")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("entity insert id: %w", err)
	}
	e.ID = id
	return e, nil
}

// GetEntity retrieves one entity by id; soft-deleted entities are only
// visible when includeDeleted is set.
func (s *Store) GetEntity(id int64, includeDeleted bool) (*tracker.Entity, error) {
	row := s.db.QueryRow(`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, &tracker.NotFoundError{Kind: "entity", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query entity %d: %w", id, err)
	}
	if e.DeletedAt != nil && !includeDeleted {
		return nil, &tracker.NotFoundError{Kind: "entity", ID: id}
	}
	return &e, nil
}

// EntityUpdate carries a partial entity update; nil fields are left
// unchanged.
type EntityUpdate struct {
	Name        *string
	Identifier  *string
	Description *string
	Metadata    *json.RawMessage
	Tags        *string
	CreatedBy   *string
}

// UpdateEntity applies a partial update to an active entity. Changing
// the identifier re-runs the active-uniqueness check at the storage
// layer.
func (s *Store) UpdateEntity(id int64, upd EntityUpdate) (*tracker.Entity, error) {
	cur, err := s.GetEntity(id, false)
	if err != nil {
		return nil, err
	}

	next := *cur
	if upd.Name != nil {
		next.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Identifier != nil {
		next.Identifier = *upd.Identifier
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	if upd.Metadata != nil {
		next.Metadata = *upd.Metadata
	}
	if upd.Tags != nil {
		next.Tags = tracker.NormalizeTags(*upd.Tags)
	}
	if upd.CreatedBy != nil {
		next.CreatedBy = *upd.CreatedBy
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	next.UpdatedAt = now

	var metadata interface{}
	if len(next.Metadata) > 0 {
		metadata = string(next.Metadata)
	}

	_, err = s.db.Exec(`
		UPDATE entities SET name = ?, identifier = ?, description = ?, metadata = ?, tags = ?, created_by = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, next.Name, next.Identifier, next.Description, metadata, next.Tags, next.CreatedBy,
		now.Format(time.RFC3339), id)
	if err != nil {
		return nil, mapConstraintErr(err, "entity")
	}
	return &next, nil
}

// EntityFilter narrows entity listing and search operations.
type EntityFilter struct {
	EntityType     tracker.EntityType
	Tags           []string
	Search         string
	IncludeDeleted bool
}

func (f EntityFilter) where() (string, []any) {
	conds := []string{"1=1"}
	var args []any
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.EntityType != "" {
		conds = append(conds, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	for _, tag := range f.Tags {
		conds = append(conds, "(' ' || tags || ' ') LIKE ?")
		args = append(args, "% "+strings.ToLower(tag)+" %")
	}
	if f.Search != "" {
		conds = append(conds, "(name LIKE ? OR identifier LIKE ? OR description LIKE ? OR tags LIKE ?)")
		wildcard := "%" + f.Search + "%"
		args = append(args, wildcard, wildcard, wildcard, wildcard)
	}
	return strings.Join(conds, " AND "), args
}

// ListEntities returns one page of entities plus the total match count.
func (s *Store) ListEntities(f EntityFilter, limit, offset int) ([]tracker.Entity, int, error) {
	where, args := f.where()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entities WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	query := `SELECT ` + entityColumns + ` FROM entities WHERE ` + where + ` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []tracker.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

// DeleteEntity soft-deletes an entity and cascades to its active
// links. Deleting an already-deleted entity is a conflict.
func (s *Store) DeleteEntity(id int64) (DeleteResult, error) {
	var result DeleteResult

	e, err := s.GetEntity(id, true)
	if err != nil {
		return result, err
	}
	if e.DeletedAt != nil {
		return result, &tracker.ConflictError{Kind: "entity", Detail: fmt.Sprintf("entity %d is already deleted", id)}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	if _, err := tx.Exec(`UPDATE entities SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, now, id); err != nil {
		return result, fmt.Errorf("soft delete entity: %w", err)
	}
	result.EntitiesDeleted = 1

	res, err := tx.Exec(`UPDATE task_entity_links SET deleted_at = ? WHERE entity_id = ? AND deleted_at IS NULL`, now, id)
	if err != nil {
		return result, fmt.Errorf("cascade delete links: %w", err)
	}
	n, _ := res.RowsAffected()
	result.LinksDeleted = int(n)

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit delete: %w", err)
	}
	return result, nil
}

// CleanupEntities physically removes entities soft-deleted more than
// the given number of days ago, along with their links.
func (s *Store) CleanupEntities(days int) (int, error) {
	if days < 0 {
		return 0, &tracker.ValidationError{Field: "days", Detail: "days must be >= 0"}
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin cleanup tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		DELETE FROM task_entity_links
		WHERE entity_id IN (SELECT id FROM entities WHERE deleted_at IS NOT NULL AND deleted_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("purge entity links: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM entities WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge entities: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return int(n), nil
}

// CountEntitiesByType aggregates active entities per type.
func (s *Store) CountEntitiesByType() (map[string]int, error) {
	return s.countGrouped(`SELECT entity_type, COUNT(*) FROM entities WHERE deleted_at IS NULL GROUP BY entity_type`)
}
