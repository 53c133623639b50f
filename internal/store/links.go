package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskmesh/taskmesh/internal/tracker"
)

// LinkedEntity is an entity joined with the metadata of the link that
// attaches it to a task. Link metadata is always carried regardless of
// view mode.
type LinkedEntity struct {
	Entity        tracker.Entity `json:"entity"`
	LinkCreatedAt time.Time      `json:"link_created_at"`
	LinkCreatedBy string         `json:"link_created_by,omitempty"`
}

// LinkedTask is a task joined with the metadata of its link.
type LinkedTask struct {
	Task          tracker.Task `json:"task"`
	LinkCreatedAt time.Time    `json:"link_created_at"`
	LinkCreatedBy string       `json:"link_created_by,omitempty"`
}

// LinkTaskEntity creates an active link between a task and an entity.
// It fails if either side is missing or deleted, or if an active link
// for the pair already exists.
func (s *Store) LinkTaskEntity(taskID, entityID int64, createdBy string) (*tracker.Link, error) {
	if _, err := s.GetTask(taskID, false); err != nil {
		return nil, err
	}
	if _, err := s.GetEntity(entityID, false); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.Exec(`
		INSERT INTO task_entity_links (task_id, entity_id, created_by, created_at)
		VALUES (?, ?, ?, ?)
	`, taskID, entityID, createdBy, now.Format(time.RFC3339))
	if err != nil {
		if mapped := mapConstraintErr(err, "link"); tracker.IsConflict(mapped) {
			return nil, &tracker.ConflictError{Kind: "link", Detail: fmt.Sprintf("task %d is already linked to entity %d", taskID, entityID)}
		} else {
			return nil, mapped
		}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("link insert id: %w", err)
	}
	return &tracker.Link{ID: id, TaskID: taskID, EntityID: entityID, CreatedBy: createdBy, CreatedAt: now}, nil
}

// GetTaskEntities returns one page of entities actively linked to a
// task, each with its link metadata.
func (s *Store) GetTaskEntities(taskID int64, limit, offset int) ([]LinkedEntity, int, error) {
	if _, err := s.GetTask(taskID, false); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM task_entity_links l
		JOIN entities e ON e.id = l.entity_id
		WHERE l.task_id = ? AND l.deleted_at IS NULL AND e.deleted_at IS NULL
	`, taskID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count task entities: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT `+prefixColumns("e", entityColumns)+`, l.created_at, l.created_by
		FROM task_entity_links l
		JOIN entities e ON e.id = l.entity_id
		WHERE l.task_id = ? AND l.deleted_at IS NULL AND e.deleted_at IS NULL
		ORDER BY l.created_at ASC, l.id ASC
		LIMIT ? OFFSET ?
	`, taskID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query task entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var linked []LinkedEntity
	for rows.Next() {
		le, err := scanLinkedEntity(rows)
		if err != nil {
			return nil, 0, err
		}
		linked = append(linked, le)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, 0, err
	}
	return linked, total, nil
}

// GetEntityTasks returns one page of tasks actively linked to an
// entity, each with its link metadata.
func (s *Store) GetEntityTasks(entityID int64, limit, offset int) ([]LinkedTask, int, error) {
	if _, err := s.GetEntity(entityID, false); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM task_entity_links l
		JOIN tasks t ON t.id = l.task_id
		WHERE l.entity_id = ? AND l.deleted_at IS NULL AND t.deleted_at IS NULL
	`, entityID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count entity tasks: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT `+prefixColumns("t", taskColumns)+`, l.created_at, l.created_by
		FROM task_entity_links l
		JOIN tasks t ON t.id = l.task_id
		WHERE l.entity_id = ? AND l.deleted_at IS NULL AND t.deleted_at IS NULL
		ORDER BY l.created_at ASC, l.id ASC
		LIMIT ? OFFSET ?
	`, entityID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query entity tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var linked []LinkedTask
	for rows.Next() {
		lt, err := scanLinkedTask(rows)
		if err != nil {
			return nil, 0, err
		}
		linked = append(linked, lt)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, 0, err
	}
	return linked, total, nil
}

// CountActiveLinks counts links whose both endpoints are active.
func (s *Store) CountActiveLinks() (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM task_entity_links l
		JOIN tasks t ON t.id = l.task_id
		JOIN entities e ON e.id = l.entity_id
		WHERE l.deleted_at IS NULL AND t.deleted_at IS NULL AND e.deleted_at IS NULL
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return n, nil
}

func scanLinkedEntity(rows rowScanner) (LinkedEntity, error) {
	var le LinkedEntity
	var identifier, metadata, deletedAt sql.NullString
	var createdAt, updatedAt, linkCreatedAt string

	err := rows.Scan(&le.Entity.ID, &le.Entity.EntityType, &le.Entity.Name, &identifier,
		&le.Entity.Description, &metadata, &le.Entity.Tags, &le.Entity.CreatedBy,
		&createdAt, &updatedAt, &deletedAt, &linkCreatedAt, &le.LinkCreatedBy)
	if err != nil {
		return le, fmt.Errorf("scan linked entity: %w", err)
	}

	le.Entity.Identifier = identifier.String
	if metadata.Valid && metadata.String != "" {
		le.Entity.Metadata = []byte(metadata.String)
	}
	le.Entity.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	le.Entity.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	le.LinkCreatedAt, _ = time.Parse(time.RFC3339, linkCreatedAt)
	return le, nil
}

func scanLinkedTask(rows rowScanner) (LinkedTask, error) {
	var lt LinkedTask
	var linkCreatedAt, linkCreatedBy string

	// Scan the task columns followed by the link metadata.
	dest := []any{}
	var parentID sql.NullInt64
	var dependsJSON, filesJSON, createdAt, updatedAt string
	var completedAt, deletedAt sql.NullString
	dest = append(dest,
		&lt.Task.ID, &lt.Task.Title, &lt.Task.Description, &lt.Task.Status, &lt.Task.Priority,
		&parentID, &dependsJSON, &lt.Task.Tags, &lt.Task.BlockerReason, &filesJSON,
		&lt.Task.CreatedBy, &createdAt, &updatedAt, &completedAt, &deletedAt,
		&linkCreatedAt, &linkCreatedBy,
	)
	if err := rows.Scan(dest...); err != nil {
		return lt, fmt.Errorf("scan linked task: %w", err)
	}

	if parentID.Valid {
		v := parentID.Int64
		lt.Task.ParentTaskID = &v
	}
	lt.Task.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	lt.Task.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	lt.Task.CompletedAt = parseTimePtr(completedAt)
	_ = json.Unmarshal([]byte(dependsJSON), &lt.Task.DependsOn)
	_ = json.Unmarshal([]byte(filesJSON), &lt.Task.FileReferences)
	lt.LinkCreatedAt, _ = time.Parse(time.RFC3339, linkCreatedAt)
	lt.LinkCreatedBy = linkCreatedBy
	return lt, nil
}
