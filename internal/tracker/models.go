/*
Package tracker defines the task/entity domain model and its rules: the
status state machine, dependency gating, tag normalization, and the
summary/details view shaping used by every listing operation.

Persistence lives in internal/store; this package holds the pure rules
so they can be validated without a database.
*/
package tracker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Priority represents the priority level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// EntityType classifies an entity. Arbitrary domain objects (vendors,
// tickets, ...) collapse into EntityOther with Metadata carrying their
// shape; the enum is deliberately closed.
type EntityType string

const (
	EntityFile  EntityType = "file"
	EntityOther EntityType = "other"
)

// Field length limits enforced on every write.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 10000
	MaxIdentifierLen  = 1000
)

// Task is a unit of work inside one workspace.
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title" validate:"required,min=1,max=500"`
	Description    string     `json:"description,omitempty" validate:"max=10000"`
	Status         Status     `json:"status" validate:"required,oneof=todo in_progress blocked done cancelled"`
	Priority       Priority   `json:"priority" validate:"required,oneof=low medium high"`
	ParentTaskID   *int64     `json:"parent_task_id,omitempty"`
	DependsOn      []int64    `json:"depends_on,omitempty"`
	Tags           string     `json:"tags,omitempty"`
	BlockerReason  string     `json:"blocker_reason,omitempty"`
	FileReferences []string   `json:"file_references,omitempty"`
	CreatedBy      string     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// Entity is a typed domain object (file, vendor, ...) inside one
// workspace. Metadata is an opaque JSON document; the tracker only
// guarantees it is well-formed, never a particular shape.
type Entity struct {
	ID          int64           `json:"id"`
	EntityType  EntityType      `json:"entity_type" validate:"required,oneof=file other"`
	Name        string          `json:"name" validate:"required,min=1,max=500"`
	Identifier  string          `json:"identifier,omitempty" validate:"max=1000"`
	Description string          `json:"description,omitempty" validate:"max=10000"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Tags        string          `json:"tags,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

// Link connects a task to an entity. At most one non-deleted link may
// exist per (task, entity) pair; soft deletes of either side cascade to
// their links.
type Link struct {
	ID        int64      `json:"id"`
	TaskID    int64      `json:"task_id"`
	EntityID  int64      `json:"entity_id"`
	CreatedBy string     `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

var validate = validator.New()

// Validate checks field constraints and the blocker invariant:
// status == blocked if and only if a blocker reason is present.
func (t *Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		return wrapValidatorError(err)
	}
	if t.Status == StatusBlocked && strings.TrimSpace(t.BlockerReason) == "" {
		return &ValidationError{Field: "blocker_reason", Detail: "blocker_reason is required when status is blocked"}
	}
	if t.Status != StatusBlocked && strings.TrimSpace(t.BlockerReason) != "" {
		return &ValidationError{Field: "blocker_reason", Detail: fmt.Sprintf("blocker_reason is only allowed when status is blocked (status is %s)", t.Status)}
	}
	return nil
}

// Validate checks entity field constraints and that Metadata, when
// present, is well-formed JSON.
func (e *Entity) Validate() error {
	if err := validate.Struct(e); err != nil {
		return wrapValidatorError(err)
	}
	if len(e.Metadata) > 0 && !json.Valid(e.Metadata) {
		return &ValidationError{Field: "metadata", Detail: "metadata must be valid JSON"}
	}
	return nil
}

func wrapValidatorError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Detail: err.Error()}
	}
	e := verrs[0]
	return &ValidationError{
		Field:  strings.ToLower(e.Field()),
		Detail: fmt.Sprintf("failed rule %q (value %q)", e.Tag(), fmt.Sprint(e.Value())),
	}
}

// ParsePriority validates a priority string, defaulting blank to medium.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.TrimSpace(strings.ToLower(s))) {
	case "":
		return PriorityMedium, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	}
	return "", &ValidationError{Field: "priority", Detail: fmt.Sprintf("invalid priority %q (valid: low, medium, high)", s)}
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(s))) {
	case StatusTodo:
		return StatusTodo, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusBlocked:
		return StatusBlocked, nil
	case StatusDone:
		return StatusDone, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", &ValidationError{Field: "status", Detail: fmt.Sprintf("invalid status %q (valid: todo, in_progress, blocked, done, cancelled)", s)}
}

// ParseEntityType validates an entity type string.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(strings.TrimSpace(strings.ToLower(s))) {
	case EntityFile:
		return EntityFile, nil
	case EntityOther:
		return EntityOther, nil
	}
	return "", &ValidationError{Field: "entity_type", Detail: fmt.Sprintf("invalid entity_type %q (valid: file, other)", s)}
}
