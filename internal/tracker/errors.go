package tracker

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed field, exceeded length, invalid
// enum value, or invalid JSON shape.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Detail
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Detail)
}

// NotFoundError reports a reference to an unknown or soft-deleted row.
// Tasks and entities are addressed by numeric ID, workspaces by their
// string identity.
type NotFoundError struct {
	Kind string // "task", "entity", "link", "workspace"
	ID   int64
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ConflictError reports a duplicate active identifier, duplicate active
// link, or a double delete.
type ConflictError struct {
	Kind   string
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Kind, e.Detail)
}

// TransitionError reports an illegal status transition, naming both
// endpoints so the caller can see exactly what was attempted.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// DependencyError reports a dependency that prevents completing a task:
// the dependency is missing, deleted, or not yet done.
type DependencyError struct {
	TaskID       int64
	DependencyID int64
	Reason       string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("task %d cannot be completed: dependency %d %s", e.TaskID, e.DependencyID, e.Reason)
}

// PaginationError reports an out-of-range limit or offset.
type PaginationError struct {
	Field string
	Value int
	Max   int
}

func (e *PaginationError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("invalid %s %d: must be between 1 and %d", e.Field, e.Value, e.Max)
	}
	return fmt.Sprintf("invalid %s %d: must be >= 0", e.Field, e.Value)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
