package tracker

import (
	"fmt"
	"time"
)

// Mode selects how much of a row a read operation returns.
type Mode string

const (
	// ModeSummary returns a fixed reduced projection.
	ModeSummary Mode = "summary"
	// ModeDetails returns the full row.
	ModeDetails Mode = "details"
)

// ParseMode validates a mode string. Blank defaults to summary; any
// other unknown value is rejected, never silently mapped.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeSummary, nil
	case ModeSummary:
		return ModeSummary, nil
	case ModeDetails:
		return ModeDetails, nil
	}
	return "", &ValidationError{Field: "mode", Detail: fmt.Sprintf("invalid mode %q (valid: summary, details)", s)}
}

// TaskSummary is the reduced task projection.
type TaskSummary struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	Tags         string     `json:"tags,omitempty"`
	ParentTaskID *int64     `json:"parent_task_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// EntitySummary is the reduced entity projection.
type EntitySummary struct {
	ID         int64      `json:"id"`
	EntityType EntityType `json:"entity_type"`
	Name       string     `json:"name"`
	Identifier string     `json:"identifier,omitempty"`
	Tags       string     `json:"tags,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Summarize returns the task's summary projection.
func (t *Task) Summarize() TaskSummary {
	return TaskSummary{
		ID:           t.ID,
		Title:        t.Title,
		Status:       t.Status,
		Priority:     t.Priority,
		Tags:         t.Tags,
		ParentTaskID: t.ParentTaskID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		CompletedAt:  t.CompletedAt,
	}
}

// Summarize returns the entity's summary projection.
func (e *Entity) Summarize() EntitySummary {
	return EntitySummary{
		ID:         e.ID,
		EntityType: e.EntityType,
		Name:       e.Name,
		Identifier: e.Identifier,
		Tags:       e.Tags,
		CreatedAt:  e.CreatedAt,
	}
}
