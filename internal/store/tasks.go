package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taskmesh/taskmesh/internal/tracker"
)

const taskColumns = `id, title, description, status, priority, parent_task_id, depends_on,
	tags, blocker_reason, file_references, created_by, created_at, updated_at, completed_at, deleted_at`

// maxTreeDepth bounds subtree traversal so a corrupted parent chain can
// never loop forever.
const maxTreeDepth = 100

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (tracker.Task, error) {
	var t tracker.Task
	var parentID sql.NullInt64
	var dependsJSON, filesJSON string
	var createdAt, updatedAt string
	var completedAt, deletedAt sql.NullString

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &parentID, &dependsJSON,
		&t.Tags, &t.BlockerReason, &filesJSON, &t.CreatedBy, &createdAt, &updatedAt, &completedAt, &deletedAt,
	)
	if err != nil {
		return t, err
	}

	if parentID.Valid {
		v := parentID.Int64
		t.ParentTaskID = &v
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	t.CompletedAt = parseTimePtr(completedAt)
	t.DeletedAt = parseTimePtr(deletedAt)

	// Stored JSON may predate validation or be hand-edited; a decode
	// failure leaves the field empty rather than failing the read.
	_ = json.Unmarshal([]byte(dependsJSON), &t.DependsOn)
	_ = json.Unmarshal([]byte(filesJSON), &t.FileReferences)

	return t, nil
}

func marshalIDs(ids []int64) string {
	if ids == nil {
		ids = []int64{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func marshalStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

// CreateTask validates and inserts a new task, returning it with its
// assigned id and timestamps.
func (s *Store) CreateTask(t *tracker.Task) (*tracker.Task, error) {
	if t.Status == "" {
		t.Status = tracker.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = tracker.PriorityMedium
	}
	t.Tags = tracker.NormalizeTags(t.Tags)
	t.Title = strings.TrimSpace(t.Title)

	if err := t.Validate(); err != nil {
		return nil, err
	}

	if t.ParentTaskID != nil {
		if _, err := s.GetTask(*t.ParentTaskID, false); err != nil {
			return nil, err
		}
	}

	// A task born done is gated the same way a transition to done is.
	if t.Status == tracker.StatusDone {
		if err := s.checkDependenciesDone(0, t.DependsOn); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == tracker.StatusDone {
		t.CompletedAt = &now
	}

	var parentID interface{}
	if t.ParentTaskID != nil {
		parentID = *t.ParentTaskID
	}

	res, err := s.db.Exec(`
		INSERT INTO tasks (title, description, status, priority, parent_task_id, depends_on,
			tags, blocker_reason, file_references, created_by, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Title, t.Description, t.Status, t.Priority, parentID, marshalIDs(t.DependsOn),
		t.Tags, t.BlockerReason, marshalStrings(t.FileReferences), t.CreatedBy,
		now.Format(time.RFC3339), now.Format(time.RFC3339), nullTimeString(t.CompletedAt))
	if err != nil {
		return nil, mapConstraintErr(err, "task")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task insert id: %w", err)
	}
	t.ID = id
	return t, nil
}

// GetTask retrieves one task by id. Soft-deleted tasks are only
// returned when includeDeleted is set; they stay addressable for
// audit/history but are invisible to default reads.
func (s *Store) GetTask(id int64, includeDeleted bool) (*tracker.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, &tracker.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query task %d: %w", id, err)
	}
	if t.DeletedAt != nil && !includeDeleted {
		return nil, &tracker.NotFoundError{Kind: "task", ID: id}
	}
	return &t, nil
}

// TaskUpdate carries a partial update; nil fields are left unchanged.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *tracker.Status
	Priority       *tracker.Priority
	ParentTaskID   *int64
	RemoveParent   bool
	DependsOn      *[]int64
	Tags           *string
	BlockerReason  *string
	FileReferences *[]string
	CreatedBy      *string
}

// UpdateTask applies a partial update to an active task, enforcing the
// status state machine and dependency gating on completion.
func (s *Store) UpdateTask(id int64, upd TaskUpdate) (*tracker.Task, error) {
	cur, err := s.GetTask(id, false)
	if err != nil {
		return nil, err
	}

	next := *cur
	if upd.Title != nil {
		next.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	if upd.Priority != nil {
		next.Priority = *upd.Priority
	}
	if upd.DependsOn != nil {
		next.DependsOn = *upd.DependsOn
	}
	if upd.Tags != nil {
		next.Tags = tracker.NormalizeTags(*upd.Tags)
	}
	if upd.FileReferences != nil {
		next.FileReferences = *upd.FileReferences
	}
	if upd.BlockerReason != nil {
		next.BlockerReason = *upd.BlockerReason
	}
	if upd.CreatedBy != nil {
		next.CreatedBy = *upd.CreatedBy
	}

	switch {
	case upd.RemoveParent:
		next.ParentTaskID = nil
	case upd.ParentTaskID != nil:
		if err := s.checkParent(id, *upd.ParentTaskID); err != nil {
			return nil, err
		}
		next.ParentTaskID = upd.ParentTaskID
	}

	now := time.Now().UTC().Truncate(time.Second)
	if upd.Status != nil && *upd.Status != cur.Status {
		target := *upd.Status
		if err := tracker.CheckTransition(cur.Status, target); err != nil {
			return nil, err
		}
		if target == tracker.StatusDone {
			if err := s.checkDependenciesDone(id, next.DependsOn); err != nil {
				return nil, err
			}
			next.CompletedAt = &now
		}
		if target != tracker.StatusBlocked && upd.BlockerReason == nil {
			// Leaving blocked clears the stale reason so the
			// blocked <=> blocker_reason invariant holds. An explicit
			// reason on a non-blocked target still fails validation.
			next.BlockerReason = ""
		}
		next.Status = target
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = now

	var parentID interface{}
	if next.ParentTaskID != nil {
		parentID = *next.ParentTaskID
	}

	_, err = s.db.Exec(`
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, parent_task_id = ?,
			depends_on = ?, tags = ?, blocker_reason = ?, file_references = ?, created_by = ?,
			updated_at = ?, completed_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, next.Title, next.Description, next.Status, next.Priority, parentID,
		marshalIDs(next.DependsOn), next.Tags, next.BlockerReason, marshalStrings(next.FileReferences),
		next.CreatedBy, now.Format(time.RFC3339), nullTimeString(next.CompletedAt), id)
	if err != nil {
		return nil, mapConstraintErr(err, "task")
	}
	return &next, nil
}

// checkParent verifies the new parent exists, is active, and is not a
// descendant of the task (which would create a cycle).
func (s *Store) checkParent(taskID, parentID int64) error {
	if parentID == taskID {
		return &tracker.ValidationError{Field: "parent_task_id", Detail: "a task cannot be its own parent"}
	}
	if _, err := s.GetTask(parentID, false); err != nil {
		return err
	}
	// Walk up from the candidate parent; hitting taskID means the
	// candidate sits inside taskID's subtree.
	cursor := parentID
	for depth := 0; depth < maxTreeDepth; depth++ {
		var next sql.NullInt64
		err := s.db.QueryRow(`SELECT parent_task_id FROM tasks WHERE id = ?`, cursor).Scan(&next)
		if err == sql.ErrNoRows || !next.Valid {
			return nil
		}
		if err != nil {
			return fmt.Errorf("walk parent chain: %w", err)
		}
		if next.Int64 == taskID {
			return &tracker.ValidationError{Field: "parent_task_id", Detail: fmt.Sprintf("task %d is a descendant of task %d; linking would create a cycle", parentID, taskID)}
		}
		cursor = next.Int64
	}
	return &tracker.ValidationError{Field: "parent_task_id", Detail: "parent chain exceeds maximum depth"}
}

// checkDependenciesDone verifies every dependency resolves to an active
// task in done status, naming the first unmet dependency otherwise.
func (s *Store) checkDependenciesDone(taskID int64, deps []int64) error {
	for _, depID := range deps {
		dep, err := s.GetTask(depID, false)
		if err != nil {
			if tracker.IsNotFound(err) {
				return &tracker.DependencyError{TaskID: taskID, DependencyID: depID, Reason: "is missing or deleted"}
			}
			return err
		}
		if dep.Status != tracker.StatusDone {
			return &tracker.DependencyError{TaskID: taskID, DependencyID: depID, Reason: fmt.Sprintf("has status %s (must be done)", dep.Status)}
		}
	}
	return nil
}

// TaskFilter narrows listing and search operations.
type TaskFilter struct {
	Status         tracker.Status
	Priority       tracker.Priority
	ParentTaskID   *int64
	Tags           []string
	Search         string
	IncludeDeleted bool
}

func (f TaskFilter) where() (string, []any) {
	conds := []string{"1=1"}
	var args []any
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, f.Priority)
	}
	if f.ParentTaskID != nil {
		conds = append(conds, "parent_task_id = ?")
		args = append(args, *f.ParentTaskID)
	}
	for _, tag := range f.Tags {
		conds = append(conds, "(' ' || tags || ' ') LIKE ?")
		args = append(args, "% "+strings.ToLower(tag)+" %")
	}
	if f.Search != "" {
		conds = append(conds, "(title LIKE ? OR description LIKE ? OR tags LIKE ?)")
		wildcard := "%" + f.Search + "%"
		args = append(args, wildcard, wildcard, wildcard)
	}
	return strings.Join(conds, " AND "), args
}

// ListTasks returns one page of tasks plus the total match count.
func (s *Store) ListTasks(f TaskFilter, limit, offset int) ([]tracker.Task, int, error) {
	where, args := f.where()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []tracker.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// DeleteResult reports how many rows a soft delete touched.
type DeleteResult struct {
	TasksDeleted    int `json:"tasks_deleted"`
	EntitiesDeleted int `json:"entities_deleted"`
	LinksDeleted    int `json:"links_deleted"`
}

// DeleteTask soft-deletes a task, optionally its whole subtree, and
// cascades to every active link referencing the deleted tasks.
// Deleting an already-deleted task is a conflict, not a no-op.
func (s *Store) DeleteTask(id int64, cascade bool) (DeleteResult, error) {
	var result DeleteResult

	t, err := s.GetTask(id, true)
	if err != nil {
		return result, err
	}
	if t.DeletedAt != nil {
		return result, &tracker.ConflictError{Kind: "task", Detail: fmt.Sprintf("task %d is already deleted", id)}
	}

	ids := []int64{id}
	if cascade {
		ids, err = s.collectSubtree(id)
		if err != nil {
			return result, err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders, args := idPlaceholders(ids)

	res, err := tx.Exec(`UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id IN (`+placeholders+`) AND deleted_at IS NULL`,
		append([]any{now, now}, args...)...)
	if err != nil {
		return result, fmt.Errorf("soft delete tasks: %w", err)
	}
	n, _ := res.RowsAffected()
	result.TasksDeleted = int(n)

	res, err = tx.Exec(`UPDATE task_entity_links SET deleted_at = ? WHERE task_id IN (`+placeholders+`) AND deleted_at IS NULL`,
		append([]any{now}, args...)...)
	if err != nil {
		return result, fmt.Errorf("cascade delete links: %w", err)
	}
	n, _ = res.RowsAffected()
	result.LinksDeleted = int(n)

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit delete: %w", err)
	}
	return result, nil
}

// collectSubtree gathers the active subtree rooted at id, breadth
// first, bounded by maxTreeDepth.
func (s *Store) collectSubtree(id int64) ([]int64, error) {
	all := []int64{id}
	frontier := []int64{id}
	for depth := 0; depth < maxTreeDepth && len(frontier) > 0; depth++ {
		placeholders, args := idPlaceholders(frontier)
		rows, err := s.db.Query(`SELECT id FROM tasks WHERE parent_task_id IN (`+placeholders+`) AND deleted_at IS NULL`, args...)
		if err != nil {
			return nil, fmt.Errorf("collect subtree: %w", err)
		}
		seen := make(map[int64]struct{}, len(all))
		for _, v := range all {
			seen[v] = struct{}{}
		}
		var next []int64
		for rows.Next() {
			var child int64
			if err := rows.Scan(&child); err != nil {
				_ = rows.Close()
				return nil, err
			}
			if _, dup := seen[child]; dup {
				continue
			}
			next = append(next, child)
			all = append(all, child)
		}
		if err := checkRowsErr(rows); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
		frontier = next
	}
	return all, nil
}

// TaskTree is a task with its recursively collected active children.
type TaskTree struct {
	Task     tracker.Task `json:"task"`
	Children []*TaskTree  `json:"children,omitempty"`
}

// GetTaskTree builds the nested subtree rooted at id from active tasks.
// Traversal is defensively bounded so a cyclic parent chain cannot loop.
func (s *Store) GetTaskTree(id int64) (*TaskTree, error) {
	root, err := s.GetTask(id, false)
	if err != nil {
		return nil, err
	}

	tasks, _, err := s.ListTasks(TaskFilter{}, maxListAll, 0)
	if err != nil {
		return nil, err
	}
	children := make(map[int64][]tracker.Task)
	for _, t := range tasks {
		if t.ParentTaskID != nil {
			children[*t.ParentTaskID] = append(children[*t.ParentTaskID], t)
		}
	}

	visited := map[int64]struct{}{}
	var build func(t tracker.Task, depth int) *TaskTree
	build = func(t tracker.Task, depth int) *TaskTree {
		node := &TaskTree{Task: t}
		if depth >= maxTreeDepth {
			return node
		}
		if _, dup := visited[t.ID]; dup {
			return node
		}
		visited[t.ID] = struct{}{}
		for _, child := range children[t.ID] {
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}
	return build(*root, 0), nil
}

// maxListAll is the page size used for internal full scans (tree
// building, dependency resolution). Large enough for any realistic
// workspace, finite so a runaway store cannot exhaust memory.
const maxListAll = 100000

// NextTasks returns one page of actionable tasks: status todo with
// every dependency done. Ordered by priority (high first), then age.
func (s *Store) NextTasks(limit, offset int) ([]tracker.Task, int, error) {
	todos, _, err := s.ListTasks(TaskFilter{Status: tracker.StatusTodo}, maxListAll, 0)
	if err != nil {
		return nil, 0, err
	}

	statuses, err := s.activeStatuses()
	if err != nil {
		return nil, 0, err
	}

	var actionable []tracker.Task
	for _, t := range todos {
		ready := true
		for _, dep := range t.DependsOn {
			if statuses[dep] != tracker.StatusDone {
				ready = false
				break
			}
		}
		if ready {
			actionable = append(actionable, t)
		}
	}

	rank := map[tracker.Priority]int{tracker.PriorityHigh: 0, tracker.PriorityMedium: 1, tracker.PriorityLow: 2}
	sort.SliceStable(actionable, func(i, j int) bool {
		if rank[actionable[i].Priority] != rank[actionable[j].Priority] {
			return rank[actionable[i].Priority] < rank[actionable[j].Priority]
		}
		return actionable[i].CreatedAt.Before(actionable[j].CreatedAt)
	})

	total := len(actionable)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return actionable[offset:end], total, nil
}

// activeStatuses maps every active task id to its status.
func (s *Store) activeStatuses() (map[int64]tracker.Status, error) {
	rows, err := s.db.Query(`SELECT id, status FROM tasks WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("query task statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	statuses := make(map[int64]tracker.Status)
	for rows.Next() {
		var id int64
		var st tracker.Status
		if err := rows.Scan(&id, &st); err != nil {
			return nil, err
		}
		statuses[id] = st
	}
	return statuses, checkRowsErr(rows)
}

// CleanupTasks physically removes tasks soft-deleted more than the
// given number of days ago, along with their links. Survivor tasks that
// pointed at a purged parent are detached first to keep FKs satisfied.
func (s *Store) CleanupTasks(days int) (int, error) {
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
		UPDATE tasks SET parent_task_id = NULL
		WHERE parent_task_id IN (SELECT id FROM tasks WHERE deleted_at IS NOT NULL AND deleted_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("detach purged parents: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM task_entity_links
		WHERE task_id IN (SELECT id FROM tasks WHERE deleted_at IS NOT NULL AND deleted_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("purge task links: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM tasks WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return int(n), nil
}

// CountTasksByStatus aggregates active tasks per status.
func (s *Store) CountTasksByStatus() (map[string]int, error) {
	return s.countGrouped(`SELECT status, COUNT(*) FROM tasks WHERE deleted_at IS NULL GROUP BY status`)
}

// CountTasksByPriority aggregates active tasks per priority.
func (s *Store) CountTasksByPriority() (map[string]int, error) {
	return s.countGrouped(`SELECT priority, COUNT(*) FROM tasks WHERE deleted_at IS NULL GROUP BY priority`)
}

func (s *Store) countGrouped(query string) (map[string]int, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("aggregate query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, checkRowsErr(rows)
}

func idPlaceholders(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}
