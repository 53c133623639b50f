package mcp

// View shaping between domain rows and tool responses.

import (
	"time"

	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/types"
)

func taskView(t *tracker.Task, mode tracker.Mode) interface{} {
	if mode == tracker.ModeDetails {
		return t
	}
	return t.Summarize()
}

func taskViews(tasks []tracker.Task, mode tracker.Mode) []interface{} {
	out := make([]interface{}, 0, len(tasks))
	for i := range tasks {
		out = append(out, taskView(&tasks[i], mode))
	}
	return out
}

func entityView(e *tracker.Entity, mode tracker.Mode) interface{} {
	if mode == tracker.ModeDetails {
		return e
	}
	return e.Summarize()
}

func entityViews(entities []tracker.Entity, mode tracker.Mode) []interface{} {
	out := make([]interface{}, 0, len(entities))
	for i := range entities {
		out = append(out, entityView(&entities[i], mode))
	}
	return out
}

// treeNode mirrors store.TaskTree with the mode applied to every task.
type treeNode struct {
	Task     interface{} `json:"task"`
	Children []treeNode  `json:"children,omitempty"`
}

func treeView(t *store.TaskTree, mode tracker.Mode) treeNode {
	node := treeNode{Task: taskView(&t.Task, mode)}
	for i := range t.Children {
		node.Children = append(node.Children, treeView(t.Children[i], mode))
	}
	return node
}

// linkedEntityItems applies the mode to linked entities while keeping
// the link metadata intact.
func linkedEntityItems(rows []store.LinkedEntity, mode tracker.Mode) []types.LinkedItem {
	out := make([]types.LinkedItem, 0, len(rows))
	for i := range rows {
		out = append(out, types.LinkedItem{
			Item:          entityView(&rows[i].Entity, mode),
			LinkCreatedAt: rows[i].LinkCreatedAt.UTC().Format(time.RFC3339),
			LinkCreatedBy: rows[i].LinkCreatedBy,
		})
	}
	return out
}

func linkedTaskItems(rows []store.LinkedTask, mode tracker.Mode) []types.LinkedItem {
	out := make([]types.LinkedItem, 0, len(rows))
	for i := range rows {
		out = append(out, types.LinkedItem{
			Item:          taskView(&rows[i].Task, mode),
			LinkCreatedAt: rows[i].LinkCreatedAt.UTC().Format(time.RFC3339),
			LinkCreatedBy: rows[i].LinkCreatedBy,
		})
	}
	return out
}

func page(total, returned, limit, offset int) tracker.Page {
	return tracker.Page{
		TotalCount:    total,
		ReturnedCount: returned,
		Limit:         limit,
		Offset:        offset,
	}
}
