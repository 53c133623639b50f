package mcp

import (
	"context"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/types"
)

func createTaskHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.CreateTaskParams, types.TaskResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.CreateTaskParams]) (*mcpsdk.CallToolResultFor[types.TaskResponse], error) {
		args := params.Arguments
		logToolCall("createTask", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}

		task := tracker.Task{
			Title:          strings.TrimSpace(args.Title),
			Description:    args.Description,
			ParentTaskID:   args.ParentTaskID,
			DependsOn:      args.DependsOn,
			Tags:           args.Tags,
			BlockerReason:  args.BlockerReason,
			FileReferences: args.FileReferences,
			CreatedBy:      args.CreatedBy,
		}
		if args.Status != "" {
			status, perr := tracker.ParseStatus(args.Status)
			if perr != nil {
				return nil, toMCPError(perr)
			}
			task.Status = status
		}
		priority, perr := tracker.ParsePriority(args.Priority)
		if perr != nil {
			return nil, toMCPError(perr)
		}
		task.Priority = priority

		created, err := st.CreateTask(&task)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskResponse{Task: created})
	}
}

func updateTaskHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.UpdateTaskParams, types.TaskResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.UpdateTaskParams]) (*mcpsdk.CallToolResultFor[types.TaskResponse], error) {
		args := params.Arguments
		logToolCall("updateTask", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}

		upd := store.TaskUpdate{
			Title:          args.Title,
			Description:    args.Description,
			ParentTaskID:   args.ParentTaskID,
			RemoveParent:   args.RemoveParent,
			DependsOn:      args.DependsOn,
			Tags:           args.Tags,
			BlockerReason:  args.BlockerReason,
			FileReferences: args.FileReferences,
		}
		if args.Status != nil {
			status, perr := tracker.ParseStatus(*args.Status)
			if perr != nil {
				return nil, toMCPError(perr)
			}
			upd.Status = &status
		}
		if args.Priority != nil {
			priority, perr := tracker.ParsePriority(*args.Priority)
			if perr != nil {
				return nil, toMCPError(perr)
			}
			upd.Priority = &priority
		}

		updated, err := st.UpdateTask(args.ID, upd)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskResponse{Task: updated})
	}
}

func getTaskHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetTaskParams, types.TaskResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetTaskParams]) (*mcpsdk.CallToolResultFor[types.TaskResponse], error) {
		args := params.Arguments
		logToolCall("getTask", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		task, err := st.GetTask(args.ID, args.IncludeDeleted)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskResponse{Task: task})
	}
}

func listTasksHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.ListTasksParams, types.TaskListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.ListTasksParams]) (*mcpsdk.CallToolResultFor[types.TaskListResponse], error) {
		args := params.Arguments
		logToolCall("listTasks", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		mode, err := tracker.ParseMode(args.Mode)
		if err != nil {
			return nil, toMCPError(err)
		}
		limit, offset, err := tracker.ValidatePage(args.Limit, args.Offset)
		if err != nil {
			return nil, toMCPError(err)
		}

		filter := store.TaskFilter{
			ParentTaskID:   args.ParentTaskID,
			Tags:           tracker.TagList(args.Tags),
			IncludeDeleted: args.IncludeDeleted,
		}
		if args.Status != "" {
			status, perr := tracker.ParseStatus(args.Status)
			if perr != nil {
				return nil, toMCPError(perr)
			}
			filter.Status = status
		}
		if args.Priority != "" {
			priority, perr := tracker.ParsePriority(args.Priority)
			if perr != nil {
				return nil, toMCPError(perr)
			}
			filter.Priority = priority
		}

		tasks, total, err := st.ListTasks(filter, limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskListResponse{
			Tasks:      taskViews(tasks, mode),
			Pagination: page(total, len(tasks), limit, offset),
		})
	}
}

func searchTasksHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.SearchTasksParams, types.TaskListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.SearchTasksParams]) (*mcpsdk.CallToolResultFor[types.TaskListResponse], error) {
		args := params.Arguments
		logToolCall("searchTasks", args)

		if strings.TrimSpace(args.Query) == "" {
			return nil, types.NewMCPError("MISSING_QUERY", "search query is required", map[string]interface{}{
				"field": "query",
			})
		}
		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		mode, err := tracker.ParseMode(args.Mode)
		if err != nil {
			return nil, toMCPError(err)
		}
		limit, offset, err := tracker.ValidatePage(args.Limit, args.Offset)
		if err != nil {
			return nil, toMCPError(err)
		}

		tasks, total, err := st.ListTasks(store.TaskFilter{Search: args.Query}, limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskListResponse{
			Tasks:      taskViews(tasks, mode),
			Pagination: page(total, len(tasks), limit, offset),
		})
	}
}

func deleteTaskHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.DeleteTaskParams, types.DeleteResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.DeleteTaskParams]) (*mcpsdk.CallToolResultFor[types.DeleteResponse], error) {
		args := params.Arguments
		logToolCall("deleteTask", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		res, err := st.DeleteTask(args.ID, args.Cascade)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.DeleteResponse{
			TasksDeleted: res.TasksDeleted,
			LinksDeleted: res.LinksDeleted,
		})
	}
}

func getTaskTreeHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetTaskTreeParams, types.TaskTreeResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetTaskTreeParams]) (*mcpsdk.CallToolResultFor[types.TaskTreeResponse], error) {
		args := params.Arguments
		logToolCall("getTaskTree", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		mode, err := tracker.ParseMode(args.Mode)
		if err != nil {
			return nil, toMCPError(err)
		}
		tree, err := st.GetTaskTree(args.ID)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskTreeResponse{Tree: treeView(tree, mode)})
	}
}

func getBlockedTasksHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetBlockedTasksParams, types.TaskListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetBlockedTasksParams]) (*mcpsdk.CallToolResultFor[types.TaskListResponse], error) {
		args := params.Arguments
		logToolCall("getBlockedTasks", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		mode, err := tracker.ParseMode(args.Mode)
		if err != nil {
			return nil, toMCPError(err)
		}
		limit, offset, err := tracker.ValidatePage(args.Limit, args.Offset)
		if err != nil {
			return nil, toMCPError(err)
		}

		tasks, total, err := st.ListTasks(store.TaskFilter{Status: tracker.StatusBlocked}, limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskListResponse{
			Tasks:      taskViews(tasks, mode),
			Pagination: page(total, len(tasks), limit, offset),
		})
	}
}

func getNextTasksHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetNextTasksParams, types.TaskListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetNextTasksParams]) (*mcpsdk.CallToolResultFor[types.TaskListResponse], error) {
		args := params.Arguments
		logToolCall("getNextTasks", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		mode, err := tracker.ParseMode(args.Mode)
		if err != nil {
			return nil, toMCPError(err)
		}
		limit, offset, err := tracker.ValidatePage(args.Limit, args.Offset)
		if err != nil {
			return nil, toMCPError(err)
		}

		tasks, total, err := st.NextTasks(limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.TaskListResponse{
			Tasks:      taskViews(tasks, mode),
			Pagination: page(total, len(tasks), limit, offset),
		})
	}
}

func cleanupDeletedTasksHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.CleanupTasksParams, types.CleanupResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.CleanupTasksParams]) (*mcpsdk.CallToolResultFor[types.CleanupResponse], error) {
		args := params.Arguments
		logToolCall("cleanupDeletedTasks", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		days := args.Days
		if days <= 0 {
			days = 30
		}
		removed, err := st.CleanupTasks(days)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.CleanupResponse{Removed: removed, Days: days})
	}
}
