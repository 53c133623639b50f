package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/types"
)

func linkEntityToTaskHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.LinkEntityToTaskParams, types.LinkResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.LinkEntityToTaskParams]) (*mcpsdk.CallToolResultFor[types.LinkResponse], error) {
		args := params.Arguments
		logToolCall("linkEntityToTask", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		link, err := st.LinkTaskEntity(args.TaskID, args.EntityID, args.CreatedBy)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.LinkResponse{Link: link})
	}
}

func getTaskEntitiesHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetTaskEntitiesParams, types.LinkedListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetTaskEntitiesParams]) (*mcpsdk.CallToolResultFor[types.LinkedListResponse], error) {
		args := params.Arguments
		logToolCall("getTaskEntities", args)

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

		rows, total, err := st.GetTaskEntities(args.TaskID, limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.LinkedListResponse{
			Items:      linkedEntityItems(rows, mode),
			Pagination: page(total, len(rows), limit, offset),
		})
	}
}

func getEntityTasksHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetEntityTasksParams, types.LinkedListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetEntityTasksParams]) (*mcpsdk.CallToolResultFor[types.LinkedListResponse], error) {
		args := params.Arguments
		logToolCall("getEntityTasks", args)

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

		rows, total, err := st.GetEntityTasks(args.EntityID, limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.LinkedListResponse{
			Items:      linkedTaskItems(rows, mode),
			Pagination: page(total, len(rows), limit, offset),
		})
	}
}
