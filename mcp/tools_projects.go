package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskmesh/taskmesh/internal/workspace"
	"github.com/taskmesh/taskmesh/types"
)

func registerProjectHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.RegisterProjectParams, types.ProjectResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.RegisterProjectParams]) (*mcpsdk.CallToolResultFor[types.ProjectResponse], error) {
		args := params.Arguments
		logToolCall("registerProject", args)

		_, id, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		if args.FriendlyName != "" {
			if err := deps.Registry.SetFriendlyName(id, args.FriendlyName); err != nil {
				return nil, toMCPError(err)
			}
		}
		project, err := deps.Registry.Get(id)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.ProjectResponse{Project: *project})
	}
}

func listProjectsHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.ListProjectsParams, types.ProjectListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.ListProjectsParams]) (*mcpsdk.CallToolResultFor[types.ProjectListResponse], error) {
		logToolCall("listProjects", params.Arguments)

		projects, err := deps.Registry.List()
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.ProjectListResponse{Projects: projects, Count: len(projects)})
	}
}

func getProjectInfoHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetProjectInfoParams, types.ProjectInfoResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetProjectInfoParams]) (*mcpsdk.CallToolResultFor[types.ProjectInfoResponse], error) {
		args := params.Arguments
		logToolCall("getProjectInfo", args)

		st, id, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		project, err := deps.Registry.Get(id)
		if err != nil {
			return nil, toMCPError(err)
		}
		byStatus, err := st.CountTasksByStatus()
		if err != nil {
			return nil, toMCPError(err)
		}
		byPriority, err := st.CountTasksByPriority()
		if err != nil {
			return nil, toMCPError(err)
		}
		byType, err := st.CountEntitiesByType()
		if err != nil {
			return nil, toMCPError(err)
		}
		links, err := st.CountActiveLinks()
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.ProjectInfoResponse{
			Project:         *project,
			StorePath:       st.Path(),
			Structure:       workspace.DetectStructure(project.Path),
			TasksByStatus:   byStatus,
			TasksByPriority: byPriority,
			EntitiesByType:  byType,
			ActiveLinks:     links,
		})
	}
}

func getUsageStatsHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetUsageStatsParams, types.UsageStatsResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetUsageStatsParams]) (*mcpsdk.CallToolResultFor[types.UsageStatsResponse], error) {
		args := params.Arguments
		logToolCall("getUsageStats", args)

		_, id, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		days := args.Days
		if days <= 0 {
			days = 30
		}
		stats, err := deps.Registry.UsageStats(id, days, args.ToolName)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.UsageStatsResponse{
			WorkspaceID: id,
			Days:        days,
			Stats:       stats,
		})
	}
}
