package mcp

import (
	"context"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/types"
)

func createEntityHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.CreateEntityParams, types.EntityResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.CreateEntityParams]) (*mcpsdk.CallToolResultFor[types.EntityResponse], error) {
		args := params.Arguments
		logToolCall("createEntity", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}

		entityType, perr := tracker.ParseEntityType(args.EntityType)
		if perr != nil {
			return nil, toMCPError(perr)
		}
		entity := tracker.Entity{
			EntityType:  entityType,
			Name:        strings.TrimSpace(args.Name),
			Identifier:  strings.TrimSpace(args.Identifier),
			Description: args.Description,
			Metadata:    args.Metadata,
			Tags:        args.Tags,
			CreatedBy:   args.CreatedBy,
		}

		created, err := st.CreateEntity(&entity)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.EntityResponse{Entity: created})
	}
}

func updateEntityHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.UpdateEntityParams, types.EntityResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.UpdateEntityParams]) (*mcpsdk.CallToolResultFor[types.EntityResponse], error) {
		args := params.Arguments
		logToolCall("updateEntity", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		updated, err := st.UpdateEntity(args.ID, store.EntityUpdate{
			Name:        args.Name,
			Identifier:  args.Identifier,
			Description: args.Description,
			Metadata:    args.Metadata,
			Tags:        args.Tags,
		})
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.EntityResponse{Entity: updated})
	}
}

func getEntityHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.GetEntityParams, types.EntityResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.GetEntityParams]) (*mcpsdk.CallToolResultFor[types.EntityResponse], error) {
		args := params.Arguments
		logToolCall("getEntity", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		entity, err := st.GetEntity(args.ID, args.IncludeDeleted)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.EntityResponse{Entity: entity})
	}
}

func listEntitiesHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.ListEntitiesParams, types.EntityListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.ListEntitiesParams]) (*mcpsdk.CallToolResultFor[types.EntityListResponse], error) {
		args := params.Arguments
		logToolCall("listEntities", args)

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

		filter := store.EntityFilter{
			Tags:           tracker.TagList(args.Tags),
			IncludeDeleted: args.IncludeDeleted,
		}
		if args.EntityType != "" {
			entityType, perr := tracker.ParseEntityType(args.EntityType)
			if perr != nil {
				return nil, toMCPError(perr)
			}
			filter.EntityType = entityType
		}

		entities, total, err := st.ListEntities(filter, limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.EntityListResponse{
			Entities:   entityViews(entities, mode),
			Pagination: page(total, len(entities), limit, offset),
		})
	}
}

func searchEntitiesHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.SearchEntitiesParams, types.EntityListResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.SearchEntitiesParams]) (*mcpsdk.CallToolResultFor[types.EntityListResponse], error) {
		args := params.Arguments
		logToolCall("searchEntities", args)

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

		entities, total, err := st.ListEntities(store.EntityFilter{Search: args.Query}, limit, offset)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.EntityListResponse{
			Entities:   entityViews(entities, mode),
			Pagination: page(total, len(entities), limit, offset),
		})
	}
}

func deleteEntityHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.DeleteEntityParams, types.DeleteResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.DeleteEntityParams]) (*mcpsdk.CallToolResultFor[types.DeleteResponse], error) {
		args := params.Arguments
		logToolCall("deleteEntity", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		res, err := st.DeleteEntity(args.ID)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.DeleteResponse{
			EntitiesDeleted: res.EntitiesDeleted,
			LinksDeleted:    res.LinksDeleted,
		})
	}
}

func cleanupDeletedEntitiesHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.CleanupEntitiesParams, types.CleanupResponse] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.CleanupEntitiesParams]) (*mcpsdk.CallToolResultFor[types.CleanupResponse], error) {
		args := params.Arguments
		logToolCall("cleanupDeletedEntities", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		days := args.Days
		if days <= 0 {
			days = 30
		}
		removed, err := st.CleanupEntities(days)
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(types.CleanupResponse{Removed: removed, Days: days})
	}
}
