package mcp

// Shared helpers for MCP tools (workspace resolution, error mapping,
// usage recording).

import (
	"context"
	"encoding/json"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/internal/workspace"
	"github.com/taskmesh/taskmesh/types"
)

// resolveWorkspace turns a caller-supplied workspace path into an open
// store. The workspace is registered (or its last_accessed refreshed)
// as a side effect, so every tool call leaves a registry trace.
func resolveWorkspace(deps *Deps, path string) (*store.Store, string, error) {
	abs, err := workspace.Resolve(path)
	if err != nil {
		return nil, "", types.NewMCPError("INVALID_WORKSPACE", err.Error(), map[string]interface{}{
			"workspace_path": path,
		})
	}
	id, err := deps.Registry.Register(abs)
	if err != nil {
		return nil, "", types.NewMCPError("REGISTRY_ERROR", err.Error(), nil)
	}
	st, err := deps.Stores.Get(id)
	if err != nil {
		return nil, "", types.NewMCPError("STORE_ERROR", err.Error(), map[string]interface{}{
			"workspace_id": id,
		})
	}
	return st, id, nil
}

// toMCPError maps domain errors onto stable MCP error codes. Unknown
// errors become INTERNAL_ERROR and are logged.
func toMCPError(err error) *types.MCPError {
	var mcpErr *types.MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var (
		validation *tracker.ValidationError
		notFound   *tracker.NotFoundError
		conflict   *tracker.ConflictError
		transition *tracker.TransitionError
		dependency *tracker.DependencyError
		pagination *tracker.PaginationError
	)
	switch {
	case errors.As(err, &validation):
		return types.NewMCPError("VALIDATION_ERROR", validation.Error(), map[string]interface{}{
			"field": validation.Field,
		})
	case errors.As(err, &transition):
		return types.NewMCPError("INVALID_TRANSITION", transition.Error(), map[string]interface{}{
			"from": string(transition.From),
			"to":   string(transition.To),
		})
	case errors.As(err, &dependency):
		return types.NewMCPError("DEPENDENCY_NOT_DONE", dependency.Error(), map[string]interface{}{
			"task_id":       dependency.TaskID,
			"dependency_id": dependency.DependencyID,
		})
	case errors.As(err, &notFound):
		details := map[string]interface{}{"kind": notFound.Kind}
		if notFound.Name != "" {
			details["id"] = notFound.Name
		} else {
			details["id"] = notFound.ID
		}
		return types.NewMCPError("NOT_FOUND", notFound.Error(), details)
	case errors.As(err, &conflict):
		return types.NewMCPError("CONFLICT", conflict.Error(), map[string]interface{}{
			"kind": conflict.Kind,
		})
	case errors.As(err, &pagination):
		return types.NewMCPError("INVALID_PAGINATION", pagination.Error(), map[string]interface{}{
			"field": pagination.Field,
			"value": pagination.Value,
		})
	default:
		hooks.LogError(err)
		return types.NewMCPError("INTERNAL_ERROR", err.Error(), nil)
	}
}

// structuredResult builds a tool result carrying the payload both as
// structured content and as a JSON text block for clients that only
// render text.
func structuredResult[R any](payload R) (*mcpsdk.CallToolResultFor[R], error) {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, types.NewMCPError("INTERNAL_ERROR", "encode response: "+err.Error(), nil)
	}
	return &mcpsdk.CallToolResultFor[R]{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(text)},
		},
		StructuredContent: payload,
	}, nil
}

// workspaceCarrier is satisfied by every parameter struct embedding
// types.WorkspaceParams.
type workspaceCarrier interface {
	GetWorkspacePath() string
}

// withUsage wraps a tool handler so every invocation is appended to the
// registry's usage trail with its success flag. Recording is best
// effort; a failed write never fails the tool call.
func withUsage[P, R any](deps *Deps, name string, h mcpsdk.ToolHandlerFor[P, R]) mcpsdk.ToolHandlerFor[P, R] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[P]) (*mcpsdk.CallToolResultFor[R], error) {
		res, err := h(ctx, ss, params)

		if carrier, ok := any(params.Arguments).(workspaceCarrier); ok {
			if abs, werr := workspace.Resolve(carrier.GetWorkspacePath()); werr == nil {
				if rerr := deps.Registry.RecordToolUsage(name, workspace.Hash(abs), err == nil); rerr != nil {
					hooks.LogError(rerr)
				}
			}
		}
		return res, err
	}
}
