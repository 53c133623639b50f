package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskmesh/taskmesh/internal/audit"
	"github.com/taskmesh/taskmesh/internal/workspace"
	"github.com/taskmesh/taskmesh/types"
)

func performWorkspaceAuditHandler(deps *Deps) mcpsdk.ToolHandlerFor[types.PerformWorkspaceAuditParams, audit.Report] {
	return func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[types.PerformWorkspaceAuditParams]) (*mcpsdk.CallToolResultFor[audit.Report], error) {
		args := params.Arguments
		logToolCall("performWorkspaceAudit", args)

		st, _, err := resolveWorkspace(deps, args.WorkspacePath)
		if err != nil {
			return nil, err
		}
		abs, err := workspace.Resolve(args.WorkspacePath)
		if err != nil {
			return nil, toMCPError(err)
		}

		report, err := deps.Audit.Run(ctx, st, abs, audit.Options{
			IncludeDeleted: args.IncludeDeleted,
			CheckGitRepo:   args.CheckGitRepo,
		})
		if err != nil {
			return nil, toMCPError(err)
		}
		return structuredResult(*report)
	}
}
