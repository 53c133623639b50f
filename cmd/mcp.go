package cmd

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/taskmesh/taskmesh/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI tool integration",
	Long: `Start a Model Context Protocol (MCP) server so AI tools can manage
tasks and entities across workspaces.

The server runs over stdin/stdout and exposes the full operation
surface: task lifecycle, entities, links, workspace audits, and the
project registry. Every tool call names its workspace by absolute
path; stores are created on first use.

Example usage with an MCP client:
  taskmesh mcp

The server runs until the client disconnects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServer(ctx context.Context) error {
	logger := newLogger()

	svc, closeAll, err := openServices()
	if err != nil {
		return err
	}
	defer closeAll()

	mcp.ConfigureHooks(mcp.Hooks{
		LogInfo:  func(msg string) { logger.Info(msg) },
		LogError: func(err error) { logger.Error("tool error", "error", err) },
		LogToolCall: func(tool string, args interface{}) {
			logger.Debug("tool call", "tool", tool, "args", args)
		},
		GetVersion: func() string { return version },
	})

	impl := &mcpsdk.Implementation{
		Name:    "taskmesh",
		Version: version,
	}
	server := mcpsdk.NewServer(impl, &mcpsdk.ServerOptions{})

	deps := &mcp.Deps{
		Stores:   svc.Stores,
		Registry: svc.Registry,
		Audit:    svc.Audit,
	}
	if err := mcp.RegisterTools(server, deps); err != nil {
		return fmt.Errorf("register MCP tools: %w", err)
	}

	if err := server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
