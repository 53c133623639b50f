package mcp

import (
	"github.com/taskmesh/taskmesh/internal/audit"
	"github.com/taskmesh/taskmesh/internal/registry"
	"github.com/taskmesh/taskmesh/internal/store"
)

// Hooks lets the CLI layer inject runtime dependencies needed by MCP
// tool handlers.
type Hooks struct {
	LogInfo     func(string)
	LogError    func(error)
	LogToolCall func(string, interface{})
	GetVersion  func() string
}

var hooks = Hooks{
	LogInfo:     func(string) {},
	LogError:    func(error) {},
	LogToolCall: func(string, interface{}) {},
	GetVersion:  func() string { return "dev" },
}

// ConfigureHooks installs the CLI layer's dependencies.
func ConfigureHooks(h Hooks) {
	if h.LogInfo != nil {
		hooks.LogInfo = h.LogInfo
	}
	if h.LogError != nil {
		hooks.LogError = h.LogError
	}
	if h.LogToolCall != nil {
		hooks.LogToolCall = h.LogToolCall
	}
	if h.GetVersion != nil {
		hooks.GetVersion = h.GetVersion
	}
}

func logToolCall(tool string, args interface{}) {
	hooks.LogToolCall(tool, args)
}

// Deps bundles the long-lived services every tool handler needs.
type Deps struct {
	Stores   *store.Manager
	Registry *registry.Store
	Audit    *audit.Engine
}
