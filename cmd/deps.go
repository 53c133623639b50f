package cmd

import (
	"fmt"

	"github.com/taskmesh/taskmesh/internal/audit"
	"github.com/taskmesh/taskmesh/internal/gitrepo"
	"github.com/taskmesh/taskmesh/internal/registry"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/workspace"
)

// services bundles the long-lived handles shared by every command.
type services struct {
	Registry *registry.Store
	Stores   *store.Manager
	Audit    *audit.Engine
}

// openServices opens the registry and the store manager under the
// configured data directory. The caller owns the returned close func.
func openServices() (*services, func(), error) {
	cfg := GetConfig()

	reg, err := registry.Open(workspace.RegistryPath(cfg.Data.Dir), busyTimeout())
	if err != nil {
		return nil, nil, fmt.Errorf("open registry: %w", err)
	}
	stores := store.NewManager(cfg.Data.Dir, busyTimeout())

	svc := &services{
		Registry: reg,
		Stores:   stores,
		Audit:    audit.NewEngine(gitrepo.NewClient(gitTimeout())),
	}
	closeAll := func() {
		_ = stores.Close()
		_ = reg.Close()
	}
	return svc, closeAll, nil
}
