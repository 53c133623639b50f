// Package server exposes a read-only HTTP view of workspace data for
// dashboards and local tooling. All mutation goes through the MCP
// surface; this API only reads.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/taskmesh/taskmesh/internal/audit"
	"github.com/taskmesh/taskmesh/internal/registry"
	"github.com/taskmesh/taskmesh/internal/store"
)

type Server struct {
	stores   *store.Manager
	registry *registry.Store
	audit    *audit.Engine
	origins  map[string]struct{}
	logger   *slog.Logger
	server   *http.Server
}

// New builds the API server. allowedOrigins lists the exact Origin
// header values permitted for cross-origin reads.
func New(port int, stores *store.Manager, reg *registry.Store, auditEngine *audit.Engine, allowedOrigins []string, logger *slog.Logger) *Server {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	s := &Server{
		stores:   stores,
		registry: reg,
		audit:    auditEngine,
		origins:  origins,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("GET /api/projects/info", s.handleProjectInfo)
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /api/tasks/{id}/tree", s.handleTaskTree)
	mux.HandleFunc("GET /api/tasks/{id}/entities", s.handleTaskEntities)
	mux.HandleFunc("GET /api/entities", s.handleListEntities)
	mux.HandleFunc("GET /api/entities/{id}", s.handleGetEntity)
	mux.HandleFunc("GET /api/entities/{id}/tasks", s.handleEntityTasks)
	mux.HandleFunc("GET /api/next", s.handleNextTasks)
	mux.HandleFunc("GET /api/blocked", s.handleBlockedTasks)
	mux.HandleFunc("GET /api/audit", s.handleAudit)
	mux.HandleFunc("GET /api/usage", s.handleUsageStats)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the listener in a goroutine; startup errors land on
// errChan.
func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("api server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("api server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
