package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/taskmesh/taskmesh/internal/workspace"
)

// Manager holds one open Store per workspace id. It replaces implicit
// process-global handles with an explicit registry whose lifecycle is
// tied to the process: open lazily on first use, close everything on
// shutdown.
type Manager struct {
	mu          sync.Mutex
	baseDir     string
	busyTimeout time.Duration
	stores      map[string]*Store
}

// NewManager creates a store manager rooted at the given data
// directory.
func NewManager(baseDir string, busyTimeout time.Duration) *Manager {
	return &Manager{
		baseDir:     baseDir,
		busyTimeout: busyTimeout,
		stores:      make(map[string]*Store),
	}
}

// Get returns the open store for a workspace id, opening it (and
// creating its database file) on first use.
func (m *Manager) Get(workspaceID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[workspaceID]; ok {
		return s, nil
	}

	s, err := OpenStore(workspace.StorePath(m.baseDir, workspaceID), workspaceID, m.busyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open store for workspace %s: %w", workspaceID, err)
	}
	m.stores[workspaceID] = s
	return s, nil
}

// Close closes every open store. The manager must not be used after.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, s := range m.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store %s: %w", id, err)
		}
		delete(m.stores, id)
	}
	return firstErr
}
