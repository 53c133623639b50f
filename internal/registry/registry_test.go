package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/internal/workspace"
)

func setupTestRegistry(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "registry.db"), time.Second)
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRegisterIsIdempotent(t *testing.T) {
	s := setupTestRegistry(t)
	path := filepath.Join(t.TempDir(), "project")

	id1, err := s.Register(path)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	if want := workspace.Hash(path); id1 != want {
		t.Errorf("id = %q, want hash %q", id1, want)
	}

	id2, err := s.Register(path)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if id2 != id1 {
		t.Errorf("re-register changed id: %q vs %q", id2, id1)
	}

	// Still exactly one row.
	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("workspaces = %d, want 1", len(list))
	}
}

func TestRegisterRefreshesLastAccessed(t *testing.T) {
	s := setupTestRegistry(t)
	path := filepath.Join(t.TempDir(), "project")

	id, err := s.Register(path)
	if err != nil {
		t.Fatal(err)
	}
	first, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}

	// Push the recorded access time into the past, then re-register.
	if _, err := s.db.Exec(`UPDATE workspaces SET last_accessed = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Hour).Format(time.RFC3339), id); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(path); err != nil {
		t.Fatal(err)
	}

	second, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if !second.LastAccessed.After(first.LastAccessed.Add(-time.Minute)) {
		t.Errorf("last_accessed not refreshed: %v", second.LastAccessed)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on re-register: %v vs %v", second.CreatedAt, first.CreatedAt)
	}
}

func TestSetFriendlyName(t *testing.T) {
	s := setupTestRegistry(t)
	path := filepath.Join(t.TempDir(), "project")
	id, err := s.Register(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetFriendlyName(id, "Billing Service"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	ws, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if ws.FriendlyName != "Billing Service" {
		t.Errorf("friendly name = %q", ws.FriendlyName)
	}

	if err := s.SetFriendlyName("deadbeef", "Ghost"); !tracker.IsNotFound(err) {
		t.Errorf("unknown id: expected not-found, got %v", err)
	}
}

func TestListOrdersByLastAccessed(t *testing.T) {
	s := setupTestRegistry(t)
	base := t.TempDir()

	first, err := s.Register(filepath.Join(base, "older"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`UPDATE workspaces SET last_accessed = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Hour).Format(time.RFC3339), first); err != nil {
		t.Fatal(err)
	}
	second, err := s.Register(filepath.Join(base, "newer"))
	if err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("workspaces = %d, want 2", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("order = [%s %s], want most recent first", list[0].ID, list[1].ID)
	}
}

func TestUsageStatsAggregation(t *testing.T) {
	s := setupTestRegistry(t)
	id, err := s.Register(filepath.Join(t.TempDir(), "project"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := s.RecordToolUsage("createTask", id, true); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RecordToolUsage("createTask", id, false); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordToolUsage("listTasks", id, true); err != nil {
		t.Fatal(err)
	}

	stats, err := s.UsageStats(id, 30, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %d tools, want 2", len(stats))
	}
	// Most called tool first.
	if stats[0].ToolName != "createTask" || stats[0].Calls != 4 || stats[0].Failures != 1 {
		t.Errorf("createTask stat = %+v", stats[0])
	}
	if stats[1].ToolName != "listTasks" || stats[1].Calls != 1 || stats[1].Failures != 0 {
		t.Errorf("listTasks stat = %+v", stats[1])
	}

	// Tool filter narrows the result.
	filtered, err := s.UsageStats(id, 30, "listTasks")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].ToolName != "listTasks" {
		t.Errorf("filtered stats = %+v", filtered)
	}
}

func TestUsageStatsWindow(t *testing.T) {
	s := setupTestRegistry(t)
	id, err := s.Register(filepath.Join(t.TempDir(), "project"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordToolUsage("audit", id, true); err != nil {
		t.Fatal(err)
	}
	// Age the record past the default 30-day window.
	if _, err := s.db.Exec(`UPDATE tool_usage SET timestamp = ?`,
		time.Now().UTC().AddDate(0, 0, -40).Format(time.RFC3339)); err != nil {
		t.Fatal(err)
	}

	stats, err := s.UsageStats(id, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 0 {
		t.Errorf("aged records leaked into window: %+v", stats)
	}

	wide, err := s.UsageStats(id, 60, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(wide) != 1 {
		t.Errorf("60-day window = %d tools, want 1", len(wide))
	}
}
