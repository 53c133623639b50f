package store

import (
	"strings"
	"testing"

	"github.com/taskmesh/taskmesh/internal/tracker"
)

func TestLinkTaskEntity(t *testing.T) {
	s := setupTestStore(t)
	task := mustCreateTask(t, s, tracker.Task{Title: "Work"})
	entity := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "main", Identifier: "main.go"})

	link, err := s.LinkTaskEntity(task.ID, entity.ID, "alice")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link.ID == 0 {
		t.Error("expected assigned link id")
	}
	if link.CreatedBy != "alice" {
		t.Errorf("created_by = %q", link.CreatedBy)
	}
	if link.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestLinkRejectsMissingSides(t *testing.T) {
	s := setupTestStore(t)
	task := mustCreateTask(t, s, tracker.Task{Title: "Lonely"})
	entity := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "gone", Identifier: "gone.go"})

	if _, err := s.LinkTaskEntity(999, entity.ID, ""); !tracker.IsNotFound(err) {
		t.Errorf("missing task: expected not-found, got %v", err)
	}
	if _, err := s.LinkTaskEntity(task.ID, 999, ""); !tracker.IsNotFound(err) {
		t.Errorf("missing entity: expected not-found, got %v", err)
	}

	// A soft-deleted side is as good as missing.
	if _, err := s.DeleteEntity(entity.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LinkTaskEntity(task.ID, entity.ID, ""); !tracker.IsNotFound(err) {
		t.Errorf("deleted entity: expected not-found, got %v", err)
	}
}

func TestDuplicateActiveLinkIsConflict(t *testing.T) {
	s := setupTestStore(t)
	task := mustCreateTask(t, s, tracker.Task{Title: "Work"})
	entity := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "main", Identifier: "main.go"})

	if _, err := s.LinkTaskEntity(task.ID, entity.ID, ""); err != nil {
		t.Fatal(err)
	}
	_, err := s.LinkTaskEntity(task.ID, entity.ID, "")
	if !tracker.IsConflict(err) {
		t.Fatalf("duplicate link: expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "already linked") {
		t.Errorf("conflict message = %q", err.Error())
	}
}

func TestRelinkAfterTaskDelete(t *testing.T) {
	s := setupTestStore(t)
	task := mustCreateTask(t, s, tracker.Task{Title: "Work"})
	entity := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "main", Identifier: "main.go"})

	if _, err := s.LinkTaskEntity(task.ID, entity.ID, ""); err != nil {
		t.Fatal(err)
	}
	res, err := s.DeleteTask(task.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.LinksDeleted != 1 {
		t.Errorf("links deleted = %d, want 1", res.LinksDeleted)
	}

	// The dead link no longer blocks a new one between a fresh task
	// and the same entity.
	fresh := mustCreateTask(t, s, tracker.Task{Title: "Fresh"})
	if _, err := s.LinkTaskEntity(fresh.ID, entity.ID, ""); err != nil {
		t.Fatalf("relink to surviving entity: %v", err)
	}
}

func TestGetTaskEntitiesMetadataAndPaging(t *testing.T) {
	s := setupTestStore(t)
	task := mustCreateTask(t, s, tracker.Task{Title: "Hub"})

	const total = 5
	for i := 0; i < total; i++ {
		e := mustCreateEntity(t, s, tracker.Entity{
			EntityType: tracker.EntityFile,
			Name:       strings.Repeat("x", i+1),
			Identifier: strings.Repeat("x", i+1) + ".go",
		})
		if _, err := s.LinkTaskEntity(task.ID, e.ID, "bot"); err != nil {
			t.Fatal(err)
		}
	}

	page1, count, err := s.GetTaskEntities(task.ID, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if count != total {
		t.Fatalf("total = %d, want %d", count, total)
	}
	if len(page1) != 3 {
		t.Fatalf("page size = %d, want 3", len(page1))
	}
	for _, li := range page1 {
		if li.LinkCreatedBy != "bot" {
			t.Errorf("link created_by = %q", li.LinkCreatedBy)
		}
		if li.LinkCreatedAt.IsZero() {
			t.Error("link created_at missing")
		}
	}

	page2, _, err := s.GetTaskEntities(task.ID, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 2 {
		t.Errorf("second page = %d entities, want 2", len(page2))
	}
}

func TestGetEntityTasks(t *testing.T) {
	s := setupTestStore(t)
	entity := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "shared", Identifier: "shared.go"})
	a := mustCreateTask(t, s, tracker.Task{Title: "A"})
	b := mustCreateTask(t, s, tracker.Task{Title: "B"})

	for _, id := range []int64{a.ID, b.ID} {
		if _, err := s.LinkTaskEntity(id, entity.ID, ""); err != nil {
			t.Fatal(err)
		}
	}

	tasks, total, err := s.GetEntityTasks(entity.ID, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(tasks) != 2 {
		t.Fatalf("entity tasks = %d, want 2", total)
	}

	// Deleting one task hides its link but not the other.
	if _, err := s.DeleteTask(a.ID, false); err != nil {
		t.Fatal(err)
	}
	tasks, total, err = s.GetEntityTasks(entity.ID, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || tasks[0].Task.ID != b.ID {
		t.Errorf("after delete: %d tasks, want only B", total)
	}
}

func TestCountActiveLinks(t *testing.T) {
	s := setupTestStore(t)
	task := mustCreateTask(t, s, tracker.Task{Title: "Hub"})
	e1 := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "a", Identifier: "a.go"})
	e2 := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "b", Identifier: "b.go"})

	for _, id := range []int64{e1.ID, e2.ID} {
		if _, err := s.LinkTaskEntity(task.ID, id, ""); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.DeleteEntity(e1.ID); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountActiveLinks()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("active links = %d, want 1", n)
	}
}
