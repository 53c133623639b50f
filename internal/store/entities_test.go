package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/taskmesh/taskmesh/internal/tracker"
)

func mustCreateEntity(t *testing.T, s *Store, e tracker.Entity) *tracker.Entity {
	t.Helper()
	created, err := s.CreateEntity(&e)
	if err != nil {
		t.Fatalf("create entity %q: %v", e.Name, err)
	}
	return created
}

func TestCreateEntityDefaults(t *testing.T) {
	s := setupTestStore(t)

	created := mustCreateEntity(t, s, tracker.Entity{
		EntityType: tracker.EntityFile,
		Name:       "handler",
		Identifier: "internal/api/handler.go",
	})
	if created.ID == 0 {
		t.Error("expected assigned id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestCreateEntityInvalidMetadata(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.CreateEntity(&tracker.Entity{
		EntityType: tracker.EntityOther,
		Name:       "bad",
		Metadata:   json.RawMessage(`{"broken":`),
	})
	if !tracker.IsValidation(err) {
		t.Fatalf("invalid metadata: expected validation error, got %v", err)
	}
}

func TestEntityIdentifierPartialUnique(t *testing.T) {
	s := setupTestStore(t)

	first := mustCreateEntity(t, s, tracker.Entity{
		EntityType: tracker.EntityFile,
		Name:       "config",
		Identifier: "internal/config.go",
	})

	// Same (type, identifier) among active rows conflicts.
	_, err := s.CreateEntity(&tracker.Entity{
		EntityType: tracker.EntityFile,
		Name:       "config copy",
		Identifier: "internal/config.go",
	})
	if !tracker.IsConflict(err) {
		t.Fatalf("duplicate active identifier: expected conflict, got %v", err)
	}

	// A different type may reuse the identifier.
	if _, err := s.CreateEntity(&tracker.Entity{
		EntityType: tracker.EntityOther,
		Name:       "config other",
		Identifier: "internal/config.go",
	}); err != nil {
		t.Fatalf("same identifier under different type: %v", err)
	}

	// Soft-deleting the original frees the slot.
	if _, err := s.DeleteEntity(first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.CreateEntity(&tracker.Entity{
		EntityType: tracker.EntityFile,
		Name:       "config again",
		Identifier: "internal/config.go",
	}); err != nil {
		t.Fatalf("recreate after soft delete: %v", err)
	}
}

func TestUpdateEntityIdentifierConflict(t *testing.T) {
	s := setupTestStore(t)
	mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "a", Identifier: "a.go"})
	other := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "b", Identifier: "b.go"})

	_, err := s.UpdateEntity(other.ID, EntityUpdate{Identifier: strPtr("a.go")})
	if !tracker.IsConflict(err) {
		t.Fatalf("identifier collision on update: expected conflict, got %v", err)
	}
}

func TestDeleteEntityTwiceIsConflict(t *testing.T) {
	s := setupTestStore(t)
	created := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityOther, Name: "once"})

	if _, err := s.DeleteEntity(created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeleteEntity(created.ID); !tracker.IsConflict(err) {
		t.Fatalf("double delete: expected conflict, got %v", err)
	}
}

func TestDeleteEntityCascadesLinks(t *testing.T) {
	s := setupTestStore(t)
	task := mustCreateTask(t, s, tracker.Task{Title: "Holder"})
	entity := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "linked", Identifier: "linked.go"})

	if _, err := s.LinkTaskEntity(task.ID, entity.ID, "tester"); err != nil {
		t.Fatal(err)
	}

	res, err := s.DeleteEntity(entity.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.EntitiesDeleted != 1 || res.LinksDeleted != 1 {
		t.Errorf("delete result = %+v, want 1 entity and 1 link", res)
	}

	linked, total, err := s.GetTaskEntities(task.ID, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(linked) != 0 {
		t.Errorf("task still shows %d linked entities after cascade", total)
	}
}

func TestListEntitiesTypeFilterAndSearch(t *testing.T) {
	s := setupTestStore(t)
	mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "parser", Identifier: "parser.go"})
	mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityFile, Name: "lexer", Identifier: "lexer.go"})
	mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityOther, Name: "parsing pipeline"})

	files, total, err := s.ListEntities(EntityFilter{EntityType: tracker.EntityFile}, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(files) != 2 {
		t.Errorf("file entities = %d, want 2", total)
	}

	hits, total, err := s.ListEntities(EntityFilter{Search: "pars"}, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("search 'pars' matched %d, want 2", total)
	}
	for _, e := range hits {
		if e.Name != "parser" && e.Name != "parsing pipeline" {
			t.Errorf("unexpected search hit %q", e.Name)
		}
	}
}

func TestCleanupEntitiesPurgesOldDeletes(t *testing.T) {
	s := setupTestStore(t)
	old := mustCreateEntity(t, s, tracker.Entity{EntityType: tracker.EntityOther, Name: "stale"})
	if _, err := s.DeleteEntity(old.ID); err != nil {
		t.Fatal(err)
	}

	backdated := time.Now().UTC().AddDate(0, 0, -60).Format(time.RFC3339)
	if _, err := s.db.Exec(`UPDATE entities SET deleted_at = ? WHERE id = ?`, backdated, old.ID); err != nil {
		t.Fatal(err)
	}

	removed, err := s.CleanupEntities(30)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := s.GetEntity(old.ID, true); !tracker.IsNotFound(err) {
		t.Errorf("purged entity still readable: %v", err)
	}
}
