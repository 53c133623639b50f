package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taskmesh/taskmesh/internal/gitrepo"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/tracker"
)

// rootedCommander answers git rev-parse --show-toplevel from a fixed
// directory-to-root map and fails everything else.
type rootedCommander struct {
	roots map[string]string
}

func (c *rootedCommander) RunInDir(ctx context.Context, dir, name string, args ...string) (string, error) {
	if root, ok := c.roots[dir]; ok {
		return root, nil
	}
	return "", context.Canceled
}

type auditFixture struct {
	store *store.Store
	root  string
	path  string
}

func setupAuditStore(t *testing.T) *auditFixture {
	t.Helper()
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "ws.db")
	s, err := store.OpenStore(dbPath, "auditws1", time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return &auditFixture{store: s, root: root, path: dbPath}
}

func runAudit(t *testing.T, f *auditFixture, engine *Engine, opts Options) *Report {
	t.Helper()
	if engine == nil {
		engine = NewEngine(nil)
	}
	report, err := engine.Run(context.Background(), f.store, f.root, opts)
	if err != nil {
		t.Fatalf("audit run: %v", err)
	}
	return report
}

func issuesFor(report *Report, check string) []Issue {
	var out []Issue
	for _, issue := range report.Issues {
		if issue.Check == check {
			out = append(out, issue)
		}
	}
	return out
}

func TestAuditCleanWorkspace(t *testing.T) {
	f := setupAuditStore(t)
	if _, err := f.store.CreateTask(&tracker.Task{
		Title:          "Tidy",
		Description:    "refactor the scanner",
		Tags:           "cleanup",
		FileReferences: []string{filepath.Join(f.root, "internal", "scan.go")},
	}); err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	if report.ContaminationFound {
		t.Errorf("clean workspace flagged: %+v", report.Issues)
	}
	if report.ContaminatedItems != 0 || report.ContaminationPercentage != 0 {
		t.Errorf("contamination = %d items (%.1f%%), want zero", report.ContaminatedItems, report.ContaminationPercentage)
	}
	if report.TasksScanned != 1 {
		t.Errorf("tasks scanned = %d", report.TasksScanned)
	}
	if report.ReportID == "" {
		t.Error("missing report id")
	}
	if len(report.Recommendations) != 0 {
		t.Errorf("recommendations for clean workspace: %v", report.Recommendations)
	}
}

func TestAuditExternalFileReference(t *testing.T) {
	f := setupAuditStore(t)
	created, err := f.store.CreateTask(&tracker.Task{
		Title:          "Imported",
		FileReferences: []string{"/somewhere/else/src/main.go"},
	})
	if err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	hits := issuesFor(report, CheckFileReferences)
	if len(hits) != 1 {
		t.Fatalf("file reference issues = %d, want 1", len(hits))
	}
	if hits[0].Severity != SeverityHigh || hits[0].ID != created.ID || hits[0].Path != "/somewhere/else/src/main.go" {
		t.Errorf("issue = %+v", hits[0])
	}
	if !report.ContaminationFound || report.ContaminatedItems != 1 {
		t.Errorf("aggregate = found %v, %d items", report.ContaminationFound, report.ContaminatedItems)
	}
}

func TestAuditSuspiciousTags(t *testing.T) {
	f := setupAuditStore(t)
	if _, err := f.store.CreateTask(&tracker.Task{Title: "Leftover", Tags: "payments-api cleanup"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.CreateEntity(&tracker.Entity{
		EntityType: tracker.EntityOther,
		Name:       "old module",
		Tags:       "legacy-billing",
	}); err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	hits := issuesFor(report, CheckSuspiciousTags)
	if len(hits) != 2 {
		t.Fatalf("suspicious tag issues = %d, want 2: %+v", len(hits), hits)
	}
	kinds := map[string]bool{}
	for _, h := range hits {
		if h.Severity != SeverityMedium {
			t.Errorf("severity = %s, want medium", h.Severity)
		}
		kinds[h.Kind] = true
	}
	if !kinds["task"] || !kinds["entity"] {
		t.Errorf("expected one task and one entity issue, got %+v", hits)
	}
}

func TestAuditDescriptionPathLeakage(t *testing.T) {
	f := setupAuditStore(t)
	desc := "Port the retry logic over from /old/project/pkg/retry/retry.go before the freeze."
	if _, err := f.store.CreateTask(&tracker.Task{Title: "Port", Description: desc}); err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	hits := issuesFor(report, CheckDescriptionPaths)
	if len(hits) != 1 {
		t.Fatalf("description issues = %d, want 1: %+v", len(hits), hits)
	}
	issue := hits[0]
	if issue.Severity != SeverityLow {
		t.Errorf("severity = %s, want low", issue.Severity)
	}
	if issue.Path != "/old/project/pkg/retry/retry.go" {
		t.Errorf("path = %q", issue.Path)
	}
	if !strings.Contains(issue.Excerpt, "retry.go") {
		t.Errorf("excerpt = %q", issue.Excerpt)
	}
}

func TestAuditEntityIdentifierContainment(t *testing.T) {
	f := setupAuditStore(t)
	if _, err := f.store.CreateEntity(&tracker.Entity{
		EntityType: tracker.EntityFile,
		Name:       "foreign",
		Identifier: "/another/workspace/util.go",
	}); err != nil {
		t.Fatal(err)
	}
	// Relative identifiers resolve inside the root and stay clean.
	if _, err := f.store.CreateEntity(&tracker.Entity{
		EntityType: tracker.EntityFile,
		Name:       "local",
		Identifier: "internal/util.go",
	}); err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	hits := issuesFor(report, CheckEntityIdentifier)
	if len(hits) != 1 {
		t.Fatalf("identifier issues = %d, want 1: %+v", len(hits), hits)
	}
	if hits[0].Severity != SeverityHigh || hits[0].Kind != "entity" {
		t.Errorf("issue = %+v", hits[0])
	}
}

func TestAuditMalformedReferencesSkipRowOnly(t *testing.T) {
	f := setupAuditStore(t)
	created, err := f.store.CreateTask(&tracker.Task{Title: "Broken", Tags: "legacy-core"})
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the stored reference list directly.
	db, err := sql.Open("sqlite", f.path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`UPDATE tasks SET file_references = '{"not":' WHERE id = ?`, created.ID); err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	if hits := issuesFor(report, CheckFileReferences); len(hits) != 0 {
		t.Errorf("malformed refs produced file issues: %+v", hits)
	}
	// Other checks still see the row.
	if hits := issuesFor(report, CheckSuspiciousTags); len(hits) != 1 {
		t.Errorf("tag check skipped the row: %+v", report.Issues)
	}
}

func TestAuditCountsContaminatedItemsUniquely(t *testing.T) {
	f := setupAuditStore(t)
	// One task tripping two checks still counts once.
	if _, err := f.store.CreateTask(&tracker.Task{
		Title:          "Doubly dirty",
		Tags:           "payments-api",
		FileReferences: []string{"/foreign/repo/a.go", "/foreign/repo/b.go"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.CreateTask(&tracker.Task{Title: "Clean"}); err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	if len(report.Issues) != 3 {
		t.Fatalf("issues = %d, want 3: %+v", len(report.Issues), report.Issues)
	}
	if report.ContaminatedItems != 1 {
		t.Errorf("contaminated items = %d, want 1", report.ContaminatedItems)
	}
	if report.ContaminationPercentage != 50 {
		t.Errorf("percentage = %.1f, want 50.0", report.ContaminationPercentage)
	}
	if len(report.Recommendations) != 2 {
		t.Errorf("recommendations = %v, want one per tripped check", report.Recommendations)
	}
}

func TestAuditGitConsistency(t *testing.T) {
	f := setupAuditStore(t)
	foreign := "/foreign/repo/lib.go"
	if _, err := f.store.CreateTask(&tracker.Task{
		Title:          "Cross repo",
		FileReferences: []string{foreign, filepath.Join(f.root, "ok.go")},
	}); err != nil {
		t.Fatal(err)
	}

	cleanRoot := filepath.Clean(f.root)
	commander := &rootedCommander{roots: map[string]string{
		cleanRoot:             cleanRoot,
		filepath.Dir(foreign): "/foreign/repo",
	}}
	engine := NewEngine(gitrepo.NewClientWithCommander(time.Second, commander))

	report := runAudit(t, f, engine, Options{CheckGitRepo: true})
	if report.RepoRoot != cleanRoot {
		t.Errorf("repo root = %q, want %q", report.RepoRoot, cleanRoot)
	}
	hits := issuesFor(report, CheckGitRepoRoot)
	if len(hits) != 1 {
		t.Fatalf("git issues = %d, want 1: %+v", len(hits), report.Issues)
	}
	if hits[0].Path != foreign || hits[0].Severity != SeverityHigh {
		t.Errorf("issue = %+v", hits[0])
	}
}

func TestAuditGitCheckSkippedWithoutFlag(t *testing.T) {
	f := setupAuditStore(t)
	if _, err := f.store.CreateTask(&tracker.Task{Title: "Quiet"}); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(gitrepo.NewClientWithCommander(time.Second, &rootedCommander{}))
	report := runAudit(t, f, engine, Options{})
	if report.GitChecked {
		t.Error("git check flagged as run")
	}
	if report.RepoRoot != "" {
		t.Errorf("repo root = %q, want empty", report.RepoRoot)
	}
}

func TestAuditIncludesDeletedWhenAsked(t *testing.T) {
	f := setupAuditStore(t)
	created, err := f.store.CreateTask(&tracker.Task{
		Title:          "Deleted dirty",
		FileReferences: []string{"/elsewhere/x/y.go"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.DeleteTask(created.ID, false); err != nil {
		t.Fatal(err)
	}

	report := runAudit(t, f, nil, Options{})
	if report.TasksScanned != 0 || report.ContaminationFound {
		t.Errorf("default run scanned deleted rows: %+v", report)
	}

	report = runAudit(t, f, nil, Options{IncludeDeleted: true})
	if report.TasksScanned != 1 || !report.ContaminationFound {
		t.Errorf("include_deleted run missed the row: %+v", report)
	}
	if !report.IncludedDeleted {
		t.Error("report does not record deleted scope")
	}
}
