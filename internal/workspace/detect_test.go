package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func touch(t *testing.T, parts ...string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(parts...), nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectStructureSingle(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, ".git")

	s := DetectStructure(dir)
	if s.Layout != LayoutSingle {
		t.Errorf("layout = %s, want single", s.Layout)
	}
	if len(s.Projects) != 1 || s.Projects[0] != "." {
		t.Errorf("projects = %v, want [.]", s.Projects)
	}
}

func TestDetectStructureMonorepo(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, ".git")
	touch(t, mkdir(t, dir, "api"), "go.mod")
	touch(t, mkdir(t, dir, "web"), "package.json")

	s := DetectStructure(dir)
	if s.Layout != LayoutMonorepo {
		t.Errorf("layout = %s, want monorepo", s.Layout)
	}
	if len(s.Projects) != 2 {
		t.Errorf("projects = %v, want api and web", s.Projects)
	}
}

func TestDetectStructureMultiRepo(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, "svc-a", ".git")
	mkdir(t, dir, "svc-b", ".git")

	s := DetectStructure(dir)
	if s.Layout != LayoutMultiRepo {
		t.Errorf("layout = %s, want multi_repo", s.Layout)
	}
	if len(s.Projects) != 2 {
		t.Errorf("projects = %v", s.Projects)
	}
}

func TestDetectStructureSkipsToolingDirs(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, ".git")
	touch(t, mkdir(t, dir, "node_modules", "leftpad"), "package.json")
	touch(t, mkdir(t, dir, "vendor"), "go.mod")

	s := DetectStructure(dir)
	if s.Layout != LayoutSingle {
		t.Errorf("layout = %s, tooling dirs counted as projects (%v)", s.Layout, s.Projects)
	}
}
