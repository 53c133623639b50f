package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// Layout classifies how a workspace directory is organized. The id and
// store are the same either way; the layout is reported so callers know
// whether task file references may legitimately span nested projects.
type Layout string

const (
	// LayoutSingle is one project with a unified tree.
	LayoutSingle Layout = "single"
	// LayoutMonorepo is one git root containing nested projects.
	LayoutMonorepo Layout = "monorepo"
	// LayoutMultiRepo is a plain directory holding independent repos.
	LayoutMultiRepo Layout = "multi_repo"
)

// Structure describes the detected organization of a workspace.
type Structure struct {
	Layout   Layout   `json:"layout"`
	Projects []string `json:"projects,omitempty"`
}

// projectMarkers are files whose presence makes a subdirectory count as
// a nested project.
var projectMarkers = []string{
	".git",
	"go.mod",
	"package.json",
	"pyproject.toml",
	"requirements.txt",
	"Cargo.toml",
	"pom.xml",
	"build.gradle",
	"Dockerfile",
}

// skipDirs never count as nested projects even when they carry markers.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	"bin":          true,
	"__pycache__":  true,
	"coverage":     true,
}

// DetectStructure classifies a workspace directory. A directory with
// nested projects is a monorepo when the root itself is a git work
// tree, a multi-repo collection otherwise; anything else is single.
func DetectStructure(absPath string) Structure {
	nested := nestedProjects(absPath)
	if len(nested) == 0 {
		return Structure{Layout: LayoutSingle, Projects: []string{"."}}
	}
	layout := LayoutMultiRepo
	if hasGitDir(absPath) {
		layout = LayoutMonorepo
	}
	return Structure{Layout: layout, Projects: nested}
}

func hasGitDir(path string) bool {
	stat, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && stat.IsDir()
}

func nestedProjects(basePath string) []string {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil
	}
	var projects []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}
		if isProjectDir(filepath.Join(basePath, name)) {
			projects = append(projects, name)
		}
	}
	return projects
}

func isProjectDir(path string) bool {
	for _, marker := range projectMarkers {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			return true
		}
	}
	return false
}
