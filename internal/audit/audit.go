/*
Package audit implements the workspace integrity scan: five independent
checks over one snapshot of a workspace's tasks and entities, looking
for data that appears to belong to a different project. Checks never
abort each other; a value one check cannot parse is skipped for that
check only.
*/
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/taskmesh/internal/gitrepo"
	"github.com/taskmesh/taskmesh/internal/store"
)

// Severity classifies how strongly an issue indicates contamination.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Check names, used both as issue categories and recommendation keys.
const (
	CheckFileReferences   = "file_reference_containment"
	CheckSuspiciousTags   = "suspicious_tags"
	CheckDescriptionPaths = "description_path_leakage"
	CheckEntityIdentifier = "entity_identifier_containment"
	CheckGitRepoRoot      = "git_repo_consistency"
)

// Issue is one finding produced by one check.
type Issue struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"` // "task" or "entity"
	ID       int64    `json:"id"`
	Title    string   `json:"title,omitempty"`
	Detail   string   `json:"detail"`
	Path     string   `json:"path,omitempty"`
	Excerpt  string   `json:"excerpt,omitempty"`
}

// Report is the aggregated result of one audit run.
type Report struct {
	ReportID                string           `json:"report_id"`
	WorkspaceID             string           `json:"workspace_id"`
	WorkspacePath           string           `json:"workspace_path"`
	GeneratedAt             time.Time        `json:"generated_at"`
	TasksScanned            int              `json:"tasks_scanned"`
	EntitiesScanned         int              `json:"entities_scanned"`
	IncludedDeleted         bool             `json:"included_deleted"`
	GitChecked              bool             `json:"git_checked"`
	RepoRoot                string           `json:"repo_root,omitempty"`
	ContaminationFound      bool             `json:"contamination_found"`
	ContaminatedItems       int              `json:"contaminated_items"`
	ContaminationPercentage float64          `json:"contamination_percentage"`
	IssuesBySeverity        map[Severity]int `json:"issues_by_severity"`
	Issues                  []Issue          `json:"issues"`
	Recommendations         []string         `json:"recommendations"`
}

// Options controls the scope of one audit run.
type Options struct {
	IncludeDeleted bool
	CheckGitRepo   bool
}

// suspiciousTagPatterns are heuristic markers of tags imported from a
// different project: scoped package names, known sibling-project
// suffixes, and path-like tag text. Tags are already normalized to
// lower case before matching.
var suspiciousTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^@[a-z0-9-]+/`),
	regexp.MustCompile(`(-app|-api|-service|-frontend|-backend|-client|-server)$`),
	regexp.MustCompile(`^(legacy|old|archive|migrated)-`),
	regexp.MustCompile(`[/\\]`),
}

// absPathPattern pulls absolute-looking path substrings out of free
// text: unix paths with at least two components, or windows drive
// paths.
var absPathPattern = regexp.MustCompile(`(?:/[A-Za-z0-9._~-]+){2,}|[A-Za-z]:\\[^\s"']+`)

// Engine runs integrity scans against one workspace store.
type Engine struct {
	git *gitrepo.Client
}

// NewEngine creates an audit engine. git may be nil when repository
// checks will never be requested.
func NewEngine(git *gitrepo.Client) *Engine {
	return &Engine{git: git}
}

// Run executes all checks against st and aggregates their findings.
func (e *Engine) Run(ctx context.Context, st *store.Store, workspacePath string, opts Options) (*Report, error) {
	tasks, err := st.AuditTasks(opts.IncludeDeleted)
	if err != nil {
		return nil, fmt.Errorf("audit snapshot: %w", err)
	}
	entities, err := st.AuditEntities(opts.IncludeDeleted)
	if err != nil {
		return nil, fmt.Errorf("audit snapshot: %w", err)
	}

	root := filepath.Clean(workspacePath)

	report := &Report{
		ReportID:         uuid.NewString(),
		WorkspaceID:      st.WorkspaceID(),
		WorkspacePath:    root,
		GeneratedAt:      time.Now().UTC(),
		TasksScanned:     len(tasks),
		EntitiesScanned:  len(entities),
		IncludedDeleted:  opts.IncludeDeleted,
		GitChecked:       opts.CheckGitRepo,
		IssuesBySeverity: map[Severity]int{},
		Issues:           []Issue{},
	}

	// externalRefs collects, per task, the file references that parsed
	// cleanly. The git consistency check reuses them so a task whose
	// references could not be parsed is skipped there too.
	parsedRefs := make(map[int64][]string)

	report.Issues = append(report.Issues, checkFileReferences(tasks, root, parsedRefs)...)
	report.Issues = append(report.Issues, checkSuspiciousTags(tasks, entities)...)
	report.Issues = append(report.Issues, checkDescriptionPaths(tasks, root)...)
	report.Issues = append(report.Issues, checkEntityIdentifiers(entities, root)...)

	if opts.CheckGitRepo && e.git != nil {
		report.RepoRoot = e.git.RepoRoot(ctx, root)
		report.Issues = append(report.Issues, e.checkGitConsistency(ctx, tasks, parsedRefs, report.RepoRoot)...)
	}

	aggregate(report)
	return report, nil
}

// checkFileReferences flags every file reference resolving outside the
// workspace root. A task whose stored reference list is not valid JSON
// is skipped for this check only.
func checkFileReferences(tasks []store.TaskAuditRow, root string, parsedRefs map[int64][]string) []Issue {
	var issues []Issue
	for _, t := range tasks {
		refs, ok := parseRefs(t.RawFileReferences)
		if !ok {
			continue
		}
		parsedRefs[t.ID] = refs
		for _, ref := range refs {
			if ref == "" || insideRoot(root, ref) {
				continue
			}
			issues = append(issues, Issue{
				Check:    CheckFileReferences,
				Severity: SeverityHigh,
				Kind:     "task",
				ID:       t.ID,
				Title:    t.Title,
				Path:     ref,
				Detail:   fmt.Sprintf("file reference %q resolves outside the workspace root", ref),
			})
		}
	}
	return issues
}

func checkSuspiciousTags(tasks []store.TaskAuditRow, entities []store.EntityAuditRow) []Issue {
	var issues []Issue
	flag := func(kind string, id int64, title, tags string) {
		for _, tag := range strings.Fields(tags) {
			for _, pat := range suspiciousTagPatterns {
				if pat.MatchString(tag) {
					issues = append(issues, Issue{
						Check:    CheckSuspiciousTags,
						Severity: SeverityMedium,
						Kind:     kind,
						ID:       id,
						Title:    title,
						Detail:   fmt.Sprintf("tag %q matches a cross-project pattern", tag),
					})
					break
				}
			}
		}
	}
	for _, t := range tasks {
		flag("task", t.ID, t.Title, t.Tags)
	}
	for _, e := range entities {
		flag("entity", e.ID, e.Name, e.Tags)
	}
	return issues
}

func checkDescriptionPaths(tasks []store.TaskAuditRow, root string) []Issue {
	var issues []Issue
	for _, t := range tasks {
		if t.Description == "" {
			continue
		}
		for _, loc := range absPathPattern.FindAllStringIndex(t.Description, -1) {
			candidate := t.Description[loc[0]:loc[1]]
			if insideRoot(root, candidate) {
				continue
			}
			issues = append(issues, Issue{
				Check:    CheckDescriptionPaths,
				Severity: SeverityLow,
				Kind:     "task",
				ID:       t.ID,
				Title:    t.Title,
				Path:     candidate,
				Excerpt:  excerpt(t.Description, loc[0], loc[1]),
				Detail:   fmt.Sprintf("description mentions path %q outside the workspace root", candidate),
			})
		}
	}
	return issues
}

func checkEntityIdentifiers(entities []store.EntityAuditRow, root string) []Issue {
	var issues []Issue
	for _, e := range entities {
		id := e.Identifier
		if !looksLikePath(id) {
			continue
		}
		if insideRoot(root, id) {
			continue
		}
		issues = append(issues, Issue{
			Check:    CheckEntityIdentifier,
			Severity: SeverityHigh,
			Kind:     "entity",
			ID:       e.ID,
			Title:    e.Name,
			Path:     id,
			Detail:   fmt.Sprintf("entity identifier %q resolves outside the workspace root", id),
		})
	}
	return issues
}

// checkGitConsistency flags file references whose repository root
// differs from the workspace's own. Lookups are best effort: a
// reference whose root cannot be determined contributes nothing.
func (e *Engine) checkGitConsistency(ctx context.Context, tasks []store.TaskAuditRow, parsedRefs map[int64][]string, workspaceRoot string) []Issue {
	if workspaceRoot == "" {
		return nil
	}
	// One lookup per distinct directory; references in the same
	// directory share a repo root.
	rootCache := make(map[string]string)
	repoRootOf := func(path string) string {
		dir := filepath.Dir(path)
		if cached, ok := rootCache[dir]; ok {
			return cached
		}
		root := e.git.RepoRoot(ctx, dir)
		rootCache[dir] = root
		return root
	}

	var issues []Issue
	for _, t := range tasks {
		for _, ref := range parsedRefs[t.ID] {
			if ref == "" || !filepath.IsAbs(ref) {
				continue
			}
			refRoot := repoRootOf(ref)
			if refRoot == "" || refRoot == workspaceRoot {
				continue
			}
			issues = append(issues, Issue{
				Check:    CheckGitRepoRoot,
				Severity: SeverityHigh,
				Kind:     "task",
				ID:       t.ID,
				Title:    t.Title,
				Path:     ref,
				Detail:   fmt.Sprintf("file reference %q belongs to repository %q, not %q", ref, refRoot, workspaceRoot),
			})
		}
	}
	return issues
}

func aggregate(r *Report) {
	type key struct {
		kind string
		id   int64
	}
	contaminated := make(map[key]struct{})
	categories := make(map[string]struct{})
	for _, issue := range r.Issues {
		r.IssuesBySeverity[issue.Severity]++
		contaminated[key{issue.Kind, issue.ID}] = struct{}{}
		categories[issue.Check] = struct{}{}
	}
	r.ContaminatedItems = len(contaminated)
	r.ContaminationFound = len(r.Issues) > 0
	if total := r.TasksScanned + r.EntitiesScanned; total > 0 {
		r.ContaminationPercentage = float64(r.ContaminatedItems) / float64(total) * 100
	}
	r.Recommendations = recommendations(categories)
}

var recommendationText = map[string]string{
	CheckFileReferences:   "Remove or re-point file references that resolve outside this workspace; they likely belong to another project's tasks.",
	CheckSuspiciousTags:   "Review tags matching cross-project patterns and delete the ones copied in from another workspace.",
	CheckDescriptionPaths: "Check descriptions mentioning external paths; rewrite them relative to this workspace or move the tasks to the right project.",
	CheckEntityIdentifier: "Re-create entities whose identifiers point outside this workspace in the project that actually owns those files.",
	CheckGitRepoRoot:      "File references resolve into a different git repository; move those tasks to that repository's workspace.",
}

func recommendations(categories map[string]struct{}) []string {
	keys := make([]string, 0, len(categories))
	for c := range categories {
		keys = append(keys, c)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, c := range keys {
		out = append(out, recommendationText[c])
	}
	return out
}

// parseRefs decodes a stored file-reference list. The second return is
// false when the stored text is not a valid JSON string array.
func parseRefs(raw string) ([]string, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var refs []string
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, false
	}
	return refs, true
}

// insideRoot reports whether path resolves inside root. Relative paths
// are resolved against root and therefore always inside unless they
// escape via parent traversal.
func insideRoot(root, path string) bool {
	p := filepath.Clean(path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

func looksLikePath(s string) bool {
	if s == "" {
		return false
	}
	return filepath.IsAbs(s) || strings.ContainsAny(s, `/\`)
}

// excerpt returns the matched text with a little surrounding context.
func excerpt(text string, start, end int) string {
	const pad = 30
	lo := start - pad
	if lo < 0 {
		lo = 0
	}
	hi := end + pad
	if hi > len(text) {
		hi = len(text)
	}
	out := text[lo:hi]
	if lo > 0 {
		out = "..." + out
	}
	if hi < len(text) {
		out += "..."
	}
	return strings.ReplaceAll(out, "\n", " ")
}
