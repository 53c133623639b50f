package types

import (
	"encoding/json"

	"github.com/taskmesh/taskmesh/internal/registry"
	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/internal/workspace"
)

// MCP Tool Parameter Types. Every tool addresses one workspace by
// absolute path; optional update fields use pointers so an absent field
// and an explicit empty value stay distinguishable.

// WorkspaceParams is embedded in every tool's parameters.
type WorkspaceParams struct {
	WorkspacePath string `json:"workspace_path" mcp:"Absolute path of the workspace directory (required)"`
}

// GetWorkspacePath lets generic middleware read the target workspace
// off any parameter struct embedding WorkspaceParams.
func (w WorkspaceParams) GetWorkspacePath() string { return w.WorkspacePath }

// PageParams carries the shared pagination contract.
type PageParams struct {
	Limit  int `json:"limit,omitempty" mcp:"Page size, 1-100 (default 50)"`
	Offset int `json:"offset,omitempty" mcp:"Number of items to skip, >= 0"`
}

// CreateTaskParams for creating a new task
type CreateTaskParams struct {
	WorkspaceParams
	Title          string   `json:"title" mcp:"Task title, 1-500 chars (required)"`
	Description    string   `json:"description,omitempty" mcp:"Task description, up to 10000 chars"`
	Status         string   `json:"status,omitempty" mcp:"Initial status: todo, in_progress, blocked, done, cancelled (default todo)"`
	Priority       string   `json:"priority,omitempty" mcp:"Task priority: low, medium, high (default medium)"`
	ParentTaskID   *int64   `json:"parent_task_id,omitempty" mcp:"Parent task ID to create this as a subtask"`
	DependsOn      []int64  `json:"depends_on,omitempty" mcp:"Task IDs this task depends on"`
	Tags           string   `json:"tags,omitempty" mcp:"Space-separated tags (normalized to lower case)"`
	BlockerReason  string   `json:"blocker_reason,omitempty" mcp:"Why the task is blocked (required iff status=blocked)"`
	FileReferences []string `json:"file_references,omitempty" mcp:"Paths this task touches"`
	CreatedBy      string   `json:"created_by,omitempty" mcp:"Caller identity for attribution"`
}

// UpdateTaskParams for updating an existing task
type UpdateTaskParams struct {
	WorkspaceParams
	ID             int64     `json:"id" mcp:"Task ID to update (required)"`
	Title          *string   `json:"title,omitempty" mcp:"New title"`
	Description    *string   `json:"description,omitempty" mcp:"New description"`
	Status         *string   `json:"status,omitempty" mcp:"New status (transition must be legal)"`
	Priority       *string   `json:"priority,omitempty" mcp:"New priority"`
	ParentTaskID   *int64    `json:"parent_task_id,omitempty" mcp:"New parent task ID"`
	RemoveParent   bool      `json:"remove_parent,omitempty" mcp:"Detach from the current parent"`
	DependsOn      *[]int64  `json:"depends_on,omitempty" mcp:"Replacement dependency list"`
	Tags           *string   `json:"tags,omitempty" mcp:"Replacement tags"`
	BlockerReason  *string   `json:"blocker_reason,omitempty" mcp:"New blocker reason (only valid with status=blocked)"`
	FileReferences *[]string `json:"file_references,omitempty" mcp:"Replacement file reference list"`
}

// GetTaskParams for retrieving a specific task
type GetTaskParams struct {
	WorkspaceParams
	ID             int64 `json:"id" mcp:"Task ID to retrieve (required)"`
	IncludeDeleted bool  `json:"include_deleted,omitempty" mcp:"Also resolve soft-deleted tasks"`
}

// ListTasksParams for listing and filtering tasks
type ListTasksParams struct {
	WorkspaceParams
	PageParams
	Status         string `json:"status,omitempty" mcp:"Filter by status"`
	Priority       string `json:"priority,omitempty" mcp:"Filter by priority"`
	ParentTaskID   *int64 `json:"parent_task_id,omitempty" mcp:"Filter by parent task ID"`
	Tags           string `json:"tags,omitempty" mcp:"Filter by tags (all must be present)"`
	IncludeDeleted bool   `json:"include_deleted,omitempty" mcp:"Include soft-deleted tasks"`
	Mode           string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// SearchTasksParams for text search over title and description
type SearchTasksParams struct {
	WorkspaceParams
	PageParams
	Query string `json:"query" mcp:"Text to search in title and description (required)"`
	Mode  string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// DeleteTaskParams for soft-deleting a task
type DeleteTaskParams struct {
	WorkspaceParams
	ID      int64 `json:"id" mcp:"Task ID to delete (required)"`
	Cascade bool  `json:"cascade,omitempty" mcp:"Also soft-delete the whole subtask tree"`
}

// GetTaskTreeParams for retrieving a task with its subtask tree
type GetTaskTreeParams struct {
	WorkspaceParams
	ID   int64  `json:"id" mcp:"Root task ID (required)"`
	Mode string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// GetBlockedTasksParams for listing blocked tasks
type GetBlockedTasksParams struct {
	WorkspaceParams
	PageParams
	Mode string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// GetNextTasksParams for listing actionable tasks
type GetNextTasksParams struct {
	WorkspaceParams
	PageParams
	Mode string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// CleanupTasksParams for purging soft-deleted tasks
type CleanupTasksParams struct {
	WorkspaceParams
	Days int `json:"days,omitempty" mcp:"Purge tasks soft-deleted more than this many days ago (default 30)"`
}

// CreateEntityParams for creating a new entity
type CreateEntityParams struct {
	WorkspaceParams
	EntityType  string          `json:"entity_type" mcp:"Entity type: file or other (required)"`
	Name        string          `json:"name" mcp:"Display name, 1-500 chars (required)"`
	Identifier  string          `json:"identifier,omitempty" mcp:"Stable identifier, e.g. a file path; unique among active entities of the same type"`
	Description string          `json:"description,omitempty" mcp:"Entity description"`
	Metadata    json.RawMessage `json:"metadata,omitempty" mcp:"Arbitrary JSON metadata"`
	Tags        string          `json:"tags,omitempty" mcp:"Space-separated tags"`
	CreatedBy   string          `json:"created_by,omitempty" mcp:"Caller identity for attribution"`
}

// UpdateEntityParams for updating an existing entity
type UpdateEntityParams struct {
	WorkspaceParams
	ID          int64            `json:"id" mcp:"Entity ID to update (required)"`
	Name        *string          `json:"name,omitempty" mcp:"New name"`
	Identifier  *string          `json:"identifier,omitempty" mcp:"New identifier"`
	Description *string          `json:"description,omitempty" mcp:"New description"`
	Metadata    *json.RawMessage `json:"metadata,omitempty" mcp:"Replacement JSON metadata"`
	Tags        *string          `json:"tags,omitempty" mcp:"Replacement tags"`
}

// GetEntityParams for retrieving a specific entity
type GetEntityParams struct {
	WorkspaceParams
	ID             int64 `json:"id" mcp:"Entity ID to retrieve (required)"`
	IncludeDeleted bool  `json:"include_deleted,omitempty" mcp:"Also resolve soft-deleted entities"`
}

// ListEntitiesParams for listing and filtering entities
type ListEntitiesParams struct {
	WorkspaceParams
	PageParams
	EntityType     string `json:"entity_type,omitempty" mcp:"Filter by type: file or other"`
	Tags           string `json:"tags,omitempty" mcp:"Filter by tags (all must be present)"`
	IncludeDeleted bool   `json:"include_deleted,omitempty" mcp:"Include soft-deleted entities"`
	Mode           string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// SearchEntitiesParams for text search over name, identifier and description
type SearchEntitiesParams struct {
	WorkspaceParams
	PageParams
	Query string `json:"query" mcp:"Text to search in name, identifier and description (required)"`
	Mode  string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// DeleteEntityParams for soft-deleting an entity
type DeleteEntityParams struct {
	WorkspaceParams
	ID int64 `json:"id" mcp:"Entity ID to delete (required)"`
}

// CleanupEntitiesParams for purging soft-deleted entities
type CleanupEntitiesParams struct {
	WorkspaceParams
	Days int `json:"days,omitempty" mcp:"Purge entities soft-deleted more than this many days ago (default 30)"`
}

// LinkEntityToTaskParams for creating a task-entity link
type LinkEntityToTaskParams struct {
	WorkspaceParams
	TaskID    int64  `json:"task_id" mcp:"Task ID (required)"`
	EntityID  int64  `json:"entity_id" mcp:"Entity ID (required)"`
	CreatedBy string `json:"created_by,omitempty" mcp:"Caller identity for attribution"`
}

// GetTaskEntitiesParams lists entities linked to a task
type GetTaskEntitiesParams struct {
	WorkspaceParams
	PageParams
	TaskID int64  `json:"task_id" mcp:"Task ID (required)"`
	Mode   string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// GetEntityTasksParams lists tasks linked to an entity
type GetEntityTasksParams struct {
	WorkspaceParams
	PageParams
	EntityID int64  `json:"entity_id" mcp:"Entity ID (required)"`
	Mode     string `json:"mode,omitempty" mcp:"View mode: summary (default) or details"`
}

// PerformWorkspaceAuditParams for running the contamination audit
type PerformWorkspaceAuditParams struct {
	WorkspaceParams
	IncludeDeleted bool `json:"include_deleted,omitempty" mcp:"Also scan soft-deleted rows"`
	CheckGitRepo   bool `json:"check_git_repo,omitempty" mcp:"Also verify git repository-root consistency"`
}

// RegisterProjectParams for registering a workspace
type RegisterProjectParams struct {
	WorkspaceParams
	FriendlyName string `json:"friendly_name,omitempty" mcp:"Display name for the workspace"`
}

// ListProjectsParams for listing registered workspaces
type ListProjectsParams struct{}

// GetProjectInfoParams for workspace statistics
type GetProjectInfoParams struct {
	WorkspaceParams
}

// GetUsageStatsParams for tool usage aggregation
type GetUsageStatsParams struct {
	WorkspaceParams
	Days     int    `json:"days,omitempty" mcp:"Window in days (default 30)"`
	ToolName string `json:"tool_name,omitempty" mcp:"Restrict to one tool"`
}

// MCP Tool Response Types. View-shaped items are emitted as
// interface{} because their concrete shape depends on the requested
// mode.

// TaskResponse wraps one task
type TaskResponse struct {
	Task interface{} `json:"task"`
}

// TaskListResponse wraps a page of tasks
type TaskListResponse struct {
	Tasks      []interface{} `json:"tasks"`
	Pagination tracker.Page  `json:"pagination"`
}

// TaskTreeResponse wraps a view-shaped subtask tree
type TaskTreeResponse struct {
	Tree interface{} `json:"tree"`
}

// EntityResponse wraps one entity
type EntityResponse struct {
	Entity interface{} `json:"entity"`
}

// EntityListResponse wraps a page of entities
type EntityListResponse struct {
	Entities   []interface{} `json:"entities"`
	Pagination tracker.Page  `json:"pagination"`
}

// LinkResponse wraps one created link
type LinkResponse struct {
	Link interface{} `json:"link"`
}

// LinkedItem is one linked row plus its link metadata, which is
// preserved regardless of view mode.
type LinkedItem struct {
	Item          interface{} `json:"item"`
	LinkCreatedAt string      `json:"link_created_at"`
	LinkCreatedBy string      `json:"link_created_by,omitempty"`
}

// LinkedListResponse wraps a page of linked rows
type LinkedListResponse struct {
	Items      []LinkedItem `json:"items"`
	Pagination tracker.Page `json:"pagination"`
}

// DeleteResponse reports cascade counts for a soft delete
type DeleteResponse struct {
	TasksDeleted    int `json:"tasks_deleted"`
	EntitiesDeleted int `json:"entities_deleted"`
	LinksDeleted    int `json:"links_deleted"`
}

// CleanupResponse reports how many soft-deleted rows were purged
type CleanupResponse struct {
	Removed int `json:"removed"`
	Days    int `json:"days"`
}

// ProjectResponse wraps one registered workspace
type ProjectResponse struct {
	Project registry.Workspace `json:"project"`
}

// ProjectListResponse wraps all registered workspaces
type ProjectListResponse struct {
	Projects []registry.Workspace `json:"projects"`
	Count    int                  `json:"count"`
}

// ProjectInfoResponse reports per-workspace statistics
type ProjectInfoResponse struct {
	Project         registry.Workspace  `json:"project"`
	StorePath       string              `json:"store_path"`
	Structure       workspace.Structure `json:"structure"`
	TasksByStatus   map[string]int      `json:"tasks_by_status"`
	TasksByPriority map[string]int      `json:"tasks_by_priority"`
	EntitiesByType  map[string]int      `json:"entities_by_type"`
	ActiveLinks     int                 `json:"active_links"`
}

// UsageStatsResponse reports aggregated tool usage
type UsageStatsResponse struct {
	WorkspaceID string               `json:"workspace_id"`
	Days        int                  `json:"days"`
	Stats       []registry.UsageStat `json:"stats"`
}
