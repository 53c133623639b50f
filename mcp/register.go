package mcp

import (
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers every tool on the server. Each handler is
// wrapped so its invocation lands in the registry's usage trail.
func RegisterTools(server *mcpsdk.Server, deps *Deps) error {
	// Task lifecycle
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "createTask",
		Description: "Create a task in a workspace. Args: workspace_path (required), title (required), description, status, priority [low|medium|high], parent_task_id, depends_on[], tags, blocker_reason, file_references[], created_by.",
	}, withUsage(deps, "createTask", createTaskHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "updateTask",
		Description: "Update a task. Status changes must follow the lifecycle: todo -> in_progress -> done, blocked requires blocker_reason, done requires all depends_on tasks done.",
	}, withUsage(deps, "updateTask", updateTaskHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getTask",
		Description: "Get one task by id with full metadata. Soft-deleted tasks resolve only with include_deleted=true.",
	}, withUsage(deps, "getTask", getTaskHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "listTasks",
		Description: "List tasks with filters (status, priority, parent_task_id, tags) and pagination (limit 1-100, offset). mode=summary|details.",
	}, withUsage(deps, "listTasks", listTasksHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "searchTasks",
		Description: "Search tasks by text across title, description and tags. Paginated; mode=summary|details.",
	}, withUsage(deps, "searchTasks", searchTasksHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "deleteTask",
		Description: "Soft-delete a task and its links. cascade=true also soft-deletes the whole subtask tree. Returns affected counts.",
	}, withUsage(deps, "deleteTask", deleteTaskHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getTaskTree",
		Description: "Get a task with its full subtask tree. mode applies to every node.",
	}, withUsage(deps, "getTaskTree", getTaskTreeHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getBlockedTasks",
		Description: "List tasks with status=blocked and their blocker reasons. Paginated.",
	}, withUsage(deps, "getBlockedTasks", getBlockedTasksHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getNextTasks",
		Description: "List actionable todo tasks (all dependencies done), highest priority first, oldest first within a priority. Paginated.",
	}, withUsage(deps, "getNextTasks", getNextTasksHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "cleanupDeletedTasks",
		Description: "Physically purge tasks soft-deleted more than N days ago (default 30). Irreversible.",
	}, withUsage(deps, "cleanupDeletedTasks", cleanupDeletedTasksHandler(deps)))

	// Entities and links
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "createEntity",
		Description: "Create an entity (entity_type file|other). identifier must be unique among active entities of the same type.",
	}, withUsage(deps, "createEntity", createEntityHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "updateEntity",
		Description: "Update an entity's name, identifier, description, metadata (JSON) or tags.",
	}, withUsage(deps, "updateEntity", updateEntityHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getEntity",
		Description: "Get one entity by id. Soft-deleted entities resolve only with include_deleted=true.",
	}, withUsage(deps, "getEntity", getEntityHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "listEntities",
		Description: "List entities with filters (entity_type, tags) and pagination. mode=summary|details.",
	}, withUsage(deps, "listEntities", listEntitiesHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "searchEntities",
		Description: "Search entities by text across name, identifier and description. Paginated; mode=summary|details.",
	}, withUsage(deps, "searchEntities", searchEntitiesHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "deleteEntity",
		Description: "Soft-delete an entity and every active link referencing it. Returns affected counts.",
	}, withUsage(deps, "deleteEntity", deleteEntityHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "cleanupDeletedEntities",
		Description: "Physically purge entities soft-deleted more than N days ago (default 30). Irreversible.",
	}, withUsage(deps, "cleanupDeletedEntities", cleanupDeletedEntitiesHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "linkEntityToTask",
		Description: "Link an entity to a task. Fails if either side is missing or deleted, or the pair is already actively linked.",
	}, withUsage(deps, "linkEntityToTask", linkEntityToTaskHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getTaskEntities",
		Description: "List entities linked to a task with link metadata (link_created_at, link_created_by). Paginated.",
	}, withUsage(deps, "getTaskEntities", getTaskEntitiesHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getEntityTasks",
		Description: "List tasks linked to an entity with link metadata. Paginated.",
	}, withUsage(deps, "getEntityTasks", getEntityTasksHandler(deps)))

	// Workspace integrity
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "performWorkspaceAudit",
		Description: "Scan a workspace for cross-project contamination: external file references, suspicious tags, path leakage in descriptions, external entity identifiers, and (optionally) git repository-root mismatches.",
	}, withUsage(deps, "performWorkspaceAudit", performWorkspaceAuditHandler(deps)))

	// Registry
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "registerProject",
		Description: "Register a workspace path (idempotent; refreshes last_accessed) and optionally set its friendly name.",
	}, withUsage(deps, "registerProject", registerProjectHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "listProjects",
		Description: "List every registered workspace, most recently accessed first.",
	}, withUsage(deps, "listProjects", listProjectsHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getProjectInfo",
		Description: "Get workspace statistics: task counts by status and priority, entity counts by type, active link count.",
	}, withUsage(deps, "getProjectInfo", getProjectInfoHandler(deps)))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "getUsageStats",
		Description: "Aggregate tool usage for a workspace over the last N days (default 30), optionally for one tool.",
	}, withUsage(deps, "getUsageStats", getUsageStatsHandler(deps)))

	return nil
}
