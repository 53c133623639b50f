package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/taskmesh/taskmesh/internal/audit"
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/tracker"
	"github.com/taskmesh/taskmesh/internal/workspace"
	"github.com/taskmesh/taskmesh/types"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}

// writeErr maps domain errors onto HTTP status codes.
func writeErr(w http.ResponseWriter, s *Server, err error) {
	status := http.StatusInternalServerError
	switch {
	case tracker.IsNotFound(err):
		status = http.StatusNotFound
	case tracker.IsValidation(err):
		status = http.StatusBadRequest
	case tracker.IsConflict(err):
		status = http.StatusConflict
	default:
		var pag *tracker.PaginationError
		if errors.As(err, &pag) {
			status = http.StatusBadRequest
		} else {
			s.logger.Error("request failed", "error", err)
		}
	}
	http.Error(w, err.Error(), status)
}

// resolveStore opens the store for the workspace_path query parameter.
func (s *Server) resolveStore(w http.ResponseWriter, r *http.Request) (*store.Store, string, bool) {
	path := r.URL.Query().Get("workspace_path")
	abs, err := workspace.Resolve(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	id, err := s.registry.Register(abs)
	if err != nil {
		writeErr(w, s, err)
		return nil, "", false
	}
	st, err := s.stores.Get(id)
	if err != nil {
		writeErr(w, s, err)
		return nil, "", false
	}
	return st, abs, true
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// requestPage pulls and validates limit/offset.
func requestPage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return 0, 0, false
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return 0, 0, false
	}
	limit, offset, perr := tracker.ValidatePage(limit, offset)
	if perr != nil {
		http.Error(w, perr.Error(), http.StatusBadRequest)
		return 0, 0, false
	}
	return limit, offset, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func requestMode(w http.ResponseWriter, r *http.Request) (tracker.Mode, bool) {
	mode, err := tracker.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return mode, true
}

func taskItems(tasks []tracker.Task, mode tracker.Mode) []interface{} {
	out := make([]interface{}, 0, len(tasks))
	for i := range tasks {
		if mode == tracker.ModeDetails {
			out = append(out, &tasks[i])
		} else {
			out = append(out, tasks[i].Summarize())
		}
	}
	return out
}

// treeItem mirrors store.TaskTree with the mode applied to every task.
type treeItem struct {
	Task     interface{} `json:"task"`
	Children []treeItem  `json:"children,omitempty"`
}

func taskTreeItem(t *store.TaskTree, mode tracker.Mode) treeItem {
	item := treeItem{}
	if mode == tracker.ModeDetails {
		item.Task = &t.Task
	} else {
		item.Task = t.Task.Summarize()
	}
	for _, child := range t.Children {
		item.Children = append(item.Children, taskTreeItem(child, mode))
	}
	return item
}

func entityItems(entities []tracker.Entity, mode tracker.Mode) []interface{} {
	out := make([]interface{}, 0, len(entities))
	for i := range entities {
		if mode == tracker.ModeDetails {
			out = append(out, &entities[i])
		} else {
			out = append(out, entities[i].Summarize())
		}
	}
	return out
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.registry.List()
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.ProjectListResponse{Projects: projects, Count: len(projects)})
}

func (s *Server) handleProjectInfo(w http.ResponseWriter, r *http.Request) {
	st, abs, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	project, err := s.registry.Get(workspace.Hash(abs))
	if err != nil {
		writeErr(w, s, err)
		return
	}
	byStatus, err := st.CountTasksByStatus()
	if err != nil {
		writeErr(w, s, err)
		return
	}
	byPriority, err := st.CountTasksByPriority()
	if err != nil {
		writeErr(w, s, err)
		return
	}
	byType, err := st.CountEntitiesByType()
	if err != nil {
		writeErr(w, s, err)
		return
	}
	links, err := st.CountActiveLinks()
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.ProjectInfoResponse{
		Project:         *project,
		StorePath:       st.Path(),
		Structure:       workspace.DetectStructure(abs),
		TasksByStatus:   byStatus,
		TasksByPriority: byPriority,
		EntitiesByType:  byType,
		ActiveLinks:     links,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	mode, ok := requestMode(w, r)
	if !ok {
		return
	}
	limit, offset, ok := requestPage(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.TaskFilter{
		Tags:           tracker.TagList(q.Get("tags")),
		Search:         q.Get("search"),
		IncludeDeleted: q.Get("include_deleted") == "true",
	}
	if raw := q.Get("status"); raw != "" {
		status, err := tracker.ParseStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("priority"); raw != "" {
		priority, err := tracker.ParsePriority(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Priority = priority
	}

	tasks, total, err := st.ListTasks(filter, limit, offset)
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.TaskListResponse{
		Tasks: taskItems(tasks, mode),
		Pagination: tracker.Page{
			TotalCount:    total,
			ReturnedCount: len(tasks),
			Limit:         limit,
			Offset:        offset,
		},
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	task, err := st.GetTask(id, r.URL.Query().Get("include_deleted") == "true")
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.TaskResponse{Task: task})
}

func (s *Server) handleTaskTree(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	mode, ok := requestMode(w, r)
	if !ok {
		return
	}
	tree, err := st.GetTaskTree(id)
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.TaskTreeResponse{Tree: taskTreeItem(tree, mode)})
}

func (s *Server) handleTaskEntities(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, offset, ok := requestPage(w, r)
	if !ok {
		return
	}
	rows, total, err := st.GetTaskEntities(id, limit, offset)
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, struct {
		Items      []store.LinkedEntity `json:"items"`
		Pagination tracker.Page         `json:"pagination"`
	}{rows, tracker.Page{TotalCount: total, ReturnedCount: len(rows), Limit: limit, Offset: offset}})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	mode, ok := requestMode(w, r)
	if !ok {
		return
	}
	limit, offset, ok := requestPage(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.EntityFilter{
		Tags:           tracker.TagList(q.Get("tags")),
		Search:         q.Get("search"),
		IncludeDeleted: q.Get("include_deleted") == "true",
	}
	if raw := q.Get("entity_type"); raw != "" {
		entityType, err := tracker.ParseEntityType(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.EntityType = entityType
	}

	entities, total, err := st.ListEntities(filter, limit, offset)
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.EntityListResponse{
		Entities: entityItems(entities, mode),
		Pagination: tracker.Page{
			TotalCount:    total,
			ReturnedCount: len(entities),
			Limit:         limit,
			Offset:        offset,
		},
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entity, err := st.GetEntity(id, r.URL.Query().Get("include_deleted") == "true")
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.EntityResponse{Entity: entity})
}

func (s *Server) handleEntityTasks(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, offset, ok := requestPage(w, r)
	if !ok {
		return
	}
	rows, total, err := st.GetEntityTasks(id, limit, offset)
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, struct {
		Items      []store.LinkedTask `json:"items"`
		Pagination tracker.Page       `json:"pagination"`
	}{rows, tracker.Page{TotalCount: total, ReturnedCount: len(rows), Limit: limit, Offset: offset}})
}

func (s *Server) handleNextTasks(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	mode, ok := requestMode(w, r)
	if !ok {
		return
	}
	limit, offset, ok := requestPage(w, r)
	if !ok {
		return
	}
	tasks, total, err := st.NextTasks(limit, offset)
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.TaskListResponse{
		Tasks: taskItems(tasks, mode),
		Pagination: tracker.Page{
			TotalCount:    total,
			ReturnedCount: len(tasks),
			Limit:         limit,
			Offset:        offset,
		},
	})
}

func (s *Server) handleBlockedTasks(w http.ResponseWriter, r *http.Request) {
	st, _, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	mode, ok := requestMode(w, r)
	if !ok {
		return
	}
	limit, offset, ok := requestPage(w, r)
	if !ok {
		return
	}
	tasks, total, err := st.ListTasks(store.TaskFilter{Status: tracker.StatusBlocked}, limit, offset)
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.TaskListResponse{
		Tasks: taskItems(tasks, mode),
		Pagination: tracker.Page{
			TotalCount:    total,
			ReturnedCount: len(tasks),
			Limit:         limit,
			Offset:        offset,
		},
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	st, abs, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	report, err := s.audit.Run(r.Context(), st, abs, audit.Options{
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
		CheckGitRepo:   r.URL.Query().Get("check_git_repo") == "true",
	})
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleUsageStats(w http.ResponseWriter, r *http.Request) {
	_, abs, ok := s.resolveStore(w, r)
	if !ok {
		return
	}
	days, err := queryInt(r, "days")
	if err != nil {
		http.Error(w, "invalid days", http.StatusBadRequest)
		return
	}
	if days <= 0 {
		days = 30
	}
	id := workspace.Hash(abs)
	stats, err := s.registry.UsageStats(id, days, r.URL.Query().Get("tool_name"))
	if err != nil {
		writeErr(w, s, err)
		return
	}
	writeJSON(w, types.UsageStatsResponse{WorkspaceID: id, Days: days, Stats: stats})
}
