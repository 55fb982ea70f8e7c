package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ShayCichocki/planforge/internal/gateway"
	"github.com/ShayCichocki/planforge/internal/lifecycle"
	"github.com/ShayCichocki/planforge/internal/saga"
	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

// Version is the orchestrator API version.
const Version = "1.0.0"

// Deps carries everything the server needs. All fields are required except
// Debug, which defaults to a no-op logger.
type Deps struct {
	DB        *store.DB
	Lifecycle *lifecycle.Manager
	Finalizer *saga.Finalizer
	Planning  gateway.Invoker
	Hosting   gateway.Invoker
	Sandbox   gateway.Invoker
	Debug     *DebugLogger
}

// Server is the orchestrator HTTP API.
type Server struct {
	db        *store.DB
	lifecycle *lifecycle.Manager
	finalizer *saga.Finalizer
	planning  gateway.Invoker
	hosting   gateway.Invoker
	sandbox   gateway.Invoker
	debug     *DebugLogger
}

// NewServer builds the orchestrator server from its dependencies.
func NewServer(deps Deps) *Server {
	debug := deps.Debug
	if debug == nil {
		debug = NopLogger()
	}
	return &Server{
		db:        deps.DB,
		lifecycle: deps.Lifecycle,
		finalizer: deps.Finalizer,
		planning:  deps.Planning,
		hosting:   deps.Hosting,
		sandbox:   deps.Sandbox,
		debug:     debug,
	}
}

// Handler builds the HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Post("/projects/create", s.handleCreateProject)
	r.Post("/projects/continue", s.handleContinueProject)
	r.Post("/projects/finalize", s.handleFinalizeProject)
	r.Get("/projects", s.handleListProjects)
	r.Get("/projects/{project_id}", s.handleGetProject)
	r.Get("/projects/{project_id}/plan", s.handleGetPlan)
	r.Get("/projects/{project_id}/next-tasks", s.handleNextTasks)

	r.Post("/tasks/execute", s.handleExecuteTask)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "planforge orchestrator",
		"version": Version,
		"status":  "running",
	})
}

// healthChecker is implemented by gateway.Client; in-process invokers are
// always healthy.
type healthChecker interface {
	Healthy(ctx context.Context) bool
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	collaborators := map[string]bool{}
	for name, invoker := range map[string]gateway.Invoker{
		"planning": s.planning,
		"hosting":  s.hosting,
		"sandbox":  s.sandbox,
	} {
		if hc, ok := invoker.(healthChecker); ok {
			collaborators[name] = hc.Healthy(r.Context())
		} else {
			collaborators[name] = invoker != nil
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"database":      s.db != nil,
		"collaborators": collaborators,
	})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitialDescription string `json:"initial_description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitialDescription == "" {
		writeDetail(w, http.StatusBadRequest, "initial_description is required")
		return
	}

	result, err := s.lifecycle.CreateProject(r.Context(), req.InitialDescription)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.debug.Log("created project %s (%s)", result.ProjectID, result.ProjectName)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleContinueProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" {
		writeDetail(w, http.StatusBadRequest, "project_id is required")
		return
	}

	result, err := s.lifecycle.Advance(r.Context(), req.ProjectID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFinalizeProject(w http.ResponseWriter, r *http.Request) {
	req := struct {
		ProjectID    string `json:"project_id"`
		CreateRepo   bool   `json:"create_github_repo"`
		CreateIssues bool   `json:"create_issues"`
	}{CreateRepo: true, CreateIssues: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" {
		writeDetail(w, http.StatusBadRequest, "project_id is required")
		return
	}

	result, err := s.finalizer.Run(r.Context(), req.ProjectID, saga.Options{
		CreateRepo:   req.CreateRepo,
		CreateIssues: req.CreateIssues,
	})
	if err != nil {
		s.debug.Log("finalize %s failed: %v", req.ProjectID, err)
		s.writeError(w, err)
		return
	}
	s.debug.Log("finalized project %s: %d epics, repo=%q", req.ProjectID, result.EpicCount, result.RepoURL)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"project_id": result.ProjectID,
		"repo_url":   result.RepoURL,
		"epic_count": result.EpicCount,
		"message":    result.Message,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	var status *models.ProjectStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.ProjectStatus(raw)
		if !st.Valid() {
			writeDetail(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		status = &st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	projects, err := s.db.ListProjects(status, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.db.GetProject(chi.URLParam(r, "project_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planning.CallTool(r.Context(), "get_project_plan", map[string]any{
		"project_id": chi.URLParam(r, "project_id"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleNextTasks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tasks, err := s.planning.CallTool(r.Context(), "get_next_tasks", map[string]any{
		"project_id": chi.URLParam(r, "project_id"),
		"limit":      limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleExecuteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID  string `json:"task_id"`
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID == "" {
		writeDetail(w, http.StatusBadRequest, "task_id is required")
		return
	}

	tc, err := s.db.GetTaskContext(req.TaskID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	taskData := map[string]any{
		"id":                tc.ID,
		"title":             tc.Title,
		"description":       tc.Description,
		"task_type":         string(tc.Type),
		"technical_details": tc.TechnicalDetails,
		"story_title":       tc.StoryTitle,
		"epic_title":        tc.EpicTitle,
	}
	if tc.EstimatedHours != nil {
		taskData["estimated_hours"] = *tc.EstimatedHours
	}

	result, err := s.sandbox.CallTool(r.Context(), "execute_task", map[string]any{
		"project_id": tc.ProjectID,
		"task":       taskData,
		"context":    req.Context,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if _, err := s.db.UpdateTaskStatus(req.TaskID, models.TaskStatusInProgress); err != nil {
		s.writeError(w, err)
		return
	}

	metadata, _ := result.(map[string]any)
	if _, err := s.db.AppendExecutionLog(req.TaskID, "sandbox", "started", metadata); err != nil {
		s.writeError(w, err)
		return
	}
	s.debug.Log("dispatched task %s for execution", req.TaskID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"task_id":          req.TaskID,
		"execution_result": result,
	})
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case store.IsNotFound(err):
		writeDetail(w, http.StatusNotFound, err.Error())
	case store.IsValidation(err):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case gateway.IsTimeout(err):
		writeDetail(w, http.StatusGatewayTimeout, err.Error())
	case gateway.IsCollaboratorError(err):
		writeDetail(w, http.StatusBadGateway, err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
