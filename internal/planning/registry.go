// Package planning exposes the plan store as a tool catalog: project and
// breakdown creation, plan retrieval, status updates, task queries, and
// markdown export.
package planning

import (
	"context"

	"github.com/ShayCichocki/planforge/internal/gateway"
	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

// ServiceName identifies this collaborator in health responses.
const ServiceName = "project-planning"

// NewRegistry builds the planning tool catalog over a plan store.
func NewRegistry(db *store.DB) *gateway.Registry {
	reg := gateway.NewRegistry()

	reg.Register(gateway.Tool{
		Name:        "create_project",
		Description: "Create a new project with basic information",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"name":        {Type: "string", Description: "Project name"},
				"description": {Type: "string", Description: "Project description"},
				"tech_stack":  {Type: "object", Description: "Technology stack details"},
			},
			Required: []string{"name", "description"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		p, err := db.CreateProject(stringArg(args, "name"), stringArg(args, "description"), mapArg(args, "tech_stack"))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"project_id":  p.ID,
			"name":        p.Name,
			"description": p.Description,
			"status":      string(p.Status),
			"created_at":  p.CreatedAt,
		}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "create_epic",
		Description: "Create an epic within a project",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"project_id":  {Type: "string", Description: "Project UUID"},
				"title":       {Type: "string", Description: "Epic title"},
				"description": {Type: "string", Description: "Epic description"},
				"priority":    {Type: "integer", Description: "Priority (0-10)"},
			},
			Required: []string{"project_id", "title"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		e, err := db.CreateEpic(stringArg(args, "project_id"), store.EpicInput{
			Title:       stringArg(args, "title"),
			Description: stringArg(args, "description"),
			Priority:    intArg(args, "priority"),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"epic_id":     e.ID,
			"title":       e.Title,
			"description": e.Description,
			"priority":    e.Priority,
			"order_index": e.OrderIndex,
			"status":      e.Status,
		}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "create_story",
		Description: "Create a user story within an epic",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"epic_id":             {Type: "string", Description: "Epic UUID"},
				"title":               {Type: "string", Description: "Story title"},
				"description":         {Type: "string", Description: "Story description"},
				"user_story":          {Type: "string", Description: "User story format (As a... I want... So that...)"},
				"acceptance_criteria": {Type: "array", Description: "Acceptance criteria"},
				"story_points":        {Type: "integer", Description: "Story points"},
				"priority":            {Type: "integer", Description: "Priority (0-10)"},
			},
			Required: []string{"epic_id", "title"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		s, err := db.CreateStory(stringArg(args, "epic_id"), store.StoryInput{
			Title:              stringArg(args, "title"),
			Description:        stringArg(args, "description"),
			UserStory:          stringArg(args, "user_story"),
			AcceptanceCriteria: stringsArg(args, "acceptance_criteria"),
			StoryPoints:        intPtrArg(args, "story_points"),
			Priority:           intArg(args, "priority"),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"story_id":    s.ID,
			"title":       s.Title,
			"description": s.Description,
			"order_index": s.OrderIndex,
			"status":      s.Status,
		}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "create_task",
		Description: "Create a technical task within a story",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"story_id":          {Type: "string", Description: "Story UUID"},
				"title":             {Type: "string", Description: "Task title"},
				"description":       {Type: "string", Description: "Task description"},
				"task_type":         {Type: "string", Description: "setup, feature, bug, test, documentation, refactor, or deployment"},
				"estimated_hours":   {Type: "number", Description: "Estimated hours"},
				"technical_details": {Type: "object", Description: "Technical implementation details"},
			},
			Required: []string{"story_id", "title"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		t, err := db.CreateTask(stringArg(args, "story_id"), store.TaskInput{
			Title:            stringArg(args, "title"),
			Description:      stringArg(args, "description"),
			Type:             models.TaskType(stringArg(args, "task_type")),
			EstimatedHours:   floatPtrArg(args, "estimated_hours"),
			TechnicalDetails: mapArg(args, "technical_details"),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"task_id":     t.ID,
			"title":       t.Title,
			"description": t.Description,
			"task_type":   string(t.Type),
			"order_index": t.OrderIndex,
			"status":      string(t.Status),
		}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "get_project_plan",
		Description: "Retrieve complete project plan with all epics, stories, and tasks",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"project_id": {Type: "string", Description: "Project UUID"},
			},
			Required: []string{"project_id"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return db.GetPlan(stringArg(args, "project_id"))
	})

	reg.Register(gateway.Tool{
		Name:        "update_task_status",
		Description: "Update the status of a task",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"task_id": {Type: "string", Description: "Task UUID"},
				"status":  {Type: "string", Description: "todo, in_progress, review, done, or blocked"},
			},
			Required: []string{"task_id", "status"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		t, err := db.UpdateTaskStatus(stringArg(args, "task_id"), models.TaskStatus(stringArg(args, "status")))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"task_id": t.ID,
			"title":   t.Title,
			"status":  string(t.Status),
		}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "update_project_status",
		Description: "Update project status",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"project_id": {Type: "string", Description: "Project UUID"},
				"status":     {Type: "string", Description: "planning, refining, ready, in_progress, completed, or archived"},
				"repo_url":   {Type: "string", Description: "Repository URL"},
			},
			Required: []string{"project_id", "status"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		p, err := db.UpdateProjectStatus(stringArg(args, "project_id"),
			models.ProjectStatus(stringArg(args, "status")), stringArg(args, "repo_url"))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"project_id": p.ID,
			"name":       p.Name,
			"status":     string(p.Status),
			"repo_url":   p.RepoURL,
		}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "query_tasks_by_status",
		Description: "Query tasks by their status across a project",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"project_id": {Type: "string", Description: "Project UUID"},
				"status":     {Type: "string", Description: "todo, in_progress, review, done, or blocked"},
			},
			Required: []string{"project_id"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		var status *models.TaskStatus
		if raw := stringArg(args, "status"); raw != "" {
			s := models.TaskStatus(raw)
			status = &s
		}
		tasks, err := db.QueryTasksByStatus(stringArg(args, "project_id"), status)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tasks": tasks}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "get_next_tasks",
		Description: "Get next tasks to work on (prioritized todo tasks)",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"project_id": {Type: "string", Description: "Project UUID"},
				"limit":      {Type: "integer", Description: "Number of tasks to return"},
			},
			Required: []string{"project_id"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		tasks, err := db.NextTasks(stringArg(args, "project_id"), intArg(args, "limit"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"next_tasks": tasks}, nil
	})

	reg.Register(gateway.Tool{
		Name:        "export_project_markdown",
		Description: "Export entire project plan as formatted markdown",
		InputSchema: gateway.Schema{
			Type: "object",
			Properties: map[string]gateway.Property{
				"project_id": {Type: "string", Description: "Project UUID"},
			},
			Required: []string{"project_id"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		plan, err := db.GetPlan(stringArg(args, "project_id"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"markdown": ExportMarkdown(plan)}, nil
	})

	return reg
}
