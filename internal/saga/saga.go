// Package saga runs project finalization: plan generation and expansion,
// optional repository and issue creation, sandbox initialization, and the
// final status flip to ready. Steps run in order through collaborator
// invokers; the first failure aborts the run. Steps already completed are
// not rolled back, and re-running finalization creates a second copy of the
// plan tree.
package saga

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/planforge/internal/analyst"
	"github.com/ShayCichocki/planforge/internal/gateway"
	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

// Options selects the optional finalization steps.
type Options struct {
	// CreateRepo creates a hosting repository with structure and labels.
	CreateRepo bool
	// CreateIssues files one tracker issue per task. Requires CreateRepo.
	CreateIssues bool
}

// Result summarizes a completed finalization run.
type Result struct {
	ProjectID string `json:"project_id"`
	RepoURL   string `json:"repo_url,omitempty"`
	EpicCount int    `json:"epic_count"`
	Message   string `json:"message"`
}

// Finalizer executes the finalization steps against the plan store and the
// planning, hosting, and sandbox collaborators.
type Finalizer struct {
	db       *store.DB
	analyst  analyst.Analyst
	planning gateway.Invoker
	hosting  gateway.Invoker
	sandbox  gateway.Invoker
}

// NewFinalizer builds a finalizer over its collaborators.
func NewFinalizer(db *store.DB, a analyst.Analyst, planning, hosting, sandbox gateway.Invoker) *Finalizer {
	return &Finalizer{db: db, analyst: a, planning: planning, hosting: hosting, sandbox: sandbox}
}

// Run finalizes a project. The plan is generated from the latest
// conversation and expanded epic by epic in the order the analyst emitted.
func (f *Finalizer) Run(ctx context.Context, projectID string, opts Options) (*Result, error) {
	project, err := f.db.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	conv, err := f.db.GetLatestConversation(projectID)
	if err != nil {
		return nil, err
	}

	structure, err := f.analyst.GeneratePlan(ctx, conv.Messages)
	if err != nil {
		return nil, fmt.Errorf("generate project structure: %w", err)
	}

	epicCount, err := f.expandPlan(ctx, projectID, structure)
	if err != nil {
		return nil, err
	}

	repoURL := ""
	repoName := repoSlug(project.Name)
	if opts.CreateRepo {
		repoURL, err = f.createRepository(ctx, project, structure, repoName)
		if err != nil {
			return nil, err
		}
	}

	if opts.CreateIssues && repoURL != "" {
		if err := f.createIssues(ctx, projectID, repoName); err != nil {
			return nil, err
		}
	}

	if repoURL != "" {
		_, err := f.sandbox.CallTool(ctx, "init_project", map[string]any{
			"project_id":   projectID,
			"repo_url":     repoURL,
			"project_name": project.Name,
		})
		if err != nil {
			return nil, err
		}
	}

	if _, err := f.db.UpdateProjectStatus(projectID, models.ProjectStatusReady, ""); err != nil {
		return nil, err
	}

	return &Result{
		ProjectID: projectID,
		RepoURL:   repoURL,
		EpicCount: epicCount,
		Message:   "Project successfully finalized and resources created",
	}, nil
}

// expandPlan writes the generated tree through the planning collaborator,
// preserving array order so order indices mirror the analyst's sequence.
func (f *Finalizer) expandPlan(ctx context.Context, projectID string, structure *analyst.GeneratedPlan) (int, error) {
	epicCount := 0
	for _, epicData := range structure.Epics {
		priority := 5
		if epicData.Priority != nil {
			priority = *epicData.Priority
		}
		epicResult, err := f.planning.CallTool(ctx, "create_epic", map[string]any{
			"project_id":  projectID,
			"title":       epicData.Title,
			"description": epicData.Description,
			"priority":    priority,
		})
		if err != nil {
			return epicCount, err
		}
		epicID := getString(epicResult, "epic_id")
		epicCount++

		for _, storyData := range epicData.Stories {
			storyArgs := map[string]any{
				"epic_id":             epicID,
				"title":               storyData.Title,
				"description":         storyData.Description,
				"user_story":          storyData.UserStory,
				"acceptance_criteria": storyData.AcceptanceCriteria,
				"priority":            storyData.Priority,
			}
			if storyData.StoryPoints != nil {
				storyArgs["story_points"] = *storyData.StoryPoints
			}
			storyResult, err := f.planning.CallTool(ctx, "create_story", storyArgs)
			if err != nil {
				return epicCount, err
			}
			storyID := getString(storyResult, "story_id")

			for _, taskData := range storyData.Tasks {
				taskType := taskData.TaskType
				if taskType == "" {
					taskType = "feature"
				}
				taskArgs := map[string]any{
					"story_id":          storyID,
					"title":             taskData.Title,
					"description":       taskData.Description,
					"task_type":         taskType,
					"technical_details": taskData.TechnicalDetails,
				}
				if taskData.EstimatedHours != nil {
					taskArgs["estimated_hours"] = *taskData.EstimatedHours
				}
				if _, err := f.planning.CallTool(ctx, "create_task", taskArgs); err != nil {
					return epicCount, err
				}
			}
		}
	}
	return epicCount, nil
}

// createRepository provisions the hosting repo with structure and labels and
// persists the URL on the project.
func (f *Finalizer) createRepository(ctx context.Context, project *models.Project, structure *analyst.GeneratedPlan, repoName string) (string, error) {
	repoResult, err := f.hosting.CallTool(ctx, "create_repository", map[string]any{
		"name":        repoName,
		"description": project.Description,
		"private":     true,
		"auto_init":   true,
	})
	if err != nil {
		return "", err
	}
	repoURL := getString(repoResult, "repo_url")

	projectType := "generic"
	if t, ok := structure.Project.TechStack["type"].(string); ok && t != "" {
		projectType = t
	}
	if _, err := f.hosting.CallTool(ctx, "create_project_structure", map[string]any{
		"repo_name":    repoName,
		"project_type": projectType,
	}); err != nil {
		return "", err
	}

	if _, err := f.hosting.CallTool(ctx, "create_labels", map[string]any{
		"repo_name": repoName,
		"label_set": "extended",
	}); err != nil {
		return "", err
	}

	if err := f.db.SetProjectRepo(project.ID, repoURL); err != nil {
		return "", err
	}
	return repoURL, nil
}

// createIssues files tracker issues for every task and writes the issue
// references back onto the tasks.
func (f *Finalizer) createIssues(ctx context.Context, projectID, repoName string) error {
	tasksResult, err := f.planning.CallTool(ctx, "query_tasks_by_status", map[string]any{
		"project_id": projectID,
	})
	if err != nil {
		return err
	}
	tasks := asMap(tasksResult)["tasks"]
	if tasks == nil {
		return nil
	}

	issuesResult, err := f.hosting.CallTool(ctx, "create_issues_from_tasks", map[string]any{
		"repo_name": repoName,
		"tasks":     tasks,
	})
	if err != nil {
		return err
	}

	for _, raw := range asSlice(asMap(issuesResult)["issues"]) {
		issue := asMap(raw)
		taskID := getString(issue, "task_id")
		if taskID == "" {
			continue
		}
		if err := f.db.SetTaskIssue(taskID, getInt(issue, "issue_number"), getString(issue, "issue_url")); err != nil {
			return err
		}
	}
	return nil
}

// repoSlug turns a project name into a repository name.
func repoSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func getString(v any, key string) string {
	if s, ok := asMap(v)[key].(string); ok {
		return s
	}
	return ""
}

func getInt(v any, key string) int {
	switch n := asMap(v)[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
