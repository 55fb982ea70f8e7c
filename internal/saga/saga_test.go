package saga

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/planforge/internal/analyst"
	"github.com/ShayCichocki/planforge/internal/gateway"
	"github.com/ShayCichocki/planforge/internal/lifecycle"
	"github.com/ShayCichocki/planforge/internal/planning"
	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

type fakeAnalyst struct {
	plan *analyst.GeneratedPlan
}

func (f *fakeAnalyst) Analyze(_ context.Context, _ string) (*analyst.Analysis, error) {
	return &analyst.Analysis{ProjectName: "Todo App"}, nil
}

func (f *fakeAnalyst) Refine(_ context.Context, _ []models.Message, _ string) (*analyst.Refinement, error) {
	return &analyst.Refinement{}, nil
}

func (f *fakeAnalyst) GeneratePlan(_ context.Context, _ []models.Message) (*analyst.GeneratedPlan, error) {
	return f.plan, nil
}

// stubInvoker records every call and answers through a handler.
type stubInvoker struct {
	calls   []string
	handler func(name string, args map[string]any) (any, error)
}

func (s *stubInvoker) CallTool(_ context.Context, name string, args map[string]any) (any, error) {
	s.calls = append(s.calls, name)
	if s.handler == nil {
		return map[string]any{}, nil
	}
	return s.handler(name, args)
}

func intPtr(n int) *int { return &n }

func todoPlan() *analyst.GeneratedPlan {
	hours := 2.0
	plan := &analyst.GeneratedPlan{
		Epics: []analyst.EpicPlan{
			{
				Title:    "Core Features",
				Priority: intPtr(8),
				Stories: []analyst.StoryPlan{
					{
						Title:     "Manage todos",
						UserStory: "As a user I want to manage todos",
						Tasks: []analyst.TaskPlan{
							{Title: "Set up database", TaskType: "setup", EstimatedHours: &hours},
							{Title: "Build todo endpoint", TaskType: "feature"},
						},
					},
				},
			},
		},
	}
	plan.Project.Name = "Todo App"
	plan.Project.TechStack = map[string]any{"type": "web_app"}
	return plan
}

// hostingStub answers the repository tools with fixed data and numbers
// issues from 101 in task order.
func hostingStub() *stubInvoker {
	return &stubInvoker{
		handler: func(name string, args map[string]any) (any, error) {
			switch name {
			case "create_repository":
				return map[string]any{"repo_url": "https://github.example/org/todo-app"}, nil
			case "create_issues_from_tasks":
				tasks, _ := args["tasks"].([]models.TaskContext)
				issues := make([]any, 0, len(tasks))
				for i, task := range tasks {
					issues = append(issues, map[string]any{
						"task_id":      task.ID,
						"issue_number": 101 + i,
						"issue_url":    fmt.Sprintf("https://github.example/org/todo-app/issues/%d", 101+i),
					})
				}
				return map[string]any{"issues": issues}, nil
			}
			return map[string]any{}, nil
		},
	}
}

func setupFinalizer(t *testing.T, fa *fakeAnalyst, hosting, sandbox *stubInvoker) (*Finalizer, *store.DB, string) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mgr := lifecycle.NewManager(db, fa)
	created, err := mgr.CreateProject(context.Background(), "I want a todo app")
	if err != nil {
		t.Fatalf("seed project failed: %v", err)
	}

	planningInvoker := gateway.NewLocal(planning.ServiceName, planning.NewRegistry(db))
	return NewFinalizer(db, fa, planningInvoker, hosting, sandbox), db, created.ProjectID
}

func TestRun_PlanOnly(t *testing.T) {
	fa := &fakeAnalyst{plan: todoPlan()}
	hosting := hostingStub()
	sandbox := &stubInvoker{}
	finalizer, db, projectID := setupFinalizer(t, fa, hosting, sandbox)

	result, err := finalizer.Run(context.Background(), projectID, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.EpicCount != 1 {
		t.Errorf("epic count = %d, want 1", result.EpicCount)
	}
	if result.RepoURL != "" {
		t.Errorf("repo url = %q, want empty", result.RepoURL)
	}

	plan, err := db.GetPlan(projectID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if len(plan.Epics) != 1 || len(plan.Epics[0].Stories) != 1 || len(plan.Epics[0].Stories[0].Tasks) != 2 {
		t.Errorf("tree shape: %d epics", len(plan.Epics))
	}
	if plan.Project.Status != models.ProjectStatusReady {
		t.Errorf("status = %s, want ready", plan.Project.Status)
	}
	if plan.Project.RepoURL != "" {
		t.Errorf("repo url = %q, want unset", plan.Project.RepoURL)
	}
	if len(hosting.calls) != 0 {
		t.Errorf("hosting called without CreateRepo: %v", hosting.calls)
	}
	if len(sandbox.calls) != 0 {
		t.Errorf("sandbox called without repo: %v", sandbox.calls)
	}
}

func TestRun_WithRepoAndIssues(t *testing.T) {
	fa := &fakeAnalyst{plan: todoPlan()}
	hosting := hostingStub()
	sandbox := &stubInvoker{}
	finalizer, db, projectID := setupFinalizer(t, fa, hosting, sandbox)

	result, err := finalizer.Run(context.Background(), projectID, Options{CreateRepo: true, CreateIssues: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RepoURL != "https://github.example/org/todo-app" {
		t.Errorf("repo url = %q", result.RepoURL)
	}

	project, err := db.GetProject(projectID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if project.RepoURL != "https://github.example/org/todo-app" {
		t.Errorf("persisted repo url = %q", project.RepoURL)
	}
	if project.Status != models.ProjectStatusReady {
		t.Errorf("status = %s, want ready", project.Status)
	}

	tasks, err := db.QueryTasksByStatus(projectID, nil)
	if err != nil {
		t.Fatalf("QueryTasksByStatus failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("task count = %d, want 2", len(tasks))
	}
	wantNumbers := map[int]bool{101: false, 102: false}
	for _, task := range tasks {
		if task.IssueNumber == nil {
			t.Errorf("task %s has no issue number", task.Title)
			continue
		}
		if _, ok := wantNumbers[*task.IssueNumber]; !ok {
			t.Errorf("unexpected issue number %d", *task.IssueNumber)
		}
		wantNumbers[*task.IssueNumber] = true
		if task.IssueURL == "" {
			t.Errorf("task %s has no issue url", task.Title)
		}
	}
	for number, seen := range wantNumbers {
		if !seen {
			t.Errorf("issue %d not assigned", number)
		}
	}

	wantHosting := []string{"create_repository", "create_project_structure", "create_labels", "create_issues_from_tasks"}
	if len(hosting.calls) != len(wantHosting) {
		t.Fatalf("hosting calls = %v", hosting.calls)
	}
	for i, name := range wantHosting {
		if hosting.calls[i] != name {
			t.Errorf("hosting call %d = %s, want %s", i, hosting.calls[i], name)
		}
	}
	if len(sandbox.calls) != 1 || sandbox.calls[0] != "init_project" {
		t.Errorf("sandbox calls = %v", sandbox.calls)
	}
}

// An epic with no priority field gets the default, while an explicit zero
// is kept as zero.
func TestRun_EpicPriorityDefaults(t *testing.T) {
	plan := &analyst.GeneratedPlan{
		Epics: []analyst.EpicPlan{
			{Title: "Unprioritized"},
			{Title: "Backlog", Priority: intPtr(0)},
		},
	}
	plan.Project.Name = "Todo App"
	fa := &fakeAnalyst{plan: plan}
	finalizer, db, projectID := setupFinalizer(t, fa, hostingStub(), &stubInvoker{})

	if _, err := finalizer.Run(context.Background(), projectID, Options{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored, err := db.GetPlan(projectID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if len(stored.Epics) != 2 {
		t.Fatalf("epic count = %d, want 2", len(stored.Epics))
	}
	byTitle := map[string]int{}
	for _, epic := range stored.Epics {
		byTitle[epic.Title] = epic.Priority
	}
	if byTitle["Unprioritized"] != 5 {
		t.Errorf("default priority = %d, want 5", byTitle["Unprioritized"])
	}
	if byTitle["Backlog"] != 0 {
		t.Errorf("explicit zero priority = %d, want 0", byTitle["Backlog"])
	}
}

// Re-running finalization is not idempotent: the plan tree is created again.
// This pins the current behavior.
func TestRun_ReplayDuplicatesTree(t *testing.T) {
	fa := &fakeAnalyst{plan: todoPlan()}
	finalizer, db, projectID := setupFinalizer(t, fa, hostingStub(), &stubInvoker{})

	if _, err := finalizer.Run(context.Background(), projectID, Options{}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if _, err := finalizer.Run(context.Background(), projectID, Options{}); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	plan, err := db.GetPlan(projectID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if len(plan.Epics) != 2 {
		t.Errorf("epic count after replay = %d, want 2 (duplicated tree)", len(plan.Epics))
	}
}

func TestRun_UnknownProject(t *testing.T) {
	fa := &fakeAnalyst{plan: todoPlan()}
	finalizer, _, _ := setupFinalizer(t, fa, hostingStub(), &stubInvoker{})

	_, err := finalizer.Run(context.Background(), "nonexistent", Options{})
	if !store.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestRun_HostingFailureAborts(t *testing.T) {
	fa := &fakeAnalyst{plan: todoPlan()}
	hosting := &stubInvoker{
		handler: func(name string, _ map[string]any) (any, error) {
			return nil, errors.New("hosting unavailable")
		},
	}
	finalizer, db, projectID := setupFinalizer(t, fa, hosting, &stubInvoker{})

	_, err := finalizer.Run(context.Background(), projectID, Options{CreateRepo: true})
	if err == nil {
		t.Fatal("expected error from hosting failure")
	}

	// The plan was already expanded, but the status flip never ran.
	project, _ := db.GetProject(projectID)
	if project.Status == models.ProjectStatusReady {
		t.Error("status reached ready despite aborted run")
	}
}
