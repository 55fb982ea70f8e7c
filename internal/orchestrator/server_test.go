package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/planforge/internal/analyst"
	"github.com/ShayCichocki/planforge/internal/gateway"
	"github.com/ShayCichocki/planforge/internal/lifecycle"
	"github.com/ShayCichocki/planforge/internal/planning"
	"github.com/ShayCichocki/planforge/internal/saga"
	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

type fakeAnalyst struct {
	refinement *analyst.Refinement
	plan       *analyst.GeneratedPlan
}

func (f *fakeAnalyst) Analyze(_ context.Context, _ string) (*analyst.Analysis, error) {
	return &analyst.Analysis{
		ProjectName: "Todo App",
		ProjectType: "web_app",
		Complexity:  "simple",
		TechStack:   map[string]any{"language": "go"},
	}, nil
}

func (f *fakeAnalyst) Refine(_ context.Context, _ []models.Message, _ string) (*analyst.Refinement, error) {
	if f.refinement != nil {
		return f.refinement, nil
	}
	return &analyst.Refinement{Response: "Tell me more."}, nil
}

func (f *fakeAnalyst) GeneratePlan(_ context.Context, _ []models.Message) (*analyst.GeneratedPlan, error) {
	return f.plan, nil
}

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

type testEnv struct {
	server  *httptest.Server
	db      *store.DB
	hosting *stubInvoker
	sandbox *stubInvoker
}

func setupServer(t *testing.T, fa *fakeAnalyst) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	planningInvoker := gateway.NewLocal(planning.ServiceName, planning.NewRegistry(db))
	hosting := &stubInvoker{}
	sandbox := &stubInvoker{
		handler: func(name string, _ map[string]any) (any, error) {
			return map[string]any{"session": "sandbox-1"}, nil
		},
	}

	srv := NewServer(Deps{
		DB:        db,
		Lifecycle: lifecycle.NewManager(db, fa),
		Finalizer: saga.NewFinalizer(db, fa, planningInvoker, hosting, sandbox),
		Planning:  planningInvoker,
		Hosting:   hosting,
		Sandbox:   sandbox,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, db: db, hosting: hosting, sandbox: sandbox}
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

func intPtr(n int) *int { return &n }

func simplePlan() *analyst.GeneratedPlan {
	plan := &analyst.GeneratedPlan{
		Epics: []analyst.EpicPlan{
			{
				Title:    "Core",
				Priority: intPtr(5),
				Stories: []analyst.StoryPlan{
					{
						Title: "Manage todos",
						Tasks: []analyst.TaskPlan{
							{Title: "Set up database", TaskType: "setup"},
							{Title: "Build endpoint", TaskType: "feature"},
						},
					},
				},
			},
		},
	}
	plan.Project.Name = "Todo App"
	return plan
}

func TestRootAndHealth(t *testing.T) {
	env := setupServer(t, &fakeAnalyst{})

	resp, root := getJSON(t, env.server.URL+"/")
	if resp.StatusCode != http.StatusOK || root["status"] != "running" {
		t.Errorf("root = %d %v", resp.StatusCode, root)
	}

	resp, health := getJSON(t, env.server.URL+"/health")
	if resp.StatusCode != http.StatusOK || health["status"] != "healthy" {
		t.Errorf("health = %d %v", resp.StatusCode, health)
	}
}

func TestCreateAndContinueProject(t *testing.T) {
	env := setupServer(t, &fakeAnalyst{
		refinement: &analyst.Refinement{Response: "Plan complete.", ReadyToFinalize: true},
	})

	resp, created := postJSON(t, env.server.URL+"/projects/create", map[string]any{
		"initial_description": "I want a todo app",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d: %v", resp.StatusCode, created)
	}
	projectID, _ := created["project_id"].(string)
	if projectID == "" {
		t.Fatalf("no project_id in %v", created)
	}
	if created["project_name"] != "Todo App" {
		t.Errorf("project_name = %v", created["project_name"])
	}

	resp, continued := postJSON(t, env.server.URL+"/projects/continue", map[string]any{
		"project_id": projectID,
		"message":    "That covers everything",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("continue status = %d: %v", resp.StatusCode, continued)
	}
	if continued["ready_to_finalize"] != true {
		t.Errorf("ready_to_finalize = %v", continued["ready_to_finalize"])
	}

	resp, project := getJSON(t, env.server.URL+"/projects/"+projectID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get project status = %d", resp.StatusCode)
	}
	if project["status"] != "ready" {
		t.Errorf("project status = %v, want ready", project["status"])
	}
}

func TestFinalizeAndPlanEndpoints(t *testing.T) {
	env := setupServer(t, &fakeAnalyst{plan: simplePlan()})

	_, created := postJSON(t, env.server.URL+"/projects/create", map[string]any{
		"initial_description": "I want a todo app",
	})
	projectID := created["project_id"].(string)

	resp, finalized := postJSON(t, env.server.URL+"/projects/finalize", map[string]any{
		"project_id":         projectID,
		"create_github_repo": false,
		"create_issues":      false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize status = %d: %v", resp.StatusCode, finalized)
	}
	if finalized["epic_count"] != float64(1) {
		t.Errorf("epic_count = %v", finalized["epic_count"])
	}

	resp, plan := getJSON(t, env.server.URL+"/projects/"+projectID+"/plan")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan status = %d", resp.StatusCode)
	}
	epics, _ := plan["epics"].([]any)
	if len(epics) != 1 {
		t.Errorf("plan epics = %v", plan["epics"])
	}

	resp, next := getJSON(t, env.server.URL+"/projects/"+projectID+"/next-tasks?limit=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("next-tasks status = %d", resp.StatusCode)
	}
	tasks, _ := next["next_tasks"].([]any)
	if len(tasks) != 1 {
		t.Errorf("next_tasks = %v", next["next_tasks"])
	}
}

func TestFinalize_RepoFlagDisablesHosting(t *testing.T) {
	env := setupServer(t, &fakeAnalyst{plan: simplePlan()})

	_, created := postJSON(t, env.server.URL+"/projects/create", map[string]any{
		"initial_description": "I want a todo app",
	})
	projectID := created["project_id"].(string)

	resp, finalized := postJSON(t, env.server.URL+"/projects/finalize", map[string]any{
		"project_id":         projectID,
		"create_github_repo": false,
		"create_issues":      false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize status = %d: %v", resp.StatusCode, finalized)
	}

	if len(env.hosting.calls) != 0 {
		t.Errorf("hosting called with repo creation disabled: %v", env.hosting.calls)
	}
	if len(env.sandbox.calls) != 0 {
		t.Errorf("sandbox called with repo creation disabled: %v", env.sandbox.calls)
	}
	if finalized["repo_url"] != "" && finalized["repo_url"] != nil {
		t.Errorf("repo_url = %v, want empty", finalized["repo_url"])
	}
}

func TestExecuteTask(t *testing.T) {
	env := setupServer(t, &fakeAnalyst{plan: simplePlan()})

	_, created := postJSON(t, env.server.URL+"/projects/create", map[string]any{
		"initial_description": "I want a todo app",
	})
	projectID := created["project_id"].(string)
	postJSON(t, env.server.URL+"/projects/finalize", map[string]any{
		"project_id": projectID, "create_github_repo": false, "create_issues": false,
	})

	next, err := env.db.NextTasks(projectID, 1)
	if err != nil || len(next) == 0 {
		t.Fatalf("no tasks to execute: %v", err)
	}
	taskID := next[0].ID

	resp, executed := postJSON(t, env.server.URL+"/tasks/execute", map[string]any{
		"task_id": taskID,
		"context": "extra notes",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("execute status = %d: %v", resp.StatusCode, executed)
	}
	if executed["success"] != true {
		t.Errorf("success = %v", executed["success"])
	}

	if len(env.sandbox.calls) != 1 || env.sandbox.calls[0] != "execute_task" {
		t.Errorf("sandbox calls = %v", env.sandbox.calls)
	}

	task, err := env.db.GetTask(taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != models.TaskStatusInProgress {
		t.Errorf("task status = %s, want in_progress", task.Status)
	}

	logs, err := env.db.ListExecutionLogs(taskID)
	if err != nil {
		t.Fatalf("ListExecutionLogs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != "started" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	env := setupServer(t, &fakeAnalyst{})

	resp, body := getJSON(t, env.server.URL+"/projects/nonexistent")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body["detail"] == "" {
		t.Error("expected detail message")
	}
}

func TestListProjects(t *testing.T) {
	env := setupServer(t, &fakeAnalyst{})

	postJSON(t, env.server.URL+"/projects/create", map[string]any{
		"initial_description": "I want a todo app",
	})

	resp, body := getJSON(t, env.server.URL+"/projects?status=planning")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	projects, _ := body["projects"].([]any)
	if len(projects) != 1 {
		t.Errorf("projects = %v", body["projects"])
	}

	resp, _ = getJSON(t, env.server.URL+"/projects?status=bogus")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid filter status = %d, want 400", resp.StatusCode)
	}
}
