package lifecycle

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShayCichocki/planforge/internal/analyst"
	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

// fakeAnalyst returns canned responses and records the history it was given.
type fakeAnalyst struct {
	analysis    *analyst.Analysis
	refinement  *analyst.Refinement
	plan        *analyst.GeneratedPlan
	seenHistory []models.Message
}

func (f *fakeAnalyst) Analyze(_ context.Context, _ string) (*analyst.Analysis, error) {
	return f.analysis, nil
}

func (f *fakeAnalyst) Refine(_ context.Context, history []models.Message, _ string) (*analyst.Refinement, error) {
	f.seenHistory = history
	return f.refinement, nil
}

func (f *fakeAnalyst) GeneratePlan(_ context.Context, history []models.Message) (*analyst.GeneratedPlan, error) {
	f.seenHistory = history
	return f.plan, nil
}

func setupManager(t *testing.T, fa *fakeAnalyst) (*Manager, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewManager(db, fa), db
}

func todoAnalysis() *analyst.Analysis {
	return &analyst.Analysis{
		ProjectName:            "Todo App",
		ProjectType:            "web_app",
		TechStack:              map[string]any{"language": "go", "framework": "chi"},
		Complexity:             "simple",
		ClarificationQuestions: []string{"Single user or multi-user?"},
		InitialEpics:           []string{"Task management"},
	}
}

func TestCreateProject(t *testing.T) {
	fa := &fakeAnalyst{analysis: todoAnalysis()}
	mgr, db := setupManager(t, fa)

	result, err := mgr.CreateProject(context.Background(), "I want a todo app")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	if result.ProjectName != "Todo App" {
		t.Errorf("name = %s", result.ProjectName)
	}
	if result.Status != "refining" {
		t.Errorf("reported status = %s, want refining", result.Status)
	}
	for _, want := range []string{
		"**Project Name:** Todo App",
		"**Complexity:** simple",
		"**Suggested Tech Stack:** chi, go",
		"- Task management",
		"1. Single user or multi-user?",
	} {
		if !strings.Contains(result.Response, want) {
			t.Errorf("response missing %q", want)
		}
	}

	// Stored project keeps planning status and the analyst's tech stack.
	project, err := db.GetProject(result.ProjectID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if project.Status != models.ProjectStatusPlanning {
		t.Errorf("stored status = %s, want planning", project.Status)
	}
	if project.TechStack["language"] != "go" {
		t.Errorf("tech stack = %v", project.TechStack)
	}

	conv, err := db.GetLatestConversation(result.ProjectID)
	if err != nil {
		t.Fatalf("GetLatestConversation failed: %v", err)
	}
	if conv.Phase != PhaseCreation {
		t.Errorf("phase = %s", conv.Phase)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].Role != "user" || conv.Messages[1].Role != "assistant" {
		t.Errorf("seeded messages = %+v", conv.Messages)
	}
}

func TestCreateProject_UnnamedFallsBack(t *testing.T) {
	fa := &fakeAnalyst{analysis: &analyst.Analysis{RawResponse: "could not parse"}}
	mgr, _ := setupManager(t, fa)

	result, err := mgr.CreateProject(context.Background(), "something vague")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if result.ProjectName != "Untitled Project" {
		t.Errorf("name = %s, want Untitled Project", result.ProjectName)
	}
}

func TestAdvance_AppendsTurn(t *testing.T) {
	fa := &fakeAnalyst{
		analysis:   todoAnalysis(),
		refinement: &analyst.Refinement{Response: "Tell me about auth."},
	}
	mgr, db := setupManager(t, fa)

	created, err := mgr.CreateProject(context.Background(), "I want a todo app")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	result, err := mgr.Advance(context.Background(), created.ProjectID, "Single user is fine")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.ReadyToFinalize {
		t.Error("expected not ready")
	}
	if len(fa.seenHistory) != 2 {
		t.Errorf("analyst saw %d history messages, want 2", len(fa.seenHistory))
	}

	conv, err := db.GetLatestConversation(created.ProjectID)
	if err != nil {
		t.Fatalf("GetLatestConversation failed: %v", err)
	}
	if len(conv.Messages) != 4 {
		t.Fatalf("message count = %d, want 4", len(conv.Messages))
	}
	if conv.Messages[2].Content != "Single user is fine" {
		t.Errorf("user turn = %q", conv.Messages[2].Content)
	}
	if conv.Messages[3].Content != "Tell me about auth." {
		t.Errorf("assistant turn = %q", conv.Messages[3].Content)
	}

	// Not ready, so status must not move.
	project, _ := db.GetProject(created.ProjectID)
	if project.Status != models.ProjectStatusPlanning {
		t.Errorf("status = %s, want planning", project.Status)
	}
}

func TestAdvance_CarriesPlanData(t *testing.T) {
	planData := map[string]any{
		"ready_to_finalize": true,
		"project_structure": map[string]any{"epics": []any{}},
	}
	fa := &fakeAnalyst{
		analysis: todoAnalysis(),
		refinement: &analyst.Refinement{
			Response:        "Plan is complete.",
			ReadyToFinalize: true,
			PlanData:        planData,
		},
	}
	mgr, _ := setupManager(t, fa)

	created, err := mgr.CreateProject(context.Background(), "I want a todo app")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	result, err := mgr.Advance(context.Background(), created.ProjectID, "That covers everything")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.PlanData == nil {
		t.Fatal("plan data dropped")
	}
	if result.PlanData["ready_to_finalize"] != true {
		t.Errorf("plan data = %v", result.PlanData)
	}
	if _, ok := result.PlanData["project_structure"]; !ok {
		t.Errorf("plan data missing project_structure: %v", result.PlanData)
	}
}

func TestAdvance_ReadySignalFlipsStatus(t *testing.T) {
	fa := &fakeAnalyst{
		analysis:   todoAnalysis(),
		refinement: &analyst.Refinement{Response: "Plan is complete.", ReadyToFinalize: true},
	}
	mgr, db := setupManager(t, fa)

	created, err := mgr.CreateProject(context.Background(), "I want a todo app")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	result, err := mgr.Advance(context.Background(), created.ProjectID, "That covers everything")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !result.ReadyToFinalize {
		t.Error("expected ready signal")
	}

	project, _ := db.GetProject(created.ProjectID)
	if project.Status != models.ProjectStatusReady {
		t.Errorf("status = %s, want ready", project.Status)
	}
}

func TestAdvance_NeverRegressesStatus(t *testing.T) {
	fa := &fakeAnalyst{
		analysis:   todoAnalysis(),
		refinement: &analyst.Refinement{Response: "Plan is complete.", ReadyToFinalize: true},
	}
	mgr, db := setupManager(t, fa)

	created, err := mgr.CreateProject(context.Background(), "I want a todo app")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if _, err := db.UpdateProjectStatus(created.ProjectID, models.ProjectStatusInProgress, ""); err != nil {
		t.Fatalf("setup status failed: %v", err)
	}

	if _, err := mgr.Advance(context.Background(), created.ProjectID, "another ready signal"); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	project, _ := db.GetProject(created.ProjectID)
	if project.Status != models.ProjectStatusInProgress {
		t.Errorf("status = %s, want in_progress untouched", project.Status)
	}
}

func TestAdvance_UnknownProject(t *testing.T) {
	fa := &fakeAnalyst{refinement: &analyst.Refinement{}}
	mgr, _ := setupManager(t, fa)

	_, err := mgr.Advance(context.Background(), "nonexistent", "hello")
	if !store.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
