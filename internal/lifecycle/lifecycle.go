// Package lifecycle drives the conversational phase of a project: creation
// from an initial description, then iterative refinement until the analyst
// signals the plan is ready to finalize.
package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/planforge/internal/analyst"
	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

// PhaseCreation names the conversation attached to a project at creation.
const PhaseCreation = "creation"

// Manager coordinates the analyst and the plan store for the planning phase.
type Manager struct {
	db      *store.DB
	analyst analyst.Analyst
}

// NewManager builds a lifecycle manager.
func NewManager(db *store.DB, a analyst.Analyst) *Manager {
	return &Manager{db: db, analyst: a}
}

// CreateResult is the outcome of starting a project conversation.
type CreateResult struct {
	ProjectID   string            `json:"project_id"`
	ProjectName string            `json:"project_name"`
	Status      string            `json:"status"`
	Response    string            `json:"response"`
	Analysis    *analyst.Analysis `json:"analysis"`
}

// AdvanceResult is the outcome of one refinement turn. PlanData is the
// structured block the analyst embedded in its reply, null when there was
// none.
type AdvanceResult struct {
	ProjectID       string         `json:"project_id"`
	Response        string         `json:"response"`
	ReadyToFinalize bool           `json:"ready_to_finalize"`
	PlanData        map[string]any `json:"plan_data"`
}

// CreateProject analyzes a description, records the project with the
// analyst's suggested name and tech stack, and seeds the creation
// conversation. The reported status is "refining": the project row stays in
// planning until refinement actually moves it forward.
func (m *Manager) CreateProject(ctx context.Context, description string) (*CreateResult, error) {
	analysis, err := m.analyst.Analyze(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("analyze project description: %w", err)
	}

	name := analysis.ProjectName
	if name == "" {
		name = "Untitled Project"
	}

	project, err := m.db.CreateProject(name, description, analysis.TechStack)
	if err != nil {
		return nil, err
	}

	response := formatAnalysis(analysis)
	messages := []models.Message{
		{Role: "user", Content: description},
		{Role: "assistant", Content: response},
	}
	if _, err := m.db.SaveConversation(project.ID, PhaseCreation, messages); err != nil {
		return nil, err
	}

	return &CreateResult{
		ProjectID:   project.ID,
		ProjectName: name,
		Status:      string(models.ProjectStatusRefining),
		Response:    response,
		Analysis:    analysis,
	}, nil
}

// Advance appends one user turn to the latest conversation, gets the
// analyst's reply, and flips the project to ready when the reply signals the
// plan is complete. Projects already at or past ready are left alone.
func (m *Manager) Advance(ctx context.Context, projectID, message string) (*AdvanceResult, error) {
	conv, err := m.db.GetLatestConversation(projectID)
	if err != nil {
		return nil, err
	}

	refinement, err := m.analyst.Refine(ctx, conv.Messages, message)
	if err != nil {
		return nil, fmt.Errorf("refine project plan: %w", err)
	}

	messages := append(conv.Messages,
		models.Message{Role: "user", Content: message},
		models.Message{Role: "assistant", Content: refinement.Response},
	)
	if _, err := m.db.SaveConversation(projectID, conv.Phase, messages); err != nil {
		return nil, err
	}

	if refinement.ReadyToFinalize {
		project, err := m.db.GetProject(projectID)
		if err != nil {
			return nil, err
		}
		switch project.Status {
		case models.ProjectStatusPlanning, models.ProjectStatusRefining:
			if _, err := m.db.UpdateProjectStatus(projectID, models.ProjectStatusReady, ""); err != nil {
				return nil, err
			}
		}
	}

	return &AdvanceResult{
		ProjectID:       projectID,
		Response:        refinement.Response,
		ReadyToFinalize: refinement.ReadyToFinalize,
		PlanData:        refinement.PlanData,
	}, nil
}

// formatAnalysis renders the analysis as the assistant's first reply.
func formatAnalysis(a *analyst.Analysis) string {
	var b strings.Builder

	b.WriteString("Great! I've analyzed your project idea. Here's what I understand:\n\n")
	fmt.Fprintf(&b, "**Project Name:** %s\n", a.ProjectName)
	fmt.Fprintf(&b, "**Type:** %s\n", a.ProjectType)
	fmt.Fprintf(&b, "**Complexity:** %s\n\n", a.Complexity)

	if len(a.TechStack) > 0 {
		keys := make([]string, 0, len(a.TechStack))
		for k := range a.TechStack {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]string, 0, len(keys))
		for _, k := range keys {
			values = append(values, fmt.Sprint(a.TechStack[k]))
		}
		fmt.Fprintf(&b, "**Suggested Tech Stack:** %s\n\n", strings.Join(values, ", "))
	}

	if len(a.InitialEpics) > 0 {
		b.WriteString("**Initial Features:**\n")
		for _, epic := range a.InitialEpics {
			fmt.Fprintf(&b, "- %s\n", epic)
		}
		b.WriteString("\n")
	}

	if len(a.ClarificationQuestions) > 0 {
		b.WriteString("**I have a few questions to refine the plan:**\n")
		for i, question := range a.ClarificationQuestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, question)
		}
	}

	return b.String()
}
