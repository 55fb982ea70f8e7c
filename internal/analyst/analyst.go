// Package analyst turns free-form project descriptions and planning
// conversations into structured analyses and work breakdowns.
package analyst

import (
	"context"

	"github.com/ShayCichocki/planforge/pkg/models"
)

// Analysis is the structured read of an initial project description.
type Analysis struct {
	ProjectName            string         `json:"project_name"`
	ProjectType            string         `json:"project_type"`
	TechStack              map[string]any `json:"tech_stack"`
	Complexity             string         `json:"complexity"`
	ClarificationQuestions []string       `json:"clarification_questions"`
	InitialEpics           []string       `json:"initial_epics"`
	// RawResponse carries the unparsed reply when structure extraction fails.
	RawResponse string `json:"raw_response,omitempty"`
}

// Refinement is one turn of plan refinement: the assistant's reply plus
// whether it signalled the plan is ready to finalize. PlanData carries the
// structured block embedded in the reply, nil when the reply had none.
type Refinement struct {
	Response        string
	ReadyToFinalize bool
	PlanData        map[string]any
}

// TaskPlan is one generated task.
type TaskPlan struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	TaskType         string         `json:"task_type"`
	EstimatedHours   *float64       `json:"estimated_hours"`
	TechnicalDetails map[string]any `json:"technical_details"`
}

// StoryPlan is one generated story with its tasks.
type StoryPlan struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	UserStory          string     `json:"user_story"`
	AcceptanceCriteria []string   `json:"acceptance_criteria"`
	StoryPoints        *int       `json:"story_points"`
	Priority           int        `json:"priority"`
	Tasks              []TaskPlan `json:"tasks"`
}

// EpicPlan is one generated epic with its stories. Priority is a pointer so
// an analyst-emitted zero stays distinguishable from an absent field.
type EpicPlan struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    *int        `json:"priority"`
	Stories     []StoryPlan `json:"stories"`
}

// GeneratedPlan is a complete work breakdown produced from a planning
// conversation. Epics appear in the order the analyst emitted them.
type GeneratedPlan struct {
	Project struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		TechStack   map[string]any `json:"tech_stack"`
	} `json:"project"`
	Epics []EpicPlan `json:"epics"`
}

// Analyst produces analyses, refinements, and full plans from project
// conversations.
type Analyst interface {
	// Analyze extracts structured information from an initial description.
	Analyze(ctx context.Context, description string) (*Analysis, error)
	// Refine continues a planning conversation with a new user message.
	Refine(ctx context.Context, history []models.Message, userMessage string) (*Refinement, error)
	// GeneratePlan produces the final work breakdown from the conversation.
	GeneratePlan(ctx context.Context, history []models.Message) (*GeneratedPlan, error)
}
