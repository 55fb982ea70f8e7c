package models

// Epic is a high-level feature area within a project.
type Epic struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Title is the epic title.
	Title string `json:"title"`
	// Description is an optional longer description.
	Description string `json:"description,omitempty"`
	// Priority orders epics for task selection; higher is more urgent.
	Priority int `json:"priority"`
	// OrderIndex is a project-scoped, monotonically increasing sequence
	// number that defines default display order independent of priority.
	OrderIndex int `json:"order_index"`
	// Status tracks overall epic progress.
	Status string `json:"status"`
}

// Story is a user-facing slice of an epic.
type Story struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// EpicID is the owning epic.
	EpicID string `json:"epic_id"`
	// Title is the story title.
	Title string `json:"title"`
	// Description is an optional longer description.
	Description string `json:"description,omitempty"`
	// UserStory is the optional "As a... I want... So that..." narrative.
	UserStory string `json:"user_story,omitempty"`
	// AcceptanceCriteria is an ordered list of acceptance criteria.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	// StoryPoints is the optional estimate in points.
	StoryPoints *int `json:"story_points,omitempty"`
	// Priority orders stories within an epic; higher is more urgent.
	Priority int `json:"priority"`
	// OrderIndex is an epic-scoped sequence number, same rule as Epic.OrderIndex.
	OrderIndex int `json:"order_index"`
	// Status tracks overall story progress.
	Status string `json:"status"`
}
