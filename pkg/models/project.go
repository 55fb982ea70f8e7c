// Package models defines the shared domain types for planforge: projects,
// their hierarchical work breakdown (epics, stories, tasks), conversations,
// and execution logs.
package models

import "time"

// ProjectStatus represents the lifecycle phase of a project.
type ProjectStatus string

const (
	// ProjectStatusPlanning indicates the initial analysis conversation is underway.
	ProjectStatusPlanning ProjectStatus = "planning"
	// ProjectStatusRefining indicates the plan is being refined through conversation.
	ProjectStatusRefining ProjectStatus = "refining"
	// ProjectStatusReady indicates the plan is finalized and work can begin.
	ProjectStatusReady ProjectStatus = "ready"
	// ProjectStatusInProgress indicates at least one task has started.
	ProjectStatusInProgress ProjectStatus = "in_progress"
	// ProjectStatusCompleted indicates all work is done.
	ProjectStatusCompleted ProjectStatus = "completed"
	// ProjectStatusArchived is terminal and reachable from any other status.
	ProjectStatusArchived ProjectStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusRefining, ProjectStatusReady,
		ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusArchived:
		return true
	default:
		return false
	}
}

// rank orders the forward-only lifecycle phases. Archived sits outside the
// ordering because it is reachable from anywhere.
func (s ProjectStatus) rank() int {
	switch s {
	case ProjectStatusPlanning:
		return 0
	case ProjectStatusRefining:
		return 1
	case ProjectStatusReady:
		return 2
	case ProjectStatusInProgress:
		return 3
	case ProjectStatusCompleted:
		return 4
	default:
		return -1
	}
}

// CanTransitionTo reports whether a project may move from s to next.
// Phases only move forward; archiving is allowed from any state, and
// re-asserting the current status is a no-op that is always permitted.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	if !next.Valid() {
		return false
	}
	if next == ProjectStatusArchived {
		return true
	}
	if s == ProjectStatusArchived {
		return false
	}
	return next.rank() >= s.rank()
}

// Project is the root of a work breakdown. It owns zero or more epics.
// Projects are never deleted, only archived.
type Project struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// Name is the human-readable project name.
	Name string `json:"name"`
	// Description is the free-form description the project was created from.
	Description string `json:"description"`
	// Status is the current lifecycle phase.
	Status ProjectStatus `json:"status"`
	// TechStack is an opaque structured payload produced by the analyst.
	TechStack map[string]any `json:"tech_stack,omitempty"`
	// RepoURL is the provisioned repository URL, if any.
	RepoURL string `json:"repo_url,omitempty"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the project was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}
