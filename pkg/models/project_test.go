package models

import "testing"

func TestProjectStatus_Valid(t *testing.T) {
	valid := []ProjectStatus{
		ProjectStatusPlanning, ProjectStatusRefining, ProjectStatusReady,
		ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusArchived,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if ProjectStatus("draft").Valid() {
		t.Error("draft should be invalid")
	}
	if ProjectStatus("").Valid() {
		t.Error("empty status should be invalid")
	}
}

func TestProjectStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from ProjectStatus
		to   ProjectStatus
		want bool
	}{
		{"planning to refining", ProjectStatusPlanning, ProjectStatusRefining, true},
		{"refining to ready", ProjectStatusRefining, ProjectStatusReady, true},
		{"ready to in_progress", ProjectStatusReady, ProjectStatusInProgress, true},
		{"in_progress to completed", ProjectStatusInProgress, ProjectStatusCompleted, true},
		{"planning to completed skips ahead", ProjectStatusPlanning, ProjectStatusCompleted, true},
		{"same status is a no-op", ProjectStatusReady, ProjectStatusReady, true},
		{"ready back to refining", ProjectStatusReady, ProjectStatusRefining, false},
		{"in_progress back to planning", ProjectStatusInProgress, ProjectStatusPlanning, false},
		{"any state to archived", ProjectStatusPlanning, ProjectStatusArchived, true},
		{"completed to archived", ProjectStatusCompleted, ProjectStatusArchived, true},
		{"archived is terminal", ProjectStatusArchived, ProjectStatusReady, false},
		{"archived to archived", ProjectStatusArchived, ProjectStatusArchived, true},
		{"unknown target rejected", ProjectStatusReady, ProjectStatus("paused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
