package planning

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/planforge/internal/store"
	"github.com/ShayCichocki/planforge/pkg/models"
)

// ExportMarkdown renders a plan tree as a human-readable markdown document:
// project header, one section per epic, one subsection per story, and a task
// checklist with status icons.
func ExportMarkdown(plan *store.ProjectPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", plan.Project.Name)
	if plan.Project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", plan.Project.Description)
	}
	fmt.Fprintf(&b, "**Status:** %s\n\n", plan.Project.Status)
	if plan.Project.RepoURL != "" {
		fmt.Fprintf(&b, "**Repository:** %s\n\n", plan.Project.RepoURL)
	}
	b.WriteString("---\n\n")

	for _, epic := range plan.Epics {
		fmt.Fprintf(&b, "## Epic: %s\n\n", epic.Title)
		if epic.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", epic.Description)
		}
		fmt.Fprintf(&b, "**Priority:** %d | **Status:** %s\n\n", epic.Priority, epic.Status)

		for _, story := range epic.Stories {
			fmt.Fprintf(&b, "### Story: %s\n\n", story.Title)
			if story.UserStory != "" {
				fmt.Fprintf(&b, "_%s_\n\n", story.UserStory)
			}
			if story.Description != "" {
				fmt.Fprintf(&b, "%s\n\n", story.Description)
			}
			if len(story.AcceptanceCriteria) > 0 {
				b.WriteString("**Acceptance Criteria:**\n")
				for _, criterion := range story.AcceptanceCriteria {
					fmt.Fprintf(&b, "- %s\n", criterion)
				}
				b.WriteString("\n")
			}

			b.WriteString("**Tasks:**\n")
			for _, task := range story.Tasks {
				fmt.Fprintf(&b, "- %s [%s] %s", statusIcon(task.Status), task.Type, task.Title)
				if task.EstimatedHours != nil {
					fmt.Fprintf(&b, " (%gh)", *task.EstimatedHours)
				}
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func statusIcon(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusDone:
		return "✅"
	case models.TaskStatusInProgress:
		return "🔄"
	default:
		return "📋"
	}
}
