package models

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusTodo indicates the task has not started.
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusReview indicates the task is awaiting review.
	TaskStatusReview TaskStatus = "review"
	// TaskStatusDone indicates the task is complete.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview,
		TaskStatusDone, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// TaskType categorizes the kind of work a task represents.
type TaskType string

const (
	TaskTypeSetup         TaskType = "setup"
	TaskTypeFeature       TaskType = "feature"
	TaskTypeBug           TaskType = "bug"
	TaskTypeTest          TaskType = "test"
	TaskTypeDocumentation TaskType = "documentation"
	TaskTypeRefactor      TaskType = "refactor"
	TaskTypeDeployment    TaskType = "deployment"
)

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeSetup, TaskTypeFeature, TaskTypeBug, TaskTypeTest,
		TaskTypeDocumentation, TaskTypeRefactor, TaskTypeDeployment:
		return true
	default:
		return false
	}
}

// Task is a concrete unit of technical work within a story.
type Task struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// StoryID is the owning story.
	StoryID string `json:"story_id"`
	// Title is the task title.
	Title string `json:"title"`
	// Description is an optional longer description.
	Description string `json:"description,omitempty"`
	// Type categorizes the work.
	Type TaskType `json:"task_type"`
	// EstimatedHours is the optional effort estimate.
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	// TechnicalDetails is an opaque structured payload from the analyst.
	TechnicalDetails map[string]any `json:"technical_details,omitempty"`
	// Status is the current task state.
	Status TaskStatus `json:"status"`
	// OrderIndex is a story-scoped sequence number.
	OrderIndex int `json:"order_index"`
	// IssueNumber is the external tracker issue number, if linked.
	IssueNumber *int `json:"issue_number,omitempty"`
	// IssueURL is the external tracker issue URL, if linked.
	IssueURL string `json:"issue_url,omitempty"`
}

// TaskContext is a task joined with the titles of its parent story and epic,
// as returned by status queries and the task selector.
type TaskContext struct {
	Task
	// StoryTitle is the parent story's title.
	StoryTitle string `json:"story_title"`
	// EpicTitle is the parent epic's title.
	EpicTitle string `json:"epic_title"`
	// StoryPriority is the parent story's priority.
	StoryPriority int `json:"story_priority,omitempty"`
	// EpicPriority is the parent epic's priority.
	EpicPriority int `json:"epic_priority,omitempty"`
	// ProjectID is the project at the root of the lineage.
	ProjectID string `json:"project_id,omitempty"`
}
