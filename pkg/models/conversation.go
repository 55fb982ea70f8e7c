package models

import "time"

// Message is a single turn in a planning conversation.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// Conversation is the append-only message log for one project phase.
// The message sequence is rewritten wholesale on each turn.
type Conversation struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Phase names the conversation phase (e.g. "creation").
	Phase string `json:"phase"`
	// Messages is the ordered message log.
	Messages []Message `json:"messages"`
	// CreatedAt is when the conversation started.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the last turn was recorded.
	UpdatedAt time.Time `json:"updated_at"`
}

// ExecutionLog is one append-only audit record of a task execution attempt.
// Records are never mutated or deleted.
type ExecutionLog struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// TaskID is the task that was executed.
	TaskID string `json:"task_id"`
	// ExecutionType names the executor (e.g. "sandbox").
	ExecutionType string `json:"execution_type"`
	// Status is the reported outcome (e.g. "started", "failed").
	Status string `json:"status"`
	// Metadata is an opaque payload returned by the executor.
	Metadata map[string]any `json:"metadata,omitempty"`
	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}
