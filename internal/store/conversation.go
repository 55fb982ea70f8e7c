package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/planforge/pkg/models"
)

// SaveConversation records a conversational turn. If a conversation already
// exists for the project and phase, its message log is replaced wholesale;
// otherwise a new conversation is created.
func (db *DB) SaveConversation(projectID, phase string, messages []models.Message) (*models.Conversation, error) {
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	now := time.Now().UTC()
	c := &models.Conversation{
		ProjectID: projectID,
		Phase:     phase,
		Messages:  messages,
		UpdatedAt: now,
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		if err := parentExists(tx, "projects", "project", projectID); err != nil {
			return err
		}

		var id, createdAt string
		row := tx.QueryRow("SELECT id, created_at FROM conversations WHERE project_id = ? AND phase = ?",
			projectID, phase)
		err := row.Scan(&id, &createdAt)
		if err == sql.ErrNoRows {
			c.ID = uuid.NewString()
			c.CreatedAt = now
			_, err := tx.Exec(`
				INSERT INTO conversations (id, project_id, phase, messages, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, c.ID, projectID, phase, string(raw), formatTime(now), formatTime(now))
			if err != nil {
				return fmt.Errorf("create conversation: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("find conversation: %w", err)
		}

		c.ID = id
		c.CreatedAt, _ = parseTime(createdAt)
		_, err = tx.Exec("UPDATE conversations SET messages = ?, updated_at = ? WHERE id = ?",
			string(raw), formatTime(now), id)
		if err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetLatestConversation retrieves the most recently started conversation for
// a project.
func (db *DB) GetLatestConversation(projectID string) (*models.Conversation, error) {
	row := db.QueryRow(`
		SELECT id, project_id, phase, messages, created_at, updated_at
		FROM conversations WHERE project_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, projectID)

	var c models.Conversation
	var raw, createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.ProjectID, &c.Phase, &raw, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "conversation", ID: projectID}
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &c.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	c.CreatedAt, _ = parseTime(createdAt)
	c.UpdatedAt, _ = parseTime(updatedAt)
	return &c, nil
}

// AppendExecutionLog writes one audit record for a task execution attempt.
// Records are append-only.
func (db *DB) AppendExecutionLog(taskID, executionType, status string, metadata map[string]any) (*models.ExecutionLog, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	now := time.Now().UTC()
	log := &models.ExecutionLog{
		ID:            uuid.NewString(),
		TaskID:        taskID,
		ExecutionType: executionType,
		Status:        status,
		Metadata:      metadata,
		CreatedAt:     now,
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		if err := parentExists(tx, "tasks", "task", taskID); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO execution_logs (id, task_id, execution_type, status, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, log.ID, taskID, executionType, status, string(raw), formatTime(now))
		if err != nil {
			return fmt.Errorf("append execution log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// ListExecutionLogs returns a task's execution records, oldest first.
func (db *DB) ListExecutionLogs(taskID string) ([]models.ExecutionLog, error) {
	rows, err := db.Query(`
		SELECT id, task_id, execution_type, status, metadata, created_at
		FROM execution_logs WHERE task_id = ? ORDER BY created_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list execution logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ExecutionLog
	for rows.Next() {
		var l models.ExecutionLog
		var metadata sql.NullString
		var createdAt string
		if err := rows.Scan(&l.ID, &l.TaskID, &l.ExecutionType, &l.Status, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &l.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		l.CreatedAt, _ = parseTime(createdAt)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
