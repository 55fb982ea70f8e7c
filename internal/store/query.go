package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/planforge/pkg/models"
)

// GetTask retrieves a task by ID.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, story_id, title, description, task_type, estimated_hours,
			technical_details, status, order_index, issue_number, issue_url
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus sets a task's status. Fails with NotFoundError when the
// task id is unknown; no write is performed in that case.
func (db *DB) UpdateTaskStatus(id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid task status: %s", status)}
	}

	result, err := db.Exec("UPDATE tasks SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, &NotFoundError{Entity: "task", ID: id}
	}

	return db.GetTask(id)
}

// SetTaskIssue links a task to its external tracker issue.
func (db *DB) SetTaskIssue(id string, issueNumber int, issueURL string) error {
	result, err := db.Exec("UPDATE tasks SET issue_number = ?, issue_url = ? WHERE id = ?",
		issueNumber, issueURL, id)
	if err != nil {
		return fmt.Errorf("set task issue: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Entity: "task", ID: id}
	}
	return nil
}

// QueryTasksByStatus returns a flat list of a project's tasks joined with
// their story and epic titles, optionally filtered by status, ordered by
// (order_index, created_at).
func (db *DB) QueryTasksByStatus(projectID string, status *models.TaskStatus) ([]models.TaskContext, error) {
	if _, err := db.GetProject(projectID); err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.story_id, t.title, t.description, t.task_type, t.estimated_hours,
			t.technical_details, t.status, t.order_index, t.issue_number, t.issue_url,
			s.title, e.title
		FROM tasks t
		JOIN stories s ON t.story_id = s.id
		JOIN epics e ON s.epic_id = e.id
		WHERE e.project_id = ?
	`
	args := []any{projectID}
	if status != nil {
		query += " AND t.status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY t.order_index, t.created_at"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks by status: %w", err)
	}
	defer rows.Close()

	var tasks []models.TaskContext
	for rows.Next() {
		tc, err := scanTaskContext(rows, false)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *tc)
	}
	return tasks, rows.Err()
}

// NextTasks returns the next actionable tasks for a project: status 'todo',
// ordered by epic priority descending, then story priority descending, then
// task order index ascending, truncated to limit.
func (db *DB) NextTasks(projectID string, limit int) ([]models.TaskContext, error) {
	if limit <= 0 {
		limit = 5
	}
	if _, err := db.GetProject(projectID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT t.id, t.story_id, t.title, t.description, t.task_type, t.estimated_hours,
			t.technical_details, t.status, t.order_index, t.issue_number, t.issue_url,
			s.title, e.title, s.priority, e.priority
		FROM tasks t
		JOIN stories s ON t.story_id = s.id
		JOIN epics e ON s.epic_id = e.id
		WHERE e.project_id = ? AND t.status = 'todo'
		ORDER BY e.priority DESC, s.priority DESC, t.order_index
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("next tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.TaskContext
	for rows.Next() {
		tc, err := scanTaskContext(rows, true)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *tc)
	}
	return tasks, rows.Err()
}

// GetTaskContext retrieves a task with its story/epic titles and project id,
// as needed to dispatch execution.
func (db *DB) GetTaskContext(taskID string) (*models.TaskContext, error) {
	row := db.QueryRow(`
		SELECT t.id, t.story_id, t.title, t.description, t.task_type, t.estimated_hours,
			t.technical_details, t.status, t.order_index, t.issue_number, t.issue_url,
			s.title, e.title, s.priority, e.priority, e.project_id
		FROM tasks t
		JOIN stories s ON t.story_id = s.id
		JOIN epics e ON s.epic_id = e.id
		WHERE t.id = ?
	`, taskID)

	var tc models.TaskContext
	var description, details, issueURL sql.NullString
	var hours sql.NullFloat64
	var issueNumber sql.NullInt64

	err := row.Scan(&tc.ID, &tc.StoryID, &tc.Title, &description, &tc.Type, &hours,
		&details, &tc.Status, &tc.OrderIndex, &issueNumber, &issueURL,
		&tc.StoryTitle, &tc.EpicTitle, &tc.StoryPriority, &tc.EpicPriority, &tc.ProjectID)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}
	if err != nil {
		return nil, fmt.Errorf("get task context: %w", err)
	}

	if err := fillTaskOptionals(&tc.Task, description, details, issueURL, hours, issueNumber); err != nil {
		return nil, err
	}
	return &tc, nil
}

func scanTaskContext(rows *sql.Rows, withPriorities bool) (*models.TaskContext, error) {
	var tc models.TaskContext
	var description, details, issueURL sql.NullString
	var hours sql.NullFloat64
	var issueNumber sql.NullInt64

	dest := []any{&tc.ID, &tc.StoryID, &tc.Title, &description, &tc.Type, &hours,
		&details, &tc.Status, &tc.OrderIndex, &issueNumber, &issueURL,
		&tc.StoryTitle, &tc.EpicTitle}
	if withPriorities {
		dest = append(dest, &tc.StoryPriority, &tc.EpicPriority)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan task context: %w", err)
	}

	if err := fillTaskOptionals(&tc.Task, description, details, issueURL, hours, issueNumber); err != nil {
		return nil, err
	}
	return &tc, nil
}

func fillTaskOptionals(t *models.Task, description, details, issueURL sql.NullString, hours sql.NullFloat64, issueNumber sql.NullInt64) error {
	if description.Valid {
		t.Description = description.String
	}
	if hours.Valid {
		h := hours.Float64
		t.EstimatedHours = &h
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &t.TechnicalDetails); err != nil {
			return fmt.Errorf("unmarshal technical details: %w", err)
		}
	}
	if issueNumber.Valid {
		n := int(issueNumber.Int64)
		t.IssueNumber = &n
	}
	if issueURL.Valid {
		t.IssueURL = issueURL.String
	}
	return nil
}
