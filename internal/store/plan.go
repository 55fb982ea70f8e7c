package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/planforge/pkg/models"
)

// EpicInput holds the caller-supplied fields for a new epic.
type EpicInput struct {
	Title       string
	Description string
	Priority    int
}

// StoryInput holds the caller-supplied fields for a new story.
type StoryInput struct {
	Title              string
	Description        string
	UserStory          string
	AcceptanceCriteria []string
	StoryPoints        *int
	Priority           int
}

// TaskInput holds the caller-supplied fields for a new task.
type TaskInput struct {
	Title            string
	Description      string
	Type             models.TaskType
	EstimatedHours   *float64
	TechnicalDetails map[string]any
}

// CreateEpic creates an epic under a project. The order index is assigned
// inside a single transaction: next = max(order_index for project) + 1.
func (db *DB) CreateEpic(projectID string, in EpicInput) (*models.Epic, error) {
	if in.Title == "" {
		return nil, &ValidationError{Msg: "epic title is required"}
	}

	e := &models.Epic{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      "todo",
	}

	err := db.Transaction(func(tx *sql.Tx) error {
		if err := parentExists(tx, "projects", "project", projectID); err != nil {
			return err
		}

		var maxOrder int
		row := tx.QueryRow("SELECT COALESCE(MAX(order_index), 0) FROM epics WHERE project_id = ?", projectID)
		if err := row.Scan(&maxOrder); err != nil {
			return fmt.Errorf("get max epic order: %w", err)
		}
		e.OrderIndex = maxOrder + 1

		_, err := tx.Exec(`
			INSERT INTO epics (id, project_id, title, description, priority, order_index, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.ProjectID, e.Title, e.Description, e.Priority, e.OrderIndex, e.Status, formatTime(time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("create epic: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateStory creates a story under an epic, with an epic-scoped order index.
func (db *DB) CreateStory(epicID string, in StoryInput) (*models.Story, error) {
	if in.Title == "" {
		return nil, &ValidationError{Msg: "story title is required"}
	}

	s := &models.Story{
		ID:                 uuid.NewString(),
		EpicID:             epicID,
		Title:              in.Title,
		Description:        in.Description,
		UserStory:          in.UserStory,
		AcceptanceCriteria: in.AcceptanceCriteria,
		StoryPoints:        in.StoryPoints,
		Priority:           in.Priority,
		Status:             "todo",
	}

	criteria, err := json.Marshal(in.AcceptanceCriteria)
	if err != nil {
		return nil, fmt.Errorf("marshal acceptance criteria: %w", err)
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		if err := parentExists(tx, "epics", "epic", epicID); err != nil {
			return err
		}

		var maxOrder int
		row := tx.QueryRow("SELECT COALESCE(MAX(order_index), 0) FROM stories WHERE epic_id = ?", epicID)
		if err := row.Scan(&maxOrder); err != nil {
			return fmt.Errorf("get max story order: %w", err)
		}
		s.OrderIndex = maxOrder + 1

		_, err := tx.Exec(`
			INSERT INTO stories (id, epic_id, title, description, user_story, acceptance_criteria,
				story_points, priority, order_index, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.ID, s.EpicID, s.Title, s.Description, s.UserStory, string(criteria),
			s.StoryPoints, s.Priority, s.OrderIndex, s.Status, formatTime(time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("create story: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateTask creates a task under a story, with a story-scoped order index.
func (db *DB) CreateTask(storyID string, in TaskInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, &ValidationError{Msg: "task title is required"}
	}
	taskType := in.Type
	if taskType == "" {
		taskType = models.TaskTypeFeature
	}
	if !taskType.Valid() {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid task type: %s", taskType)}
	}

	t := &models.Task{
		ID:               uuid.NewString(),
		StoryID:          storyID,
		Title:            in.Title,
		Description:      in.Description,
		Type:             taskType,
		EstimatedHours:   in.EstimatedHours,
		TechnicalDetails: in.TechnicalDetails,
		Status:           models.TaskStatusTodo,
	}

	details, err := json.Marshal(in.TechnicalDetails)
	if err != nil {
		return nil, fmt.Errorf("marshal technical details: %w", err)
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		if err := parentExists(tx, "stories", "story", storyID); err != nil {
			return err
		}

		var maxOrder int
		row := tx.QueryRow("SELECT COALESCE(MAX(order_index), 0) FROM tasks WHERE story_id = ?", storyID)
		if err := row.Scan(&maxOrder); err != nil {
			return fmt.Errorf("get max task order: %w", err)
		}
		t.OrderIndex = maxOrder + 1

		_, err := tx.Exec(`
			INSERT INTO tasks (id, story_id, title, description, task_type, estimated_hours,
				technical_details, status, order_index, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.StoryID, t.Title, t.Description, string(t.Type), t.EstimatedHours,
			string(details), string(t.Status), t.OrderIndex, formatTime(time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// parentExists verifies a parent row exists within the transaction.
func parentExists(tx *sql.Tx, table, entity, id string) error {
	var one int
	row := tx.QueryRow("SELECT 1 FROM "+table+" WHERE id = ?", id)
	if err := row.Scan(&one); err == sql.ErrNoRows {
		return &NotFoundError{Entity: entity, ID: id}
	} else if err != nil {
		return fmt.Errorf("check %s: %w", entity, err)
	}
	return nil
}

// StoryNode is a story with its tasks, as returned by GetPlan.
type StoryNode struct {
	models.Story
	Tasks []models.Task `json:"tasks"`
}

// EpicNode is an epic with its stories, as returned by GetPlan.
type EpicNode struct {
	models.Epic
	Stories []StoryNode `json:"stories"`
}

// ProjectPlan is the full work breakdown tree for a project.
type ProjectPlan struct {
	Project models.Project `json:"project"`
	Epics   []EpicNode     `json:"epics"`
}

// GetPlan retrieves the complete plan tree for a project, ordered by
// (order_index, created_at) at every level.
func (db *DB) GetPlan(projectID string) (*ProjectPlan, error) {
	project, err := db.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	plan := &ProjectPlan{Project: *project, Epics: []EpicNode{}}

	epicRows, err := db.Query(`
		SELECT id, project_id, title, description, priority, order_index, status
		FROM epics WHERE project_id = ? ORDER BY order_index, created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	defer epicRows.Close()

	for epicRows.Next() {
		var e models.Epic
		var description sql.NullString
		if err := epicRows.Scan(&e.ID, &e.ProjectID, &e.Title, &description, &e.Priority, &e.OrderIndex, &e.Status); err != nil {
			return nil, fmt.Errorf("scan epic: %w", err)
		}
		if description.Valid {
			e.Description = description.String
		}
		plan.Epics = append(plan.Epics, EpicNode{Epic: e, Stories: []StoryNode{}})
	}
	if err := epicRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epics: %w", err)
	}

	for i := range plan.Epics {
		stories, err := db.listStories(plan.Epics[i].ID)
		if err != nil {
			return nil, err
		}
		for _, s := range stories {
			tasks, err := db.listTasks(s.ID)
			if err != nil {
				return nil, err
			}
			plan.Epics[i].Stories = append(plan.Epics[i].Stories, StoryNode{Story: s, Tasks: tasks})
		}
	}

	return plan, nil
}

func (db *DB) listStories(epicID string) ([]models.Story, error) {
	rows, err := db.Query(`
		SELECT id, epic_id, title, description, user_story, acceptance_criteria,
			story_points, priority, order_index, status
		FROM stories WHERE epic_id = ? ORDER BY order_index, created_at
	`, epicID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var s models.Story
		var description, userStory, criteria sql.NullString
		var points sql.NullInt64
		if err := rows.Scan(&s.ID, &s.EpicID, &s.Title, &description, &userStory, &criteria,
			&points, &s.Priority, &s.OrderIndex, &s.Status); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		if description.Valid {
			s.Description = description.String
		}
		if userStory.Valid {
			s.UserStory = userStory.String
		}
		if criteria.Valid && criteria.String != "" {
			if err := json.Unmarshal([]byte(criteria.String), &s.AcceptanceCriteria); err != nil {
				return nil, fmt.Errorf("unmarshal acceptance criteria: %w", err)
			}
		}
		if points.Valid {
			p := int(points.Int64)
			s.StoryPoints = &p
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

func (db *DB) listTasks(storyID string) ([]models.Task, error) {
	rows, err := db.Query(`
		SELECT id, story_id, title, description, task_type, estimated_hours,
			technical_details, status, order_index, issue_number, issue_url
		FROM tasks WHERE story_id = ? ORDER BY order_index, created_at
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	var description, details, issueURL sql.NullString
	var hours sql.NullFloat64
	var issueNumber sql.NullInt64

	err := row.Scan(&t.ID, &t.StoryID, &t.Title, &description, &t.Type, &hours,
		&details, &t.Status, &t.OrderIndex, &issueNumber, &issueURL)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = description.String
	}
	if hours.Valid {
		h := hours.Float64
		t.EstimatedHours = &h
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &t.TechnicalDetails); err != nil {
			return nil, fmt.Errorf("unmarshal technical details: %w", err)
		}
	}
	if issueNumber.Valid {
		n := int(issueNumber.Int64)
		t.IssueNumber = &n
	}
	if issueURL.Valid {
		t.IssueURL = issueURL.String
	}
	return &t, nil
}
