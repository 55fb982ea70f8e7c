package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/planforge/pkg/models"
)

// CreateProject creates a new project in the planning phase.
func (db *DB) CreateProject(name, description string, techStack map[string]any) (*models.Project, error) {
	now := time.Now().UTC()
	p := &models.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      models.ProjectStatusPlanning,
		TechStack:   techStack,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stack, err := json.Marshal(techStack)
	if err != nil {
		return nil, fmt.Errorf("marshal tech stack: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO projects (id, name, description, status, tech_stack, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, string(p.Status), string(stack), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// GetProject retrieves a project by ID.
func (db *DB) GetProject(id string) (*models.Project, error) {
	row := db.QueryRow(`
		SELECT id, name, description, status, tech_stack, repo_url, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects lists projects ordered by most recently updated, optionally
// filtered by status.
func (db *DB) ListProjects(status *models.ProjectStatus, limit int) ([]models.Project, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if status != nil {
		rows, err = db.Query(`
			SELECT id, name, description, status, tech_stack, repo_url, created_at, updated_at
			FROM projects WHERE status = ? ORDER BY updated_at DESC LIMIT ?
		`, string(*status), limit)
	} else {
		rows, err = db.Query(`
			SELECT id, name, description, status, tech_stack, repo_url, created_at, updated_at
			FROM projects ORDER BY updated_at DESC LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// UpdateProjectStatus moves a project to a new lifecycle phase. Phases only
// move forward; archiving is allowed from any state. An optional repoURL is
// persisted alongside the status when non-empty.
func (db *DB) UpdateProjectStatus(id string, status models.ProjectStatus, repoURL string) (*models.Project, error) {
	if !status.Valid() {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid project status: %s", status)}
	}

	err := db.Transaction(func(tx *sql.Tx) error {
		var current string
		row := tx.QueryRow("SELECT status FROM projects WHERE id = ?", id)
		if err := row.Scan(&current); err == sql.ErrNoRows {
			return &NotFoundError{Entity: "project", ID: id}
		} else if err != nil {
			return fmt.Errorf("get project status: %w", err)
		}

		if !models.ProjectStatus(current).CanTransitionTo(status) {
			return &ValidationError{Msg: fmt.Sprintf("project status cannot move from %s to %s", current, status)}
		}

		now := formatTime(time.Now().UTC())
		if repoURL != "" {
			_, err := tx.Exec("UPDATE projects SET status = ?, repo_url = ?, updated_at = ? WHERE id = ?",
				string(status), repoURL, now, id)
			return err
		}
		_, err := tx.Exec("UPDATE projects SET status = ?, updated_at = ? WHERE id = ?",
			string(status), now, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return db.GetProject(id)
}

// SetProjectRepo records the project's repository URL without touching its
// lifecycle status.
func (db *DB) SetProjectRepo(id, repoURL string) error {
	result, err := db.Exec("UPDATE projects SET repo_url = ?, updated_at = ? WHERE id = ?",
		repoURL, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("set project repo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Entity: "project", ID: id}
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan code.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*models.Project, error) {
	var p models.Project
	var description, techStack, repoURL sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &description, &p.Status, &techStack, &repoURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		p.Description = description.String
	}
	if techStack.Valid && techStack.String != "" {
		if err := json.Unmarshal([]byte(techStack.String), &p.TechStack); err != nil {
			return nil, fmt.Errorf("unmarshal tech stack: %w", err)
		}
	}
	if repoURL.Valid {
		p.RepoURL = repoURL.String
	}
	p.CreatedAt, _ = parseTime(createdAt)
	p.UpdatedAt, _ = parseTime(updatedAt)
	return &p, nil
}
