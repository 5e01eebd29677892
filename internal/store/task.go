package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Nayan-Shrivastava/task-management-app/internal/models"
)

var allowedTaskFields = map[string]bool{
	"description": true,
	"completed":   true,
}

// Columns a task listing may be sorted on.
var sortableTaskColumns = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"description": true,
	"completed":   true,
}

// TaskFilter narrows and orders a task listing. SortBy takes the form
// "column:asc" or "column:desc".
type TaskFilter struct {
	Completed *bool
	Limit     int
	Skip      int
	SortBy    string
}

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Create(ctx context.Context, ownerID int, description string) (*models.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, NewValidationError("description is required")
	}

	task := &models.Task{UserID: ownerID, Description: description}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, description)
		 VALUES ($1, $2)
		 RETURNING id, completed, created_at, updated_at`,
		ownerID, description,
	).Scan(&task.ID, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// List returns the owner's tasks only; another user's tasks can never
// appear in the result.
func (s *TaskStore) List(ctx context.Context, ownerID int, filter TaskFilter) ([]models.Task, error) {
	query := `SELECT id, user_id, description, completed, created_at, updated_at
	          FROM tasks WHERE user_id = $1`
	args := []interface{}{ownerID}

	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		query += fmt.Sprintf(" AND completed = $%d", len(args))
	}

	orderBy, err := parseSortBy(filter.SortBy)
	if err != nil {
		return nil, err
	}
	query += " ORDER BY " + orderBy

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.UserID, &task.Description,
			&task.Completed, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Get scopes the lookup to the owner. A task that exists but belongs to
// someone else reports the same ErrNotFound as a missing one.
func (s *TaskStore) Get(ctx context.Context, ownerID, taskID int) (*models.Task, error) {
	task := &models.Task{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, description, completed, created_at, updated_at
		 FROM tasks WHERE id = $1 AND user_id = $2`, taskID, ownerID,
	).Scan(&task.ID, &task.UserID, &task.Description, &task.Completed,
		&task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskStore) Update(ctx context.Context, ownerID, taskID int, patch map[string]json.RawMessage) (*models.Task, error) {
	if len(patch) == 0 {
		return nil, NewValidationError("no fields to update")
	}
	for field := range patch {
		if !allowedTaskFields[field] {
			return nil, NewValidationError("invalid update field: " + field)
		}
	}

	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if raw, ok := patch["description"]; ok {
		if err := json.Unmarshal(raw, &task.Description); err != nil {
			return nil, NewValidationError("description must be a string")
		}
		if strings.TrimSpace(task.Description) == "" {
			return nil, NewValidationError("description is required")
		}
	}
	if raw, ok := patch["completed"]; ok {
		if err := json.Unmarshal(raw, &task.Completed); err != nil {
			return nil, NewValidationError("completed must be a boolean")
		}
	}

	err = s.db.QueryRowContext(ctx,
		`UPDATE tasks SET description = $1, completed = $2, updated_at = NOW()
		 WHERE id = $3 AND user_id = $4
		 RETURNING updated_at`,
		task.Description, task.Completed, taskID, ownerID,
	).Scan(&task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID int) (*models.Task, error) {
	task := &models.Task{}
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, description, completed, created_at, updated_at`,
		taskID, ownerID,
	).Scan(&task.ID, &task.UserID, &task.Description, &task.Completed,
		&task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// parseSortBy maps "column:dir" onto an ORDER BY clause. The id
// tiebreaker keeps ordering stable when timestamps collide.
func parseSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "created_at ASC, id ASC", nil
	}
	column, dir := sortBy, "asc"
	if i := strings.Index(sortBy, ":"); i >= 0 {
		column, dir = sortBy[:i], strings.ToLower(sortBy[i+1:])
	}
	if !sortableTaskColumns[column] {
		return "", NewValidationError("invalid sort field: " + column)
	}
	switch dir {
	case "asc":
		return column + " ASC, id ASC", nil
	case "desc":
		return column + " DESC, id DESC", nil
	default:
		return "", NewValidationError("sort direction must be asc or desc")
	}
}
