package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nick-dorsch/todolist/pkg/models"
)

// Longest title and description the tasks table accepts, in characters.
const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 255
)

var ErrInvalidTask = errors.New("invalid task")

const taskColumns = `id, task, description, task_date, priority, status`

// CreateTask appends a task to the end of the user's order and returns it
// with its assigned id. New tasks are open.
func (db *DB) CreateTask(ctx context.Context, userID int64, t models.NewTask) (*models.Task, error) {
	if err := validateTitle(t.Task); err != nil {
		return nil, err
	}
	if err := validateDescription(t.Description); err != nil {
		return nil, err
	}
	priority := t.Priority
	if priority == "" {
		priority = models.PriorityLow
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, task, description, task_date, priority, status, position)
		VALUES (?, ?, ?, ?, ?, 1, (SELECT COALESCE(MAX(position), -1) + 1 FROM tasks WHERE user_id = ?))
	`, userID, t.Task, t.Description, t.TaskDate, priority, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get task id: %w", err)
	}

	db.triggerChange(ctx)
	return db.getTask(ctx, db.DB, userID, id)
}

// GetTask returns ErrNotFound when the task does not exist or belongs to
// another user.
func (db *DB) GetTask(ctx context.Context, userID, id int64) (*models.Task, error) {
	return db.getTask(ctx, db.DB, userID, id)
}

func (db *DB) getTask(ctx context.Context, exec executor, userID, id int64) (*models.Task, error) {
	row := exec.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns the user's tasks in persisted order.
func (db *DB) ListTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	return db.listTasks(ctx, db.DB, userID)
}

func (db *DB) listTasks(ctx context.Context, exec executor, userID int64) ([]models.Task, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ?
		ORDER BY position ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	var status int
	if err := s.Scan(&t.ID, &t.Task, &t.Description, &t.TaskDate, &t.Priority, &status); err != nil {
		return nil, err
	}
	t.Status = status == 1
	return t, nil
}

// UpdateTask applies the non-nil fields of patch and returns the stored task.
func (db *DB) UpdateTask(ctx context.Context, userID, id int64, patch models.TaskPatch) (*models.Task, error) {
	var sets []string
	var args []any
	if patch.Task != nil {
		if err := validateTitle(*patch.Task); err != nil {
			return nil, err
		}
		sets = append(sets, "task = ?")
		args = append(args, *patch.Task)
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, boolToInt(*patch.Status))
	}
	if patch.TaskDate != nil {
		sets = append(sets, "task_date = ?")
		args = append(args, *patch.TaskDate)
	}

	if len(sets) == 0 {
		return db.GetTask(ctx, userID, id)
	}

	args = append(args, id, userID)
	res, err := db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}

	db.triggerChange(ctx)
	return db.GetTask(ctx, userID, id)
}

func (db *DB) DeleteTask(ctx context.Context, userID, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}

	db.triggerChange(ctx)
	return nil
}

// ReorderTasks stores ids as the new order of the user's tasks. Tasks not
// listed keep their relative order after the listed ones. Every id must
// belong to the user and appear once.
func (db *DB) ReorderTasks(ctx context.Context, userID int64, ids []int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := db.listTasks(ctx, tx, userID)
	if err != nil {
		return err
	}
	owned := make(map[int64]bool, len(current))
	for _, t := range current {
		owned[t.ID] = true
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !owned[id] || seen[id] {
			return fmt.Errorf("task %d: %w", id, ErrInvalidOrder)
		}
		seen[id] = true
	}

	order := append([]int64(nil), ids...)
	for _, t := range current {
		if !seen[t.ID] {
			order = append(order, t.ID)
		}
	}

	for pos, id := range order {
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET position = ? WHERE id = ? AND user_id = ?`, pos, id, userID); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: task is required", ErrInvalidTask)
	}
	if len([]rune(title)) > MaxTitleLength {
		return fmt.Errorf("%w: task is longer than %d characters", ErrInvalidTask, MaxTitleLength)
	}
	return nil
}

func validateDescription(desc string) error {
	if len([]rune(desc)) > MaxDescriptionLength {
		return fmt.Errorf("%w: description is longer than %d characters", ErrInvalidTask, MaxDescriptionLength)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
