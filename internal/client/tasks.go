package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nick-dorsch/todolist/pkg/models"
)

// ListTasks fetches every task of the current user.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	data, err := c.do(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var tasks []models.Task
	if err := decodeValidated(data, taskListValidator, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask posts t and returns the stored task with its assigned id.
func (c *Client) CreateTask(ctx context.Context, t models.NewTask) (*models.Task, error) {
	data, err := c.do(ctx, http.MethodPost, "/tasks", t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	var created models.Task
	if err := decodeValidated(data, taskValidator, &created); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &created, nil
}

// UpdateTask sends a partial update. The store answers with the full task.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	data, err := c.do(ctx, http.MethodPut, taskPath(id), patch)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	var updated models.Task
	if err := decodeValidated(data, taskValidator, &updated); err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	return &updated, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodDelete, taskPath(id), nil); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

// UpdateOrder reports the full visual order after a drag-and-drop. The
// response body is ignored.
func (c *Client) UpdateOrder(ctx context.Context, order models.OrderUpdate) error {
	if _, err := c.do(ctx, http.MethodPost, "/updateOrder", order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}
