package mcp

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nick-dorsch/todolist/internal/controller"
	"github.com/nick-dorsch/todolist/internal/tasklist"
	"github.com/nick-dorsch/todolist/pkg/models"
)

const (
	serverName    = "todolist"
	serverVersion = "0.1.0"
)

// NewServer exposes the task list as MCP tools. Every tool reloads the list
// from the store first, so ids and positions refer to the current state.
func NewServer(ctl *controller.Controller) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion)

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List all tasks in display order (high priority first)."),
	), listTasksHandler(ctl))

	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Add a task with low priority and today's date."),
		mcp.WithString("title", mcp.Description("Task title (max 50 chars)"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
	), createTaskHandler(ctl))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), deleteTaskHandler(ctl))

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task as completed."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), setCompletedHandler(ctl, true))

	s.AddTool(mcp.NewTool("reopen_task",
		mcp.WithDescription("Mark a completed task as open again."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), setCompletedHandler(ctl, false))

	s.AddTool(mcp.NewTool("set_priority",
		mcp.WithDescription("Change the priority band of a task."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("priority", mcp.Description("New priority"), mcp.Required(), mcp.Enum("low", "medium", "high")),
	), setPriorityHandler(ctl))

	s.AddTool(mcp.NewTool("edit_description",
		mcp.WithDescription("Replace the description of a task."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("description", mcp.Description("New description"), mcp.Required()),
	), editDescriptionHandler(ctl))

	s.AddTool(mcp.NewTool("reorder_tasks",
		mcp.WithDescription("Move a task before the row at a 0-based position among the other tasks. Manual order only applies within a priority band."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithNumber("before", mcp.Description("Target position among the other tasks"), mcp.Required()),
	), reorderHandler(ctl))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

type listedTask struct {
	Position    string `json:"position"`
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed"`
	Date        string `json:"date"`
}

func listTasksHandler(ctl *controller.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if r := ctl.Load(ctx); !r.OK() {
			return mcp.NewToolResultError(r.String()), nil
		}

		tasks := ctl.Tasks()
		out := make([]listedTask, len(tasks))
		for i, t := range tasks {
			out[i] = listedTask{
				Position:    tasklist.Label(i),
				ID:          t.ID,
				Title:       t.Task,
				Description: t.Description,
				Priority:    string(t.Priority),
				Completed:   t.Completed(),
				Date:        t.TaskDate,
			}
		}

		data, err := sonic.Marshal(map[string]any{"tasks": out})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func createTaskHandler(ctl *controller.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		description := mcp.ParseString(request, "description", "")

		r := ctl.Create(ctx, title, description)
		if !r.OK() {
			return mcp.NewToolResultError(r.String()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d created", r.TaskID)), nil
	}
}

// withTask reloads the list and resolves the id argument before running op.
func withTask(ctl *controller.Controller, op func(ctx context.Context, id int64, request mcp.CallToolRequest) controller.Result, done string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(mcp.ParseInt(request, "id", 0))
		if id <= 0 {
			return mcp.NewToolResultError("id must be a positive task id"), nil
		}
		if r := ctl.Load(ctx); !r.OK() {
			return mcp.NewToolResultError(r.String()), nil
		}
		if r := op(ctx, id, request); !r.OK() {
			return mcp.NewToolResultError(r.String()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d %s", id, done)), nil
	}
}

func deleteTaskHandler(ctl *controller.Controller) server.ToolHandlerFunc {
	return withTask(ctl, func(ctx context.Context, id int64, _ mcp.CallToolRequest) controller.Result {
		return ctl.Delete(ctx, id)
	}, "deleted")
}

func setCompletedHandler(ctl *controller.Controller, done bool) server.ToolHandlerFunc {
	verb := "reopened"
	if done {
		verb = "completed"
	}
	return withTask(ctl, func(ctx context.Context, id int64, _ mcp.CallToolRequest) controller.Result {
		return ctl.SetCompleted(ctx, id, done)
	}, verb)
}

func setPriorityHandler(ctl *controller.Controller) server.ToolHandlerFunc {
	return withTask(ctl, func(ctx context.Context, id int64, request mcp.CallToolRequest) controller.Result {
		p := models.Priority(mcp.ParseString(request, "priority", ""))
		return ctl.SetPriority(ctx, id, p)
	}, "priority updated")
}

func editDescriptionHandler(ctl *controller.Controller) server.ToolHandlerFunc {
	return withTask(ctl, func(ctx context.Context, id int64, request mcp.CallToolRequest) controller.Result {
		return ctl.EditDescription(ctx, id, mcp.ParseString(request, "description", ""))
	}, "description updated")
}

func reorderHandler(ctl *controller.Controller) server.ToolHandlerFunc {
	return withTask(ctl, func(ctx context.Context, id int64, request mcp.CallToolRequest) controller.Result {
		return ctl.Move(ctx, id, mcp.ParseInt(request, "before", 0))
	}, "moved")
}
