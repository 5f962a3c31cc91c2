package db

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/nick-dorsch/todolist/pkg/models"
)

func taskIDs(tasks []models.Task) []int64 {
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestCreateTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := mustUser(t, db, "alice")

	created, err := db.CreateTask(ctx, user.ID, models.NewTask{
		Task:        "Buy milk",
		Description: "2%",
		TaskDate:    "2026-10-18",
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if created.ID == 0 {
		t.Error("Expected an assigned id")
	}
	if created.Priority != models.PriorityLow {
		t.Errorf("Expected default priority low, got %s", created.Priority)
	}
	if !created.Status {
		t.Error("Expected new task to be open")
	}
	if created.Description != "2%" || created.TaskDate != "2026-10-18" {
		t.Errorf("Unexpected task %+v", created)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := mustUser(t, db, "alice")

	tests := map[string]string{
		"empty":    "",
		"blank":    "   ",
		"too long": strings.Repeat("x", MaxTitleLength+1),
	}
	for name, title := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := db.CreateTask(ctx, user.ID, models.NewTask{Task: title})
			if !errors.Is(err, ErrInvalidTask) {
				t.Errorf("Expected ErrInvalidTask, got %v", err)
			}
		})
	}

	if _, err := db.CreateTask(ctx, user.ID, models.NewTask{Task: strings.Repeat("é", MaxTitleLength)}); err != nil {
		t.Errorf("Expected 50 multi-byte characters to fit, got %v", err)
	}
}

func TestDescriptionLengthLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := mustUser(t, db, "alice")

	long := strings.Repeat("d", MaxDescriptionLength+1)
	if _, err := db.CreateTask(ctx, user.ID, models.NewTask{Task: "a", Description: long}); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("Expected ErrInvalidTask on create, got %v", err)
	}

	task, err := db.CreateTask(ctx, user.ID, models.NewTask{Task: "a", Description: strings.Repeat("é", MaxDescriptionLength)})
	if err != nil {
		t.Fatalf("Expected %d multi-byte characters to fit, got %v", MaxDescriptionLength, err)
	}
	if _, err := db.UpdateTask(ctx, user.ID, task.ID, models.TaskPatch{Description: &long}); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("Expected ErrInvalidTask on update, got %v", err)
	}
	got, err := db.GetTask(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Description != strings.Repeat("é", MaxDescriptionLength) {
		t.Errorf("Rejected update changed the description")
	}
}

func TestListTasksByPositionAndUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	var want []int64
	for _, title := range []string{"one", "two", "three"} {
		task, err := db.CreateTask(ctx, alice.ID, models.NewTask{Task: title})
		if err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
		want = append(want, task.ID)
	}
	if _, err := db.CreateTask(ctx, bob.ID, models.NewTask{Task: "bob's"}); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	tasks, err := db.ListTasks(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if got := taskIDs(tasks); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	empty, err := db.ListTasks(ctx, 999)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", empty)
	}
}

func TestUpdateTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := mustUser(t, db, "alice")
	task, err := db.CreateTask(ctx, user.ID, models.NewTask{Task: "write", Description: "old"})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	status := false
	priority := models.PriorityHigh
	updated, err := db.UpdateTask(ctx, user.ID, task.ID, models.TaskPatch{Status: &status, Priority: &priority})
	if err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if updated.Status || updated.Priority != models.PriorityHigh {
		t.Errorf("Patch not applied: %+v", updated)
	}
	if updated.Description != "old" {
		t.Errorf("Unpatched field changed: %q", updated.Description)
	}

	desc := "new"
	updated, err = db.UpdateTask(ctx, user.ID, task.ID, models.TaskPatch{Description: &desc})
	if err != nil {
		t.Fatalf("Failed to update description: %v", err)
	}
	if updated.Description != "new" || updated.Status {
		t.Errorf("Unexpected task after description update: %+v", updated)
	}

	unchanged, err := db.UpdateTask(ctx, user.ID, task.ID, models.TaskPatch{})
	if err != nil || unchanged.ID != task.ID {
		t.Errorf("Empty patch should return the task, got %+v, %v", unchanged, err)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	task, err := db.CreateTask(ctx, alice.ID, models.NewTask{Task: "private"})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	desc := "hijack"
	if _, err := db.UpdateTask(ctx, bob.ID, task.ID, models.TaskPatch{Description: &desc}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user's task, got %v", err)
	}
	if _, err := db.UpdateTask(ctx, alice.ID, 999, models.TaskPatch{Description: &desc}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown task, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := mustUser(t, db, "alice")
	a, _ := db.CreateTask(ctx, user.ID, models.NewTask{Task: "a"})
	b, _ := db.CreateTask(ctx, user.ID, models.NewTask{Task: "b"})

	if err := db.DeleteTask(ctx, user.ID, a.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	tasks, _ := db.ListTasks(ctx, user.ID)
	if got := taskIDs(tasks); !slices.Equal(got, []int64{b.ID}) {
		t.Errorf("Expected only %d left, got %v", b.ID, got)
	}
	if err := db.DeleteTask(ctx, user.ID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestReorderTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := mustUser(t, db, "alice")
	var ids []int64
	for _, title := range []string{"a", "b", "c", "d"} {
		task, err := db.CreateTask(ctx, user.ID, models.NewTask{Task: title})
		if err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
		ids = append(ids, task.ID)
	}

	order := []int64{ids[3], ids[0], ids[2], ids[1]}
	if err := db.ReorderTasks(ctx, user.ID, order); err != nil {
		t.Fatalf("Failed to reorder: %v", err)
	}
	tasks, _ := db.ListTasks(ctx, user.ID)
	if got := taskIDs(tasks); !slices.Equal(got, order) {
		t.Errorf("Expected %v, got %v", order, got)
	}

	// Partial order: unlisted tasks follow in their previous order.
	if err := db.ReorderTasks(ctx, user.ID, []int64{ids[1]}); err != nil {
		t.Fatalf("Failed to reorder: %v", err)
	}
	tasks, _ = db.ListTasks(ctx, user.ID)
	want := []int64{ids[1], ids[3], ids[0], ids[2]}
	if got := taskIDs(tasks); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// New tasks go to the end.
	e, _ := db.CreateTask(ctx, user.ID, models.NewTask{Task: "e"})
	tasks, _ = db.ListTasks(ctx, user.ID)
	if tasks[len(tasks)-1].ID != e.ID {
		t.Errorf("Expected new task last, got %v", taskIDs(tasks))
	}
}

func TestReorderTasksRejectsForeignIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	a, _ := db.CreateTask(ctx, alice.ID, models.NewTask{Task: "a"})
	b, _ := db.CreateTask(ctx, bob.ID, models.NewTask{Task: "b"})

	tests := map[string][]int64{
		"other user": {a.ID, b.ID},
		"unknown":    {a.ID, 999},
		"duplicate":  {a.ID, a.ID},
	}
	for name, order := range tests {
		t.Run(name, func(t *testing.T) {
			if err := db.ReorderTasks(ctx, alice.ID, order); !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("Expected ErrInvalidOrder, got %v", err)
			}
		})
	}
}
