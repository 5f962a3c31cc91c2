package models

import (
	"fmt"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the bands in sort order, highest first.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

var priorityColors = map[Priority]string{
	PriorityLow:    "#F1C40F",
	PriorityMedium: "#8968CD",
	PriorityHigh:   "#E74C3C",
}

// DefaultColor is used for rows whose priority is not a known band.
const DefaultColor = "#FFFFFF"

// ParsePriority accepts a band name in any case.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (want low, medium or high)", s)
	}
	return p, nil
}

func (p Priority) Valid() bool {
	_, ok := priorityColors[p]
	return ok
}

// Rank is the position of p in Priorities. Unknown values rank -1 and
// therefore sort ahead of every known band.
func (p Priority) Rank() int {
	for i, band := range Priorities {
		if band == p {
			return i
		}
	}
	return -1
}

// Color returns the row background for p.
func (p Priority) Color() string {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return DefaultColor
}

// Label is the capitalised band name shown on the priority button.
func (p Priority) Label() string {
	if p == "" {
		return ""
	}
	s := string(p)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Task mirrors the remote store's task record.
type Task struct {
	ID          int64    `json:"id"`
	Task        string   `json:"task"`
	Description string   `json:"description"`
	TaskDate    string   `json:"task_date"`
	Priority    Priority `json:"priority"`
	// Status is true while the task is open. The store defaults it to true
	// on creation and clients send false to mark the task completed.
	Status bool `json:"status"`
}

func (t Task) Completed() bool {
	return !t.Status
}

// NewTask is the body of a create request.
type NewTask struct {
	Task        string   `json:"task"`
	Description string   `json:"description"`
	TaskDate    string   `json:"task_date"`
	Priority    Priority `json:"priority"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Task        *string   `json:"task,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *bool     `json:"status,omitempty"`
	TaskDate    *string   `json:"task_date,omitempty"`
}

// Apply copies the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Task != nil {
		t.Task = *p.Task
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.TaskDate != nil {
		t.TaskDate = *p.TaskDate
	}
}

func (p TaskPatch) Empty() bool {
	return p.Task == nil && p.Description == nil && p.Priority == nil && p.Status == nil && p.TaskDate == nil
}

// OrderUpdate reports the full top-to-bottom order after a drop.
type OrderUpdate struct {
	TaskID   int64   `json:"taskId"`
	NewOrder []int64 `json:"newOrder"`
}
