// Package controller owns the client-side task list and keeps it in step with
// the remote store.
//
// Every operation calls the store first and changes the list only when the
// call succeeds, so the list always holds confirmed state. Each operation
// returns a Result which is also delivered to subscribers.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nick-dorsch/todolist/internal/tasklist"
	"github.com/nick-dorsch/todolist/pkg/models"
)

// API is the subset of the remote store the controller needs.
type API interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, t models.NewTask) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	UpdateOrder(ctx context.Context, order models.OrderUpdate) error
}

var (
	ErrEmptyTitle    = errors.New("task title is empty")
	ErrUnknownTask   = errors.New("unknown task")
	ErrBadPriority   = errors.New("invalid priority")
	ErrOrderMismatch = errors.New("order does not match the task list")
)

type Op string

const (
	OpLoad        Op = "load"
	OpCreate      Op = "create"
	OpDelete      Op = "delete"
	OpComplete    Op = "complete"
	OpReopen      Op = "reopen"
	OpPriority    Op = "priority"
	OpDescription Op = "description"
	OpReorder     Op = "reorder"
)

// Result is the outcome of one operation.
type Result struct {
	Op     Op
	TaskID int64
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Silent reports failures the user should not be alerted about, such as
// submitting an empty title.
func (r Result) Silent() bool {
	return errors.Is(r.Err, ErrEmptyTitle)
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s failed: %v", r.Op, r.Err)
	}
	if r.TaskID != 0 {
		return fmt.Sprintf("%s #%d", r.Op, r.TaskID)
	}
	return string(r.Op)
}

type Controller struct {
	api API
	log *logrus.Entry
	now func() time.Time

	// opMu serialises store calls so the store sees mutations in the order
	// they were issued.
	opMu sync.Mutex

	mu        sync.RWMutex
	list      *tasklist.List
	listeners []func(Result)
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) { c.log = log }
}

func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:  api,
		log:  logrus.NewEntry(logrus.StandardLogger()),
		now:  time.Now,
		list: tasklist.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to receive every Result. Listeners run on the
// goroutine that performed the operation.
func (c *Controller) Subscribe(fn func(Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Tasks returns the confirmed tasks in display order.
func (c *Controller) Tasks() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Tasks()
}

func (c *Controller) Task(id int64) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Get(id)
}

func (c *Controller) finish(r Result) Result {
	entry := c.log.WithFields(logrus.Fields{"op": r.Op, "task_id": r.TaskID})
	switch {
	case r.OK():
		entry.Debug("operation confirmed")
	case r.Silent():
		entry.WithError(r.Err).Debug("operation skipped")
	default:
		entry.WithError(r.Err).Error("operation failed")
	}

	c.mu.RLock()
	listeners := make([]func(Result), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(r)
	}
	return r
}

// mutate applies fn to the list under the write lock.
func (c *Controller) mutate(fn func(l *tasklist.List)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.list)
}

// Load replaces the list with the store's tasks, sorted by priority.
func (c *Controller) Load(ctx context.Context) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	tasks, err := c.api.ListTasks(ctx)
	if err != nil {
		return c.finish(Result{Op: OpLoad, Err: err})
	}
	c.mutate(func(l *tasklist.List) {
		l.Replace(tasks)
		l.Sort()
	})
	return c.finish(Result{Op: OpLoad})
}

// Create adds a task with the default priority and today's date. An empty
// title (after trimming) is rejected with ErrEmptyTitle without a store call.
func (c *Controller) Create(ctx context.Context, title, description string) Result {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return c.finish(Result{Op: OpCreate, Err: ErrEmptyTitle})
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	created, err := c.api.CreateTask(ctx, models.NewTask{
		Task:        title,
		Description: description,
		TaskDate:    c.now().Format(time.DateOnly),
		Priority:    models.PriorityLow,
	})
	if err != nil {
		return c.finish(Result{Op: OpCreate, Err: err})
	}
	c.mutate(func(l *tasklist.List) {
		l.Append(*created)
		l.Sort()
	})
	return c.finish(Result{Op: OpCreate, TaskID: created.ID})
}

// Delete removes a task and renumbers the rest.
func (c *Controller) Delete(ctx context.Context, id int64) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, ok := c.Task(id); !ok {
		return c.finish(Result{Op: OpDelete, TaskID: id, Err: ErrUnknownTask})
	}
	if err := c.api.DeleteTask(ctx, id); err != nil {
		return c.finish(Result{Op: OpDelete, TaskID: id, Err: err})
	}
	c.mutate(func(l *tasklist.List) {
		l.Remove(id)
		l.Sort()
	})
	return c.finish(Result{Op: OpDelete, TaskID: id})
}

// SetCompleted marks a task completed or open. The store's status flag is
// true for open tasks, so completing sends status=false.
func (c *Controller) SetCompleted(ctx context.Context, id int64, done bool) Result {
	op := OpReopen
	if done {
		op = OpComplete
	}
	status := !done
	return c.update(ctx, op, id, models.TaskPatch{Status: &status}, false)
}

// SetPriority moves a task to another band and re-sorts the list.
func (c *Controller) SetPriority(ctx context.Context, id int64, p models.Priority) Result {
	if !p.Valid() {
		return c.finish(Result{Op: OpPriority, TaskID: id, Err: fmt.Errorf("%w: %q", ErrBadPriority, p)})
	}
	return c.update(ctx, OpPriority, id, models.TaskPatch{Priority: &p}, true)
}

// EditDescription replaces a task's description with the trimmed text.
func (c *Controller) EditDescription(ctx context.Context, id int64, text string) Result {
	text = strings.TrimSpace(text)
	return c.update(ctx, OpDescription, id, models.TaskPatch{Description: &text}, false)
}

func (c *Controller) update(ctx context.Context, op Op, id int64, patch models.TaskPatch, resort bool) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, ok := c.Task(id); !ok {
		return c.finish(Result{Op: op, TaskID: id, Err: ErrUnknownTask})
	}
	if _, err := c.api.UpdateTask(ctx, id, patch); err != nil {
		return c.finish(Result{Op: op, TaskID: id, Err: err})
	}
	// Only the patched fields are applied. The response may describe a
	// store that changed concurrently, which a reload picks up.
	c.mutate(func(l *tasklist.List) {
		l.Update(id, patch.Apply)
		if resort {
			l.Sort()
		}
	})
	return c.finish(Result{Op: op, TaskID: id})
}

// Reorder reports order, the visual top-to-bottom order after dragged was
// dropped, to the store. Once confirmed the list takes that order and is
// re-sorted by priority, so manual order survives only inside a band.
func (c *Controller) Reorder(ctx context.Context, dragged int64, order []int64) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	// All list changes hold opMu, so the list cannot move under us here.
	check := tasklist.New(c.Tasks()...)
	if err := check.Reorder(order); err != nil {
		return c.finish(Result{Op: OpReorder, TaskID: dragged, Err: fmt.Errorf("%w: %v", ErrOrderMismatch, err)})
	}

	update := models.OrderUpdate{TaskID: dragged, NewOrder: append([]int64(nil), order...)}
	if err := c.api.UpdateOrder(ctx, update); err != nil {
		return c.finish(Result{Op: OpReorder, TaskID: dragged, Err: err})
	}

	c.mutate(func(l *tasklist.List) {
		l.Replace(check.Tasks())
		l.Sort()
	})
	return c.finish(Result{Op: OpReorder, TaskID: dragged})
}

// Move is a convenience for non-pointer front ends: it drops task id before
// the row currently at position before (0-based, among the other rows).
func (c *Controller) Move(ctx context.Context, id int64, before int) Result {
	c.mu.RLock()
	ids := c.list.IDs()
	_, ok := c.list.Get(id)
	c.mu.RUnlock()
	if !ok {
		return c.finish(Result{Op: OpReorder, TaskID: id, Err: ErrUnknownTask})
	}
	return c.Reorder(ctx, id, tasklist.DropOrder(ids, id, before))
}
