package controller

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nick-dorsch/todolist/internal/logging"
	"github.com/nick-dorsch/todolist/internal/tasklist"
	"github.com/nick-dorsch/todolist/pkg/models"
)

// fakeAPI is an in-memory store that records every call.
type fakeAPI struct {
	mu      sync.Mutex
	tasks   []models.Task
	nextID  int64
	fail    error
	created []models.NewTask
	patches map[int64][]models.TaskPatch
	deleted []int64
	orders  []models.OrderUpdate
}

func newFakeAPI(tasks ...models.Task) *fakeAPI {
	return &fakeAPI{tasks: tasks, nextID: 100, patches: make(map[int64][]models.TaskPatch)}
}

func (f *fakeAPI) ListTasks(ctx context.Context) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return slices.Clone(f.tasks), nil
}

func (f *fakeAPI) CreateTask(ctx context.Context, t models.NewTask) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.created = append(f.created, t)
	f.nextID++
	task := models.Task{ID: f.nextID, Task: t.Task, Description: t.Description, TaskDate: t.TaskDate, Priority: t.Priority, Status: true}
	f.tasks = append(f.tasks, task)
	return &task, nil
}

func (f *fakeAPI) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.patches[id] = append(f.patches[id], patch)
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			patch.Apply(&f.tasks[i])
			t := f.tasks[i]
			return &t, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeAPI) DeleteTask(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) UpdateOrder(ctx context.Context, order models.OrderUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeAPI) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

func newController(t *testing.T, api *fakeAPI) *Controller {
	t.Helper()
	c := New(api, WithClock(fixedNow), WithLogger(logging.Discard()))
	if r := c.Load(context.Background()); !r.OK() {
		t.Fatalf("Load failed: %v", r.Err)
	}
	return c
}

func ids(tasks []models.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestLoadSortsByPriority(t *testing.T) {
	api := newFakeAPI(
		models.Task{ID: 1, Task: "a", Priority: models.PriorityLow},
		models.Task{ID: 2, Task: "b", Priority: models.PriorityHigh},
		models.Task{ID: 3, Task: "c", Priority: models.PriorityMedium},
	)
	c := newController(t, api)
	if got := ids(c.Tasks()); !slices.Equal(got, []int64{2, 3, 1}) {
		t.Errorf("expected [2 3 1], got %v", got)
	}
}

func TestCreateTrimsAndDefaults(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api)

	r := c.Create(context.Background(), "  Buy milk ", " 2% ")
	if !r.OK() {
		t.Fatalf("Create failed: %v", r.Err)
	}

	sent := api.created[0]
	if sent.Task != "Buy milk" || sent.Description != "2%" {
		t.Errorf("expected trimmed values, got %+v", sent)
	}
	if sent.Priority != models.PriorityLow {
		t.Errorf("expected default priority low, got %s", sent.Priority)
	}
	if sent.TaskDate != "2026-10-18" {
		t.Errorf("expected today's date, got %s", sent.TaskDate)
	}

	tasks := c.Tasks()
	if len(tasks) != 1 || tasks[0].Task != "Buy milk" || tasks[0].Description != "2%" || tasks[0].ID != r.TaskID {
		t.Errorf("unexpected list after create: %+v", tasks)
	}
}

func TestCreateEmptyTitleIsSilent(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api)

	r := c.Create(context.Background(), "   ", "desc")
	if !errors.Is(r.Err, ErrEmptyTitle) || !r.Silent() {
		t.Fatalf("expected silent ErrEmptyTitle, got %v", r.Err)
	}
	if len(api.created) != 0 {
		t.Error("empty title must not reach the store")
	}
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	api := newFakeAPI(
		models.Task{ID: 1, Task: "a", Priority: models.PriorityLow},
		models.Task{ID: 2, Task: "b", Priority: models.PriorityLow},
		models.Task{ID: 3, Task: "c", Priority: models.PriorityLow},
	)
	c := newController(t, api)

	if r := c.Delete(context.Background(), 2); !r.OK() {
		t.Fatalf("Delete failed: %v", r.Err)
	}
	if got := ids(c.Tasks()); !slices.Equal(got, []int64{1, 3}) {
		t.Errorf("expected [1 3], got %v", got)
	}
	if !slices.Equal(api.deleted, []int64{2}) {
		t.Errorf("expected one delete call for 2, got %v", api.deleted)
	}

	if r := c.Delete(context.Background(), 42); !errors.Is(r.Err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", r.Err)
	}
}

func TestSetCompletedSendsOpenFlag(t *testing.T) {
	api := newFakeAPI(models.Task{ID: 1, Task: "a", Priority: models.PriorityLow, Status: true})
	c := newController(t, api)
	ctx := context.Background()

	if r := c.SetCompleted(ctx, 1, true); !r.OK() || r.Op != OpComplete {
		t.Fatalf("complete failed: %+v", r)
	}
	if got := *api.patches[1][0].Status; got != false {
		t.Errorf("completing should send status=false, got %v", got)
	}
	if task, _ := c.Task(1); !task.Completed() {
		t.Error("task should be completed after confirmation")
	}

	if r := c.SetCompleted(ctx, 1, false); !r.OK() || r.Op != OpReopen {
		t.Fatalf("reopen failed: %+v", r)
	}
	if got := *api.patches[1][1].Status; got != true {
		t.Errorf("reopening should send status=true, got %v", got)
	}
	if task, _ := c.Task(1); task.Completed() {
		t.Error("task should be open after reopen")
	}
}

func TestSetPriorityResorts(t *testing.T) {
	api := newFakeAPI(
		models.Task{ID: 1, Task: "a", Priority: models.PriorityLow},
		models.Task{ID: 2, Task: "b", Priority: models.PriorityLow},
	)
	c := newController(t, api)

	if r := c.SetPriority(context.Background(), 2, models.PriorityHigh); !r.OK() {
		t.Fatalf("SetPriority failed: %v", r.Err)
	}
	tasks := c.Tasks()
	if tasks[0].ID != 2 || tasks[0].Priority.Color() != "#E74C3C" {
		t.Errorf("expected task 2 first and red, got %+v", tasks[0])
	}

	if r := c.SetPriority(context.Background(), 2, models.Priority("urgent")); !errors.Is(r.Err, ErrBadPriority) {
		t.Errorf("expected ErrBadPriority, got %v", r.Err)
	}
	if len(api.patches[2]) != 1 {
		t.Error("invalid priority must not reach the store")
	}
}

func TestEditDescription(t *testing.T) {
	api := newFakeAPI(models.Task{ID: 1, Task: "a", Description: "old", Priority: models.PriorityLow})
	c := newController(t, api)

	if r := c.EditDescription(context.Background(), 1, " new text "); !r.OK() {
		t.Fatalf("EditDescription failed: %v", r.Err)
	}
	if task, _ := c.Task(1); task.Description != "new text" {
		t.Errorf("expected trimmed description, got %q", task.Description)
	}
	if got := *api.patches[1][0].Description; got != "new text" {
		t.Errorf("unexpected patch %q", got)
	}
	if api.patches[1][0].Priority != nil || api.patches[1][0].Status != nil {
		t.Error("description edit must only send the description")
	}
}

func TestFailedMutationLeavesListUnchanged(t *testing.T) {
	api := newFakeAPI(
		models.Task{ID: 1, Task: "a", Description: "d", Priority: models.PriorityLow, Status: true},
		models.Task{ID: 2, Task: "b", Priority: models.PriorityMedium, Status: true},
	)
	c := newController(t, api)
	before := c.Tasks()

	boom := errors.New("network down")
	api.setFail(boom)
	ctx := context.Background()

	results := []Result{
		c.Create(ctx, "new", ""),
		c.Delete(ctx, 1),
		c.SetCompleted(ctx, 1, true),
		c.SetPriority(ctx, 1, models.PriorityHigh),
		c.EditDescription(ctx, 1, "changed"),
		c.Reorder(ctx, 1, []int64{1, 2}),
		c.Load(ctx),
	}
	for _, r := range results {
		if !errors.Is(r.Err, boom) {
			t.Errorf("%s: expected network error, got %v", r.Op, r.Err)
		}
	}
	if after := c.Tasks(); !slices.Equal(after, before) {
		t.Errorf("list changed after failures:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSubscribersSeeEveryResult(t *testing.T) {
	api := newFakeAPI(models.Task{ID: 1, Task: "a", Priority: models.PriorityLow})
	c := newController(t, api)

	var got []Result
	c.Subscribe(func(r Result) { got = append(got, r) })

	ctx := context.Background()
	c.EditDescription(ctx, 1, "x")
	api.setFail(errors.New("boom"))
	c.Delete(ctx, 1)

	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if !got[0].OK() || got[0].Op != OpDescription {
		t.Errorf("unexpected first result %+v", got[0])
	}
	if got[1].OK() || got[1].Op != OpDelete || got[1].TaskID != 1 {
		t.Errorf("unexpected second result %+v", got[1])
	}
}

func TestReorderSendsVisualOrderThenSorts(t *testing.T) {
	api := newFakeAPI(
		models.Task{ID: 1, Task: "a", Priority: models.PriorityHigh},
		models.Task{ID: 2, Task: "b", Priority: models.PriorityLow},
		models.Task{ID: 3, Task: "c", Priority: models.PriorityLow},
		models.Task{ID: 4, Task: "d", Priority: models.PriorityLow},
	)
	c := newController(t, api)

	// drop 4 between 1 and 2
	order := tasklist.DropOrder(ids(c.Tasks()), 4, 1)
	if r := c.Reorder(context.Background(), 4, order); !r.OK() {
		t.Fatalf("Reorder failed: %v", r.Err)
	}
	if len(api.orders) != 1 {
		t.Fatalf("expected one order update, got %d", len(api.orders))
	}
	sent := api.orders[0]
	if sent.TaskID != 4 || !slices.Equal(sent.NewOrder, []int64{1, 4, 2, 3}) {
		t.Errorf("unexpected order payload %+v", sent)
	}
	if got := ids(c.Tasks()); !slices.Equal(got, []int64{1, 4, 2, 3}) {
		t.Errorf("expected within-band order kept, got %v", got)
	}

	// drop a low task above the high one: payload follows the drop, list
	// snaps back into bands
	if r := c.Reorder(context.Background(), 3, []int64{3, 1, 4, 2}); !r.OK() {
		t.Fatalf("Reorder failed: %v", r.Err)
	}
	if got := api.orders[1].NewOrder; !slices.Equal(got, []int64{3, 1, 4, 2}) {
		t.Errorf("expected payload in dropped order, got %v", got)
	}
	if got := ids(c.Tasks()); !slices.Equal(got, []int64{1, 3, 4, 2}) {
		t.Errorf("expected [1 3 4 2] after band sort, got %v", got)
	}
}

func TestReorderRejectsMismatchedOrder(t *testing.T) {
	api := newFakeAPI(
		models.Task{ID: 1, Task: "a", Priority: models.PriorityLow},
		models.Task{ID: 2, Task: "b", Priority: models.PriorityLow},
	)
	c := newController(t, api)

	r := c.Reorder(context.Background(), 1, []int64{1, 9})
	if !errors.Is(r.Err, ErrOrderMismatch) {
		t.Fatalf("expected ErrOrderMismatch, got %v", r.Err)
	}
	if len(api.orders) != 0 {
		t.Error("mismatched order must not reach the store")
	}
}

func TestMove(t *testing.T) {
	api := newFakeAPI(
		models.Task{ID: 1, Task: "a", Priority: models.PriorityLow},
		models.Task{ID: 2, Task: "b", Priority: models.PriorityLow},
		models.Task{ID: 3, Task: "c", Priority: models.PriorityLow},
	)
	c := newController(t, api)

	if r := c.Move(context.Background(), 3, 0); !r.OK() {
		t.Fatalf("Move failed: %v", r.Err)
	}
	if got := ids(c.Tasks()); !slices.Equal(got, []int64{3, 1, 2}) {
		t.Errorf("expected [3 1 2], got %v", got)
	}
	if r := c.Move(context.Background(), 7, 0); !errors.Is(r.Err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", r.Err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api)
	ctx := context.Background()

	milk := c.Create(ctx, "Buy milk", "2%")
	if !milk.OK() {
		t.Fatalf("create failed: %v", milk.Err)
	}
	tasks := c.Tasks()
	if len(tasks) != 1 || tasklist.Label(0) != "1." || tasks[0].Task != "Buy milk" {
		t.Fatalf("unexpected list %+v", tasks)
	}
	if tasks[0].Priority.Color() != "#F1C40F" {
		t.Errorf("expected yellow, got %s", tasks[0].Priority.Color())
	}

	second := c.Create(ctx, "Pay rent", "")
	if r := c.SetPriority(ctx, second.TaskID, models.PriorityHigh); !r.OK() {
		t.Fatalf("priority failed: %v", r.Err)
	}
	tasks = c.Tasks()
	if tasks[0].ID != second.TaskID || tasks[1].ID != milk.TaskID {
		t.Errorf("expected high task numbered 1. and milk 2., got %v", ids(tasks))
	}
}

func TestConcurrentMutationsAreSerialised(t *testing.T) {
	api := newFakeAPI(models.Task{ID: 1, Task: "a", Priority: models.PriorityLow})
	c := newController(t, api)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Create(context.Background(), "t", "")
		}()
	}
	wg.Wait()

	if got := len(c.Tasks()); got != 21 {
		t.Errorf("expected 21 tasks, got %d", got)
	}
}
