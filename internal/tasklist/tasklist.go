// Package tasklist holds the client-side ordered collection of tasks.
package tasklist

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/nick-dorsch/todolist/pkg/models"
)

// List is an ordered collection of tasks. The order of the slice is the
// display order. List is not safe for concurrent use.
//
// Besides the display order the list remembers the manual order: the order
// the tasks were loaded, appended or dropped in, which is the order the store
// keeps as task positions. Sort breaks ties within a band by manual order, so
// the display after a priority change matches what a reload returns.
type List struct {
	tasks []models.Task
	seq   map[int64]int
	next  int
}

func New(tasks ...models.Task) *List {
	l := &List{}
	l.Replace(tasks)
	return l
}

// resequence makes the current display order the manual order.
func (l *List) resequence() {
	l.seq = make(map[int64]int, len(l.tasks))
	for i, t := range l.tasks {
		l.seq[t.ID] = i
	}
	l.next = len(l.tasks)
}

func (l *List) Len() int {
	return len(l.tasks)
}

// Tasks returns a copy of the tasks in display order.
func (l *List) Tasks() []models.Task {
	return slices.Clone(l.tasks)
}

// Replace discards the current contents. The order of tasks becomes the
// manual order.
func (l *List) Replace(tasks []models.Task) {
	l.tasks = slices.Clone(tasks)
	l.resequence()
}

func (l *List) Index(id int64) int {
	return slices.IndexFunc(l.tasks, func(t models.Task) bool { return t.ID == id })
}

func (l *List) Get(id int64) (models.Task, bool) {
	i := l.Index(id)
	if i < 0 {
		return models.Task{}, false
	}
	return l.tasks[i], true
}

// IDs returns the task ids in display order.
func (l *List) IDs() []int64 {
	ids := make([]int64, len(l.tasks))
	for i, t := range l.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Append adds t at the end of the manual order.
func (l *List) Append(t models.Task) {
	l.tasks = append(l.tasks, t)
	l.seq[t.ID] = l.next
	l.next++
}

// Remove deletes the task with the given id and reports whether it existed.
func (l *List) Remove(id int64) bool {
	i := l.Index(id)
	if i < 0 {
		return false
	}
	l.tasks = slices.Delete(l.tasks, i, i+1)
	delete(l.seq, id)
	return true
}

// Update applies fn to the stored task with the given id.
func (l *List) Update(id int64, fn func(*models.Task)) bool {
	i := l.Index(id)
	if i < 0 {
		return false
	}
	fn(&l.tasks[i])
	return true
}

// Sort orders tasks by priority band, high first. Tasks in the same band
// follow the manual order.
func (l *List) Sort() {
	slices.SortStableFunc(l.tasks, func(a, b models.Task) int {
		if d := a.Priority.Rank() - b.Priority.Rank(); d != 0 {
			return d
		}
		return l.seq[a.ID] - l.seq[b.ID]
	})
}

// Move places the task with the given id at index, shifting the rest.
// index is clamped to the list bounds. The result becomes the manual order.
func (l *List) Move(id int64, index int) bool {
	from := l.Index(id)
	if from < 0 {
		return false
	}
	t := l.tasks[from]
	l.tasks = slices.Delete(l.tasks, from, from+1)
	index = max(0, min(index, len(l.tasks)))
	l.tasks = slices.Insert(l.tasks, index, t)
	l.resequence()
	return true
}

// Reorder rearranges the list to match ids, which must be a permutation of
// the current ids. The result becomes the manual order.
func (l *List) Reorder(ids []int64) error {
	if len(ids) != len(l.tasks) {
		return fmt.Errorf("reorder: got %d ids for %d tasks", len(ids), len(l.tasks))
	}
	byID := make(map[int64]models.Task, len(l.tasks))
	for _, t := range l.tasks {
		byID[t.ID] = t
	}
	ordered := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return fmt.Errorf("reorder: unknown or repeated task id %d", id)
		}
		delete(byID, id)
		ordered = append(ordered, t)
	}
	l.tasks = ordered
	l.resequence()
	return nil
}

// Label is the display number for the row at index i.
func Label(i int) string {
	return strconv.Itoa(i+1) + "."
}
