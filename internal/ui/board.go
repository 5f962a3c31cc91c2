package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nick-dorsch/todolist/internal/controller"
	"github.com/nick-dorsch/todolist/internal/tasklist"
	"github.com/nick-dorsch/todolist/internal/ui/components"
	"github.com/nick-dorsch/todolist/pkg/models"
)

var (
	boardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Padding(0, 2)
)

// listTop is the screen row of the first list line, below the title and a
// blank line.
const listTop = 2

const alertLimit = 5

type resultMsg controller.Result

type dragState struct {
	id     int64
	startY int
	x      int
	line   int
	moved  bool
	before int
}

// Board is the interactive task list.
type Board struct {
	ctl     *controller.Controller
	ctx     context.Context
	results chan controller.Result
	now     func() time.Time

	tasks      []models.Task
	focusID    int64
	expanded   map[int64]bool
	dropdownID int64
	dropCursor int

	editingID int64
	editor    textinput.Model

	adding     bool
	submitting bool
	addField   int
	titleInput textinput.Model
	descInput  textinput.Model

	drag *dragState

	list     *components.Scroller
	alerts   *components.Alerts
	width    int
	height   int
	quitting bool
}

// NewBoard registers the board's single listener on ctl.
func NewBoard(ctx context.Context, ctl *controller.Controller) *Board {
	title := textinput.New()
	title.Placeholder = "Task"
	title.CharLimit = 50
	title.Prompt = "Task: "

	desc := textinput.New()
	desc.Placeholder = "Description"
	desc.Prompt = "Description: "
	desc.CharLimit = 255

	editor := textinput.New()
	editor.Prompt = "   ✎ "
	editor.CharLimit = 255

	b := &Board{
		ctl:        ctl,
		ctx:        ctx,
		results:    make(chan controller.Result, 64),
		now:        time.Now,
		expanded:   make(map[int64]bool),
		editor:     editor,
		titleInput: title,
		descInput:  desc,
		list:       components.NewScroller(80, 20),
		alerts:     components.NewAlerts(80, alertLimit),
		width:      80,
		height:     24,
	}
	ctl.Subscribe(func(r controller.Result) {
		select {
		case b.results <- r:
		case <-ctx.Done():
		}
	})
	b.tasks = ctl.Tasks()
	b.sync()
	return b
}

func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.waitForResult(), b.run(b.ctl.Load))
}

func (b *Board) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-b.results:
			return resultMsg(r)
		case <-b.ctx.Done():
			return nil
		}
	}
}

// run performs op off the UI goroutine. Its Result arrives through the
// listener.
func (b *Board) run(op func(ctx context.Context) controller.Result) tea.Cmd {
	return func() tea.Msg {
		op(b.ctx)
		return nil
	}
}

func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.alerts.Width = msg.Width

	case resultMsg:
		b.applyResult(controller.Result(msg))
		cmds = append(cmds, b.waitForResult())

	case tea.KeyMsg:
		cmds = append(cmds, b.handleKey(msg))

	case tea.MouseMsg:
		cmds = append(cmds, b.handleMouse(msg))
	}

	b.sync()
	if b.quitting {
		return b, tea.Quit
	}
	return b, tea.Batch(cmds...)
}

func (b *Board) applyResult(r controller.Result) {
	b.tasks = b.ctl.Tasks()
	if r.Op == controller.OpCreate {
		b.submitting = false
	}
	if !r.OK() {
		if !r.Silent() {
			b.alerts.Add(r.String(), b.now())
		}
		return
	}
	switch r.Op {
	case controller.OpCreate:
		b.adding = false
		b.titleInput.Reset()
		b.descInput.Reset()
		b.titleInput.Blur()
		b.descInput.Blur()
		b.focusID = r.TaskID
	case controller.OpDelete:
		delete(b.expanded, r.TaskID)
		if b.dropdownID == r.TaskID {
			b.dropdownID = 0
		}
	}
}

func (b *Board) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		b.quitting = true
		return nil
	}

	if b.editingID != 0 {
		return b.handleEditKey(msg)
	}
	if b.adding {
		return b.handleAddKey(msg)
	}
	if b.dropdownID != 0 {
		return b.handleDropdownKey(msg)
	}

	switch msg.String() {
	case "q":
		b.quitting = true
	case "j", "down":
		b.moveFocus(1)
	case "k", "up":
		b.moveFocus(-1)
	case "enter", " ":
		if b.focusID != 0 {
			b.expanded[b.focusID] = !b.expanded[b.focusID]
		}
	case "e":
		if b.focusID != 0 {
			return b.startEdit(b.focusID)
		}
	case "a":
		b.adding = true
		b.addField = 0
		b.descInput.Blur()
		return b.titleInput.Focus()
	case "r":
		return b.run(b.ctl.Load)
	case "x":
		b.alerts.Clear()
	case "d":
		return b.act(b.focusID, components.ActionDelete)
	case "c":
		return b.act(b.focusID, components.ActionToggle)
	case "p":
		return b.act(b.focusID, components.ActionPriority)
	case "pgup", "pgdown":
		return b.list.Update(msg)
	}
	return nil
}

// handleEditKey commits on Enter. Every other key edits the text.
func (b *Board) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEnter {
		id, text := b.editingID, b.editor.Value()
		b.editingID = 0
		b.editor.Blur()
		return b.run(func(ctx context.Context) controller.Result {
			return b.ctl.EditDescription(ctx, id, text)
		})
	}
	var cmd tea.Cmd
	b.editor, cmd = b.editor.Update(msg)
	return cmd
}

func (b *Board) handleAddKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		b.adding = false
		b.titleInput.Blur()
		b.descInput.Blur()
		return nil
	case tea.KeyTab, tea.KeyShiftTab:
		b.addField = 1 - b.addField
		if b.addField == 0 {
			b.descInput.Blur()
			return b.titleInput.Focus()
		}
		b.titleInput.Blur()
		return b.descInput.Focus()
	case tea.KeyEnter:
		// One create in flight at a time. The form closes when it lands.
		if b.submitting {
			return nil
		}
		b.submitting = true
		title, desc := b.titleInput.Value(), b.descInput.Value()
		return b.run(func(ctx context.Context) controller.Result {
			return b.ctl.Create(ctx, title, desc)
		})
	}

	var cmd tea.Cmd
	if b.addField == 0 {
		b.titleInput, cmd = b.titleInput.Update(msg)
	} else {
		b.descInput, cmd = b.descInput.Update(msg)
	}
	return cmd
}

func (b *Board) handleDropdownKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "l":
		return b.pickPriority(models.PriorityLow)
	case "m":
		return b.pickPriority(models.PriorityMedium)
	case "h":
		return b.pickPriority(models.PriorityHigh)
	case "up", "k":
		if b.dropCursor > 0 {
			b.dropCursor--
		}
	case "down", "j":
		if b.dropCursor < len(models.Priorities)-1 {
			b.dropCursor++
		}
	case "enter":
		return b.pickPriority(models.Priorities[b.dropCursor])
	case "esc", "p":
		b.dropdownID = 0
	}
	return nil
}

func (b *Board) pickPriority(p models.Priority) tea.Cmd {
	id := b.dropdownID
	b.dropdownID = 0
	return b.run(func(ctx context.Context) controller.Result {
		return b.ctl.SetPriority(ctx, id, p)
	})
}

// act runs a panel button. Buttons only respond while the panel is open.
func (b *Board) act(id int64, action components.Action) tea.Cmd {
	task, ok := b.task(id)
	if !ok || !b.expanded[id] {
		return nil
	}
	switch action {
	case components.ActionDelete:
		return b.run(func(ctx context.Context) controller.Result {
			return b.ctl.Delete(ctx, id)
		})
	case components.ActionToggle:
		done := !task.Completed()
		return b.run(func(ctx context.Context) controller.Result {
			return b.ctl.SetCompleted(ctx, id, done)
		})
	case components.ActionPriority:
		if b.dropdownID == id {
			b.dropdownID = 0
			return nil
		}
		b.dropdownID = id
		b.dropCursor = max(task.Priority.Rank(), 0)
	}
	return nil
}

func (b *Board) startEdit(id int64) tea.Cmd {
	task, ok := b.task(id)
	if !ok {
		return nil
	}
	b.focusID = id
	b.editingID = id
	b.editor.SetValue(task.Description)
	b.editor.CursorEnd()
	return b.editor.Focus()
}

func (b *Board) handleMouse(msg tea.MouseMsg) tea.Cmd {
	// Edit mode ends only with Enter and the add form owns the input.
	if b.editingID != 0 || b.adding {
		return nil
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		return b.list.Update(msg)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		idx, line, ok := b.hit(msg.Y)
		if !ok {
			return nil
		}
		b.focusID = b.tasks[idx].ID
		b.drag = &dragState{id: b.focusID, startY: msg.Y, x: msg.X, line: line, before: -1}

	case msg.Action == tea.MouseActionMotion && b.drag != nil:
		if msg.Y != b.drag.startY {
			b.drag.moved = true
		}
		if b.drag.moved {
			b.drag.before = b.insertionPoint(msg.Y)
		}

	case msg.Action == tea.MouseActionRelease && b.drag != nil:
		d := b.drag
		b.drag = nil
		if !d.moved {
			return b.click(d.id, d.line, d.x)
		}
		ids := make([]int64, len(b.tasks))
		for i, t := range b.tasks {
			ids[i] = t.ID
		}
		order := tasklist.DropOrder(ids, d.id, b.insertionPoint(msg.Y))
		if slices.Equal(order, ids) {
			return nil
		}
		return b.run(func(ctx context.Context) controller.Result {
			return b.ctl.Reorder(ctx, d.id, order)
		})
	}
	return nil
}

func (b *Board) click(id int64, line, x int) tea.Cmd {
	switch {
	case line == components.LineTitle:
		b.expanded[id] = !b.expanded[id]
		if !b.expanded[id] && b.dropdownID == id {
			b.dropdownID = 0
		}
	case line == components.LineDescription:
		return b.startEdit(id)
	case line == components.LineActions:
		task, _ := b.task(id)
		return b.act(id, components.ActionAt(task, x))
	case line >= components.LineOptions && b.dropdownID == id:
		b.dropCursor = line - components.LineOptions
		return b.pickPriority(models.Priorities[b.dropCursor])
	}
	return nil
}

// rowHeights follows the committed order.
func (b *Board) rowHeights() []int {
	heights := make([]int, len(b.tasks))
	for i, t := range b.tasks {
		heights[i] = components.RowHeight(b.expanded[t.ID], b.dropdownID == t.ID)
	}
	return heights
}

// contentY maps a screen row to a list line.
func (b *Board) contentY(y int) int {
	return y - listTop + b.list.YOffset()
}

func (b *Board) hit(y int) (idx, line int, ok bool) {
	if y < listTop || y >= listTop+b.list.Height() {
		return 0, 0, false
	}
	cy := b.contentY(y)
	top := 0
	for i, h := range b.rowHeights() {
		if cy >= top && cy < top+h {
			return i, cy - top, true
		}
		top += h
	}
	return 0, 0, false
}

// insertionPoint measures the rows other than the dragged one where they
// are drawn and returns the drop position among them.
func (b *Board) insertionPoint(y int) int {
	var boxes []tasklist.Box
	top := 0
	for i, h := range b.rowHeights() {
		if b.tasks[i].ID != b.drag.id {
			boxes = append(boxes, tasklist.Box{Top: top, Height: h})
		}
		top += h
	}
	return tasklist.InsertionPoint(boxes, b.contentY(y))
}

func (b *Board) moveFocus(direction int) {
	if len(b.tasks) == 0 {
		return
	}
	idx := b.focusIndex()
	if idx == -1 {
		b.focusID = b.tasks[0].ID
		return
	}
	idx = (idx + direction + len(b.tasks)) % len(b.tasks)
	b.focusID = b.tasks[idx].ID
}

func (b *Board) focusIndex() int {
	for i, t := range b.tasks {
		if t.ID == b.focusID {
			return i
		}
	}
	return -1
}

func (b *Board) task(id int64) (models.Task, bool) {
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (b *Board) formView() string {
	if !b.adding {
		return ""
	}
	body := b.titleInput.View() + "\n" + b.descInput.View()
	return formStyle.Width(max(b.width-2, 10)).Render(body)
}

// sync keeps focus on an existing task and lays out the list for the
// current size.
func (b *Board) sync() {
	if b.focusIndex() == -1 {
		b.focusID = 0
		if len(b.tasks) > 0 {
			b.focusID = b.tasks[0].ID
		}
	}

	form := b.formView()
	alerts := b.alerts.View()
	used := listTop + 1 // help line
	if form != "" {
		used += lipgloss.Height(form)
	}
	if alerts != "" {
		used += lipgloss.Height(alerts)
	}
	b.list.SetSize(b.width, b.height-used)

	lines, focusTop, focusBottom := b.rowLines()
	b.list.SetLines(lines)
	if b.drag == nil && focusBottom > focusTop {
		b.list.Reveal(focusTop, focusBottom)
	}
}

func (b *Board) rowLines() (lines []string, focusTop, focusBottom int) {
	if len(b.tasks) == 0 {
		return []string{emptyStyle.Render("No tasks yet. Press a to add one.")}, 0, 0
	}

	width := b.list.ContentWidth()
	dropAt := -1
	if b.drag != nil && b.drag.moved {
		dropAt = b.drag.before
	}

	others := 0
	lastOther := -1
	for i, t := range b.tasks {
		if b.drag == nil || t.ID != b.drag.id {
			lastOther = i
		}
	}

	for i, t := range b.tasks {
		row := components.Row{
			Label:          tasklist.Label(i),
			Task:           t,
			Focused:        t.ID == b.focusID,
			Expanded:       b.expanded[t.ID],
			Dropdown:       b.dropdownID == t.ID,
			DropdownCursor: b.dropCursor,
		}
		if t.ID == b.editingID {
			row.Editor = b.editor.View()
		}
		if b.drag != nil && t.ID == b.drag.id {
			row.Dragging = b.drag.moved
		} else {
			row.DropAbove = dropAt == others
			row.DropBelow = i == lastOther && dropAt == others+1
			others++
		}

		if row.Focused {
			focusTop = len(lines)
		}
		lines = append(lines, row.Lines(width)...)
		if row.Focused {
			focusBottom = len(lines)
		}
	}
	return lines, focusTop, focusBottom
}

func (b *Board) View() string {
	if b.quitting {
		return ""
	}

	var s strings.Builder

	done := 0
	for _, t := range b.tasks {
		if t.Completed() {
			done++
		}
	}
	s.WriteString(boardTitleStyle.Render("Todo list"))
	s.WriteString(statsStyle.Render(fmt.Sprintf(" %d tasks, %d done", len(b.tasks), done)))
	s.WriteString("\n\n")

	s.WriteString(b.list.View())
	s.WriteString("\n")

	if form := b.formView(); form != "" {
		s.WriteString(form)
		s.WriteString("\n")
	}
	if alerts := b.alerts.View(); alerts != "" {
		s.WriteString(alerts)
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render(b.help()))
	return s.String()
}

func (b *Board) help() string {
	switch {
	case b.editingID != 0:
		return "enter: save description"
	case b.adding:
		return "tab: switch field • enter: add • esc: cancel"
	case b.dropdownID != 0:
		return "l/m/h or ↑/↓+enter: set priority • esc: close"
	case b.expanded[b.focusID]:
		return "d: delete • c: complete • p: priority • e: edit • enter: close • q: quit"
	default:
		return "j/k: move • enter: actions • e: edit • a: add • drag: reorder • r: reload • x: clear alerts • q: quit"
	}
}

// RunBoard shows the board until the user quits.
func RunBoard(ctx context.Context, ctl *controller.Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewBoard(ctx, ctl), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
