package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nick-dorsch/todolist/pkg/models"
)

// Line offsets inside a rendered row.
const (
	LineTitle       = 0
	LineDescription = 1
	LineActions     = 2
	LineOptions     = 3
)

type Action string

const (
	ActionNone     Action = ""
	ActionDelete   Action = "delete"
	ActionToggle   Action = "toggle"
	ActionPriority Action = "priority"
)

var (
	rowTextColor  = lipgloss.Color("#1E1E1E")
	focusMarker   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dropMarker    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Render("▶ ")
	buttonStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#34495E"))
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle      = lipgloss.NewStyle().Italic(true)
)

// Row is everything needed to draw one task.
type Row struct {
	Label    string
	Task     models.Task
	Focused  bool
	Expanded bool
	Dropdown bool
	// DropdownCursor indexes models.Priorities.
	DropdownCursor int
	Dragging       bool
	// DropAbove and DropBelow mark where a dragged row would land.
	DropAbove bool
	DropBelow bool
	// Editor replaces the description line while the description is being
	// edited.
	Editor string
}

// RowHeight is the number of lines a row occupies.
func RowHeight(expanded, dropdown bool) int {
	h := 2
	if expanded {
		h++
		if dropdown {
			h += len(models.Priorities)
		}
	}
	return h
}

func (r Row) Height() int {
	return RowHeight(r.Expanded, r.Dropdown)
}

// Lines renders the row as exactly Height() lines, each at most width
// cells wide. Text longer than the row is cut with an ellipsis; a styled
// Width would wrap it onto extra lines and break hit-testing.
func (r Row) Lines(width int) []string {
	inner := max(width-2, 1)
	fit := func(s string) string {
		return ansi.Truncate(s, inner, "…")
	}
	base := lipgloss.NewStyle().
		Width(inner).
		MaxHeight(1).
		Foreground(rowTextColor).
		Background(lipgloss.Color(r.Task.Priority.Color()))
	if r.Task.Completed() {
		base = base.Strikethrough(true).Faint(true)
	}
	if r.Dragging {
		base = base.Reverse(true)
	}

	marker := "  "
	switch {
	case r.DropAbove:
		marker = dropMarker
	case r.Focused:
		marker = focusMarker.Render("> ")
	}
	pad := "  "

	title := base.Bold(true).Render(fit(fmt.Sprintf("%s %s", r.Label, oneLine(r.Task.Task))))

	var desc string
	switch {
	case r.Editor != "":
		desc = ansi.Truncate(r.Editor, inner, "")
	case r.Task.Description == "":
		desc = base.Inherit(dimStyle).Render(fit("   (no description)"))
	default:
		desc = base.Render(fit("   " + oneLine(r.Task.Description)))
	}

	lines := []string{marker + title, pad + desc}
	if r.Expanded {
		lines = append(lines, r.panelLines(inner, pad)...)
	}
	if r.DropBelow {
		last := len(lines) - 1
		lines[last] = dropMarker + lines[last][len(pad):]
	}
	return lines
}

func (r Row) panelLines(inner int, pad string) []string {
	var lines []string

	lines = append(lines, pad+ansi.Truncate(actionsLine(r.Task), inner, ""))
	if r.Dropdown {
		for i, p := range models.Priorities {
			style := optionStyle
			cursor := "  "
			if i == r.DropdownCursor {
				style = selectedStyle
				cursor = "> "
			}
			swatch := lipgloss.NewStyle().Background(lipgloss.Color(p.Color())).Render("  ")
			lines = append(lines, pad+ansi.Truncate("     "+style.Render(cursor)+swatch+" "+style.Render(p.Label()), inner, ""))
		}
	}
	return lines
}

type button struct {
	action Action
	label  string
}

func buttons(t models.Task) []button {
	toggle := "[c] Complete"
	if t.Completed() {
		toggle = "[c] Incomplete"
	}
	return []button{
		{ActionDelete, "[d] Delete"},
		{ActionToggle, toggle},
		{ActionPriority, "[p] Priority: " + t.Priority.Label()},
	}
}

const buttonGap = 1

func actionsLine(t models.Task) string {
	out := "   "
	for i, b := range buttons(t) {
		if i > 0 {
			out += " "
		}
		out += buttonStyle.Render(b.label)
	}
	return out
}

// ActionAt returns the button under column x of the actions line, where x
// counts from the start of the row including the focus marker.
func ActionAt(t models.Task, x int) Action {
	pos := 2 + 3 // padding, indent
	for _, b := range buttons(t) {
		w := lipgloss.Width(b.label)
		if x >= pos && x < pos+w {
			return b.action
		}
		pos += w + buttonGap
	}
	return ActionNone
}

// oneLine keeps rows at a fixed height.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
