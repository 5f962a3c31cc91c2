package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	itemDescStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
 _            _       _ _     _
| |_ ___   __| | ___ | (_)___| |_
| __/ _ \ / _` + "`" + ` |/ _ \| | / __| __|
| || (_) | (_| | (_) | | \__ \ |_
 \__\___/ \__,_|\___/|_|_|___/\__|
`

// MenuItem is a command offered when todolist runs without one.
type MenuItem struct {
	Command     string
	Description string
}

// MenuItems are the commands that need no arguments, in menu order.
var MenuItems = []MenuItem{
	{"tui", "Open the interactive task board"},
	{"list", "Print tasks in display order"},
	{"serve", "Run the reference API server"},
	{"mcp", "Serve the task list over MCP on stdio"},
	{"init", "Write an example config file"},
}

// MenuModel picks one of MenuItems. Selected is empty when the user quits.
type MenuModel struct {
	items    []MenuItem
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{items: MenuItems}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch s := key.String(); s {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.cursor = (m.cursor + len(m.items) - 1) % len(m.items)

	case "down", "j":
		m.cursor = (m.cursor + 1) % len(m.items)

	case "enter":
		m.selected = m.items[m.cursor].Command
		return m, tea.Quit

	default:
		// Digits jump straight to the numbered entry.
		if len(s) == 1 && s[0] >= '1' && int(s[0]-'0') <= len(m.items) {
			m.cursor = int(s[0] - '1')
			m.selected = m.items[m.cursor].Command
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	width := 0
	for _, item := range m.items {
		width = max(width, len(item.Command))
	}
	for i, item := range m.items {
		label := fmt.Sprintf("%d. %-*s", i+1, width, item.Command)
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + label))
		} else {
			s.WriteString(itemStyle.Render("  " + label))
		}
		s.WriteString("  " + itemDescStyle.Render(item.Description))
		s.WriteString("\n")
	}

	s.WriteString("\n(↑/↓ or j/k to move, enter or 1-" + fmt.Sprint(len(m.items)) + " to run, q to quit)\n")

	return s.String()
}

func (m MenuModel) Selected() string {
	return m.selected
}

// RunMenu shows the menu and returns the chosen command.
func RunMenu() (string, error) {
	p := tea.NewProgram(NewMenuModel())
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
