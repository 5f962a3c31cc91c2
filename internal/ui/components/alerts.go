package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	alertBoxStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	alertTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	alertTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type Alert struct {
	Text string
	At   time.Time
}

// Alerts is the panel of failed operations. The newest alert is shown last
// and only the most recent limit alerts are kept.
type Alerts struct {
	Items []Alert
	Width int
	Title string
	limit int
}

func NewAlerts(width, limit int) *Alerts {
	return &Alerts{
		Width: width,
		Title: "Alerts",
		limit: limit,
	}
}

func (a *Alerts) Add(text string, at time.Time) {
	a.Items = append(a.Items, Alert{Text: text, At: at})
	if a.limit > 0 && len(a.Items) > a.limit {
		a.Items = a.Items[len(a.Items)-a.limit:]
	}
}

func (a *Alerts) Clear() {
	a.Items = nil
}

func (a *Alerts) Len() int {
	return len(a.Items)
}

// View renders nothing while there are no alerts.
func (a *Alerts) View() string {
	if len(a.Items) == 0 {
		return ""
	}

	innerWidth := max(a.Width-4, 0)
	textWidth := max(innerWidth-11, 0)

	var lines []string
	for _, item := range a.Items {
		stamp := alertTimeStyle.Render(item.At.Format("15:04:05"))
		wrapped := lipgloss.NewStyle().Width(textWidth).Render(item.Text)
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				lines = append(lines, fmt.Sprintf("✗ %s %s", stamp, line))
			} else {
				lines = append(lines, fmt.Sprintf("           %s", line))
			}
		}
	}

	body := alertTitleStyle.Render(fmt.Sprintf("%s (%d)", a.Title, len(a.Items))) + "\n" + strings.Join(lines, "\n")
	if a.Width > 0 {
		return alertBoxStyle.Width(a.Width - 2).Render(body)
	}
	return alertBoxStyle.Render(body)
}
