package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// Scroller shows pre-rendered lines in a viewport with a scrollbar in the
// last column.
type Scroller struct {
	viewport viewport.Model
	ready    bool
}

func NewScroller(width, height int) *Scroller {
	s := &Scroller{}
	s.SetSize(width, height)
	return s
}

// ContentWidth is the width available to content, one column narrower than
// the scroller for the scrollbar.
func (s *Scroller) ContentWidth() int {
	return s.viewport.Width
}

func (s *Scroller) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	height = max(height, 1)
	if !s.ready {
		s.viewport = viewport.New(vpWidth, height)
		s.viewport.MouseWheelEnabled = true
		s.ready = true
		return
	}
	s.viewport.Width = vpWidth
	s.viewport.Height = height
}

func (s *Scroller) SetLines(lines []string) {
	s.viewport.SetContent(strings.Join(lines, "\n"))
}

// YOffset is the first content line shown.
func (s *Scroller) YOffset() int {
	return s.viewport.YOffset
}

func (s *Scroller) Height() int {
	return s.viewport.Height
}

// Reveal scrolls the minimum amount so lines top to bottom (exclusive) are
// visible.
func (s *Scroller) Reveal(top, bottom int) {
	h := s.viewport.Height
	switch {
	case top < s.viewport.YOffset:
		s.viewport.SetYOffset(top)
	case bottom > s.viewport.YOffset+h:
		s.viewport.SetYOffset(bottom - h)
	}
}

func (s *Scroller) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return cmd
}

func (s *Scroller) View() string {
	if !s.ready {
		return ""
	}

	if s.viewport.TotalLineCount() <= s.viewport.Height {
		return s.viewport.View()
	}

	h := s.viewport.Height
	handlePos := int(float64(h-1) * s.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, s.viewport.View(), sb.String())
}
