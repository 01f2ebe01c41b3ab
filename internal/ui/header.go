package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the banner printed at the start of a command: title, command
// path and the parameters the command runs with.
type Header struct {
	Title   string            // e.g., "RESOLVE LINK"
	Command string            // e.g., "tappctl link"
	Params  map[string]string // e.g., {"Environment": "sandbox"}
	Width   int
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params map[string]string) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string. Params are listed in key
// order so output is stable between runs.
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)

	content := top
	if len(h.Params) > 0 {
		dividerWidth := width - 6
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", dividerWidth))

		keyWidth := 0
		for key := range h.Params {
			keyWidth = max(keyWidth, lipgloss.Width(key))
		}

		var lines []string
		for _, key := range sortedKeys(h.Params) {
			pad := strings.Repeat(" ", keyWidth-lipgloss.Width(key))
			lines = append(lines, HeaderParamKeyStyle.Render(key+":")+pad+" "+HeaderParamValueStyle.Render(h.Params[key]))
		}
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
