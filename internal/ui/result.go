package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is the boxed outcome printed at the end of a command.
type Result struct {
	Type            ResultType
	Title           string            // e.g., "Link resolved"
	Details         map[string]string // Key-value details, rendered in key order
	Error           error             // Error (for failure results)
	Troubleshooting []string          // Tips (for failure results)
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair. Empty values are skipped.
func (r *Result) AddDetail(key, value string) *Result {
	if value == "" {
		return r
	}
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{""}
	switch r.Type {
	case ResultFailure:
		lines = append(lines, ErrorTitleStyle.Render("   "+FailureMarker+"  FAILED  ─  "+r.Title), "")
		if r.Error != nil {
			lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
		}
		if len(r.Troubleshooting) > 0 {
			lines = append(lines, r.renderTroubleshooting(width), "")
		}
	case ResultWarning:
		lines = append(lines, WarningTitleStyle.Render("   "+WarningMarker+"  WARNING  ─  "+r.Title), "")
		lines = append(lines, r.renderDetails()...)
	default:
		lines = append(lines, SuccessTitleStyle.Render("   "+SuccessMarker+"  SUCCESS  ─  "+r.Title), "")
		lines = append(lines, r.renderDetails()...)
	}

	color := SuccessColor
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
	case ResultWarning:
		color = WarningColor
	}
	return boxStyle(width, color).Render(strings.Join(lines, "\n"))
}

func (r *Result) renderDetails() []string {
	if len(r.Details) == 0 {
		return nil
	}
	var lines []string
	for _, key := range sortedKeys(r.Details) {
		lines = append(lines, ResultKeyStyle.Render("   "+key+":")+" "+ResultValueStyle.Render(r.Details[key]))
	}
	return append(lines, "")
}

func (r *Result) renderTroubleshooting(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12
	if innerWidth < 40 {
		innerWidth = 40
	}
	return boxStyle(innerWidth, MutedColor).
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
