package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step represents a single step in a multi-step operation
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // Optional note (e.g., "cached", "412ms")
}

// Progress tracks a bar and step list. It is safe for concurrent use since
// steps are reported from background goroutines.
type Progress struct {
	Label     string
	ShowBar   bool
	ShowSteps bool

	mu      sync.Mutex
	steps   []Step
	current int
	percent float64
	width   int
	bar     progress.Model
}

// NewProgress creates a new progress display
func NewProgress(label string, totalSteps int) *Progress {
	steps := make([]Step, totalSteps)
	for i := range steps {
		steps[i] = Step{Number: i + 1, Status: StepPending}
	}

	p := &Progress{
		Label:     label,
		ShowBar:   true,
		ShowSteps: true,
		steps:     steps,
	}
	p.SetWidth(GetTerminalWidth())
	return p
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.width = width
	barWidth := min(max(width-20, 20), 50)
	p.bar = progress.New(
		progress.WithGradient(string(PrimaryColor), string(SuccessColor)),
		progress.WithWidth(barWidth),
	)
	return p
}

// SetStepNames sets the names for all steps
func (p *Progress) SetStepNames(names []string) *Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, name := range names {
		if i < len(p.steps) {
			p.steps[i].Name = name
		}
	}
	return p
}

// SetStepName renames one step. Out of range step numbers are ignored.
func (p *Progress) SetStepName(stepNumber int, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stepNumber >= 1 && stepNumber <= len(p.steps) {
		p.steps[stepNumber-1].Name = name
	}
}

// Steps returns a snapshot of the step list.
func (p *Progress) Steps() []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Step(nil), p.steps...)
}

// Percent returns the share of finished steps, between 0 and 1.
func (p *Progress) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

// UpdateStep updates a step's status and note and returns the updated step.
// Out of range step numbers are ignored.
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stepNumber < 1 || stepNumber > len(p.steps) {
		return Step{}, false
	}
	step := &p.steps[stepNumber-1]
	step.Status = status
	step.Message = message

	switch status {
	case StepRunning:
		p.current = stepNumber
	case StepComplete, StepFailed, StepSkipped:
		finished := 0
		for _, s := range p.steps {
			if s.Status == StepComplete || s.Status == StepSkipped {
				finished++
			}
		}
		p.percent = float64(finished) / float64(len(p.steps))
	}
	return *step, true
}

// StartStep marks a step as running
func (p *Progress) StartStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepRunning, message)
}

// CompleteStep marks a step as complete
func (p *Progress) CompleteStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepComplete, message)
}

// FailStep marks a step as failed
func (p *Progress) FailStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepFailed, message)
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}
	if p.ShowBar {
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]",
			p.bar.ViewAs(p.percent), p.percent*100, p.current, len(p.steps))))
		b.WriteString("\n\n")
	}
	if p.ShowSteps {
		lines := make([]string, 0, len(p.steps))
		for _, step := range p.steps {
			lines = append(lines, renderStepLine(step, len(p.steps)))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// renderStepLine renders "[n/total] name  marker  (note)".
func renderStepLine(step Step, total int) string {
	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, total)
	b.WriteString(style.Render(step.Name))
	b.WriteString(strings.Repeat(" ", max(36-lipgloss.Width(step.Name), 1)))
	b.WriteString(style.Render(marker))
	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// StepCallback is the function signature for step progress updates.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)

// Bootstrap phase names, as reported by the client's phase hook.
const (
	PhaseSecrets = "secrets"
	PhaseService = "service"
)

// BootstrapSteps names the steps a client bootstrap reports.
var BootstrapSteps = []string{"Fetch app secrets", "Initialize attribution service"}

// PhaseReporter adapts a client phase hook to a StepCallback. Phases other
// than the two bootstrap phases are ignored.
func PhaseReporter(onStep StepCallback) func(phase string, done bool, err error) {
	return func(phase string, done bool, err error) {
		var n int
		switch phase {
		case PhaseSecrets:
			n = 1
		case PhaseService:
			n = 2
		default:
			return
		}

		switch {
		case !done:
			onStep(n, BootstrapSteps[n-1], StepRunning, "")
		case err != nil:
			onStep(n, BootstrapSteps[n-1], StepFailed, err.Error())
		default:
			onStep(n, BootstrapSteps[n-1], StepComplete, "")
		}
	}
}
