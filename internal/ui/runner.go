package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// RunnerConfig holds configuration for a command execution
type RunnerConfig struct {
	Title           string            // Command title (e.g., "Resolve Link")
	Command         string            // Full command (e.g., "tappctl link")
	Params          map[string]string // Parameters to display in header
	StepNames       []string          // Names for each step; empty disables the step list
	Troubleshooting []string          // Tips shown when the operation fails
	Output          io.Writer         // Output writer (default: os.Stdout)
	Width           int               // Render width (default: terminal width)
}

// Runner orchestrates the header → steps → result flow of a command.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	out      io.Writer
	mu       sync.Mutex
	width    int
}

// NewRunner creates a new runner for a command
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := config.Width
	if width == 0 {
		width = GetTerminalWidth()
	}

	r := &Runner{
		config: config,
		header: NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		out:    config.Output,
		width:  width,
	}
	if len(config.StepNames) > 0 {
		r.progress = NewProgress("", len(config.StepNames)).SetWidth(width).SetStepNames(config.StepNames)
	}
	return r
}

// Operation is the work a Runner wraps. It reports steps through onStep
// and returns the details shown in the success box.
type Operation func(ctx context.Context, onStep StepCallback) (map[string]string, error)

// Run prints the header, executes op and prints the result box.
func (r *Runner) Run(ctx context.Context, op Operation) (map[string]string, error) {
	start := time.Now()

	fmt.Fprintln(r.out, r.header.Render())
	fmt.Fprintln(r.out)

	details, err := op(ctx, r.onStep)
	r.skipPending(err)
	duration := time.Since(start).Round(time.Millisecond)

	fmt.Fprintln(r.out)
	if err != nil {
		result := NewFailureResult(r.config.Title+" failed", err, r.config.Troubleshooting)
		fmt.Fprintln(r.out, result.SetWidth(r.width).Render())
		return nil, err
	}

	result := NewSuccessResult(r.config.Title+" complete", nil).SetWidth(r.width)
	for k, v := range details {
		result.AddDetail(k, v)
	}
	result.AddDetail("Duration", duration.String())
	fmt.Fprintln(r.out, result.Render())
	return details, nil
}

// onStep prints finished steps. Steps are reported from the bootstrap
// goroutine, so printing is serialized.
func (r *Runner) onStep(stepNumber int, name string, status StepStatus, message string) {
	if r.progress == nil {
		return
	}
	if name != "" {
		r.progress.SetStepName(stepNumber, name)
	}
	step, ok := r.progress.UpdateStep(stepNumber, status, message)
	if !ok {
		return
	}
	r.printStep(step)
}

func (r *Runner) printStep(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := renderStepLine(step, len(r.config.StepNames))
	if step.Status == StepRunning {
		fmt.Fprint(r.out, line+"\r")
		return
	}
	fmt.Fprintln(r.out, line)
}

// skipPending marks steps that never reported as skipped. A client that
// is already bootstrapped skips both phases without calling its hook.
func (r *Runner) skipPending(err error) {
	if r.progress == nil || err != nil {
		return
	}
	for _, step := range r.progress.Steps() {
		if step.Status == StepPending {
			if s, ok := r.progress.UpdateStep(step.Number, StepSkipped, "cached"); ok {
				r.printStep(s)
			}
		}
	}
}

// Progress returns the step tracker, or nil when the runner has no steps.
func (r *Runner) Progress() *Progress {
	return r.progress
}
