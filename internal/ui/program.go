package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned by Wait when the user presses ctrl+c.
var ErrInterrupted = errors.New("interrupted")

// workDoneMsg carries the result of the work a WaitModel runs.
type workDoneMsg struct{ err error }

// WaitModel is a Bubble Tea model that shows a spinner while work runs in
// the background and quits when it returns.
type WaitModel struct {
	label   string
	spinner spinner.Model
	work    func() error
	err     error
	done    bool
	cancel  context.CancelFunc
}

// NewWaitModel creates a model that runs work behind a labelled spinner.
// cancel, if set, is called when the user interrupts.
func NewWaitModel(label string, work func() error, cancel context.CancelFunc) WaitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return WaitModel{label: label, spinner: s, work: work, cancel: cancel}
}

// Init implements tea.Model
func (m WaitModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return workDoneMsg{err: work()}
	})
}

// Update implements tea.Model
func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m WaitModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + ProgressLabelStyle.UnsetPaddingLeft().Render(m.label) + "\n"
}

// Err returns the error the work finished with.
func (m WaitModel) Err() error {
	return m.err
}

// Wait runs work behind a spinner on a terminal. When out is not a terminal
// the label is printed once and work runs directly.
func Wait(ctx context.Context, out io.Writer, label string, work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := func() error { return work(ctx) }
	if f, ok := out.(*os.File); !ok || f != os.Stdout || !IsTerminal() {
		fmt.Fprintln(out, "  "+label)
		return run()
	}

	final, err := tea.NewProgram(
		NewWaitModel(label, run, cancel),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	).Run()
	if err != nil {
		return err
	}
	return final.(WaitModel).Err()
}

// Printer writes UI components to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the width this printer renders at
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}
