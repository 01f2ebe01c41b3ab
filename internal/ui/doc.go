// Package ui renders the terminal output of the tappctl CLI.
//
// Components follow a "run once and exit" pattern built on Lipgloss:
//
//   - Header: command banner showing operation name and parameters
//   - Progress: bar and step list for the client bootstrap phases
//   - Result: success, failure and warning boxes
//
// Runner ties them together. A command hands it an Operation that reports
// steps through a StepCallback; PhaseReporter turns the client's phase hook
// into such a callback:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Start",
//	    Command:   "tappctl start",
//	    StepNames: ui.BootstrapSteps,
//	})
//	details, err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
//	    client := tapp.New(tapp.WithPhaseHook(ui.PhaseReporter(onStep)))
//	    ...
//	})
//
// Wait shows a Bubble Tea spinner while a blocking call runs, and falls back
// to a single line when stdout is not a terminal.
//
// Logging is controlled by TAPP_LOG_LEVEL. When it is unset zap stays silent
// so the styled output is displayed cleanly.
package ui
