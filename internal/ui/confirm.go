package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase is what the user has to type to accept a destructive
// operation.
const ConfirmPhrase = "yes"

// Confirm displays a warning box on out and reads one line from in.
// It returns true only if the user typed ConfirmPhrase.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render("   " + WarningMarker + "  WARNING  ─  " + title), ""}
	bullet := lipgloss.NewStyle().Foreground(TextColor)
	for _, warning := range warnings {
		lines = append(lines, bullet.Render("   • "+warning))
	}
	lines = append(lines, "")

	fmt.Fprintln(out, boxStyle(width, WarningColor).Render(strings.Join(lines, "\n")))
	fmt.Fprintln(out)
	fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("Type %q to continue: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(input), ConfirmPhrase) {
		return true
	}

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	return false
}

// ConfirmReset is the confirmation shown before wiping a stored
// configuration.
func ConfirmReset(in io.Reader, out io.Writer, location string) bool {
	return Confirm(in, out, "RESET CONFIGURATION", []string{
		"This deletes the stored credentials and the cached origin link",
		"Stored at: " + location,
		"The next start bootstraps as a fresh install",
	})
}
