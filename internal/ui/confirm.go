package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/hcat/internal/hcdevice"
)

// ErrCancelled is returned when the user declines a prompt.
var ErrCancelled = errors.New("cancelled by user")

// renderWarningBox draws the orange prompt box with bullet points.
func renderWarningBox(title string, items []string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	lines := []string{"", WarningTitleStyle.Render(fmt.Sprintf("   %s  %s", WarningMarker, title)), ""}
	for _, it := range items {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+it))
	}
	lines = append(lines, "")
	return resultBoxStyle(width, WarningColor).Render(strings.Join(lines, "\n"))
}

// Confirm shows a warning box and asks a yes/no question. Anything but
// "y" or "yes" declines.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, question string) bool {
	_, _ = fmt.Fprintln(out, renderWarningBox(title, warnings, GetTerminalWidth()))
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render(question+" [y/N]: "))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	_, _ = fmt.Fprintln(out, StepPendingStyle.Render("  Operation cancelled."))
	return false
}

// PowerCyclePrompt returns a hook that asks the user to power cycle the
// module and waits for Enter. Typing "q" cancels, which invalidates the
// session so the next command detects again.
func PowerCyclePrompt(in io.Reader, out io.Writer) hcdevice.PowerCycleFunc {
	reader := bufio.NewReader(in)
	return func() error {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, renderWarningBox("POWER CYCLE REQUIRED", []string{
			"Legacy firmware applies parity only after a restart",
			"Disconnect the module's VCC, wait a second, reconnect it",
			"Keep the USB adapter plugged in",
		}, GetTerminalWidth()))
		_, _ = fmt.Fprint(out, WarningTitleStyle.Render("Press Enter once the module is back on (q to abort): "))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("power cycle prompt: %w", err)
		}
		if strings.EqualFold(strings.TrimSpace(line), "q") {
			return ErrCancelled
		}
		return nil
	}
}
