package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/hcat/internal/version"
)

// Application branding constants
const (
	AppName   = "HCAT MODULE WIZARD"
	GitHubURL = "github.com/muurk/hcat"
)

// Layout constants
const (
	MinTerminalWidth = 72
	MinListHeight    = 8
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#2E86DE") // Blue
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
	BorderColor    = PrimaryColor
	HighlightColor = SecondaryColor
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0, 0, 0).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	MenuItemStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(TextColor)

	SelectedMenuItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(HighlightColor).
				Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor)

	WarningBoxStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(WarningColor).
			Padding(1, 2)

	// InfoBoxStyle frames the detected configuration on the menu screen
	InfoBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 2).
			MarginBottom(1)

	SpinnerStyle = lipgloss.NewStyle().Foreground(PrimaryColor)

	HintStyle = lipgloss.NewStyle().Foreground(SubtleColor)
)

// RenderTitle renders a screen title
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderMenuItem renders a menu line with a selection arrow
func RenderMenuItem(text string, selected bool) string {
	if selected {
		return SelectedMenuItemStyle.Render("→ " + text)
	}
	return MenuItemStyle.Render(text)
}

// RenderError renders an error message box
func RenderError(text string) string {
	return ErrorStyle.Render("✗ " + text)
}

// RenderSuccess renders a success message box
func RenderSuccess(text string) string {
	return SuccessStyle.Render("✓ " + text)
}

func buildHeaderContent(port string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " " + version.Version)
	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(port + "  •  " + GitHubURL)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps every screen in the same frame: header
// with app name and port, content, footer with key help.
func RenderApplicationContainer(port, content, footer string, width, height int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if height < 12 {
		height = 12
	}

	section := func(b lipgloss.Border) lipgloss.Style {
		return lipgloss.NewStyle().
			BorderStyle(b).
			BorderForeground(BorderColor).
			Width(width-4).
			Padding(0, 1)
	}

	inner := lipgloss.JoinVertical(lipgloss.Left,
		section(lipgloss.Border{Bottom: "─"}).Render(buildHeaderContent(port)),
		lipgloss.NewStyle().Width(width-4).Render(content),
		section(lipgloss.Border{Top: "─"}).Render(HintStyle.Render(footer)),
	)

	framed := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2).
		Height(height - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, framed)
}
