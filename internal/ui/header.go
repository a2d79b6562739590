package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one key/value line. Slices keep the order callers choose.
type Param struct {
	Key   string
	Value string
}

// P is shorthand for building a Param.
func P(key, value string) Param {
	return Param{Key: key, Value: value}
}

// Header is the banner printed before a command runs.
type Header struct {
	Title   string  // e.g. "MODULE DETECTION"
	Command string  // e.g. "hcat-cfg detect"
	Params  []Param // e.g. Port, Mode control
	Width   int
}

// NewHeader creates a header sized to the terminal
func NewHeader(title, command string, params ...Param) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the rendering width
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)
	if len(h.Params) == 0 {
		return HeaderBorderStyle(width).Render(top)
	}

	divider := RenderHorizontalDivider(width-6, "─")
	return HeaderBorderStyle(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, top, divider, renderParams(h.Params)),
	)
}

// renderParams aligns the values after the longest key.
func renderParams(params []Param) string {
	keyWidth := 0
	for _, p := range params {
		if n := lipgloss.Width(p.Key) + 1; n > keyWidth {
			keyWidth = n
		}
	}
	lines := make([]string, 0, len(params))
	for _, p := range params {
		key := p.Key + ":" + strings.Repeat(" ", keyWidth-lipgloss.Width(p.Key))
		lines = append(lines, HeaderParamKeyStyle.Render(key)+" "+HeaderParamValueStyle.Render(p.Value))
	}
	return strings.Join(lines, "\n")
}

func (h *Header) String() string {
	return h.Render()
}
