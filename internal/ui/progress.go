package ui

import (
	"fmt"
	"strings"

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

// Step is one line of a multi-step operation such as applying a plan.
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // e.g. "power cycled", "unchanged"
}

// Progress is a bar plus an optional step list. Detection drives the bar
// with probe cells; plan application drives the steps.
type Progress struct {
	Label   string
	Steps   []Step
	Current int
	Total   int
	Percent float64
	Width   int
	bar     progress.Model
}

// NewProgress creates a progress display with total units of work
func NewProgress(label string, total int) *Progress {
	p := &Progress{Label: label, Total: total}
	p.SetWidth(GetTerminalWidth())
	return p
}

// SetWidth resizes the bar for the terminal
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 24
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	return p
}

// SetStepNames turns the display into a step list
func (p *Progress) SetStepNames(names ...string) *Progress {
	p.Steps = make([]Step, len(names))
	for i, n := range names {
		p.Steps[i] = Step{Number: i + 1, Name: n}
	}
	p.Total = len(names)
	return p
}

// Advance sets the bar position directly; probe cells report their index.
func (p *Progress) Advance(current, total int) {
	if total > 0 {
		p.Total = total
	}
	p.Current = current
	if p.Total > 0 {
		p.Percent = float64(current) / float64(p.Total)
	}
}

// UpdateStep updates a step's status and recomputes the bar
func (p *Progress) UpdateStep(number int, status StepStatus, message string) {
	if number < 1 || number > len(p.Steps) {
		return
	}
	p.Steps[number-1].Status = status
	p.Steps[number-1].Message = message

	if status == StepRunning {
		p.Current = number
		return
	}
	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			done++
		}
	}
	p.Percent = float64(done) / float64(len(p.Steps))
}

// Render returns the label, bar and step list
func (p *Progress) Render() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}
	b.WriteString(p.RenderBar())
	if len(p.Steps) > 0 {
		b.WriteString("\n\n")
		lines := make([]string, len(p.Steps))
		for i, s := range p.Steps {
			lines[i] = p.RenderStep(s)
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

// RenderBar renders "bar  42%  [15/36]"
func (p *Progress) RenderBar() string {
	return lipgloss.NewStyle().PaddingLeft(2).Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]",
		p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, p.Total))
}

// RenderStep renders one step line with its marker and note
func (p *Progress) RenderStep(s Step) string {
	var marker string
	var style lipgloss.Style
	switch s.Status {
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

	pad := 30 - lipgloss.Width(s.Name)
	if pad < 1 {
		pad = 1
	}
	line := fmt.Sprintf("  [%d/%d] %s%s%s", s.Number, p.Total,
		style.Render(s.Name), strings.Repeat(" ", pad), style.Render(marker))
	if s.Message != "" {
		line += "  " + StepNoteStyle.Render("("+s.Message+")")
	}
	return line
}

func (p *Progress) String() string {
	return p.Render()
}

// StepCallback reports progress of a numbered step
type StepCallback func(number int, status StepStatus, message string)
