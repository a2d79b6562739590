package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/hcdevice"
)

// RunnerConfig describes one command execution.
type RunnerConfig struct {
	Title   string  // e.g. "Module Detection"
	Command string  // e.g. "hcat-cfg detect"
	Params  []Param // shown in the header
	Steps   []string
	Verbose bool      // print the AT transcript after the result
	Output  io.Writer // default os.Stdout
	Live    bool      // redraw the probe bar in place; set when Output is a terminal
}

// Runner prints header, progress and result for a command and turns
// hcdevice events into progress updates.
type Runner struct {
	cfg        RunnerConfig
	out        io.Writer
	width      int
	header     *Header
	search     *Progress
	steps      *Progress
	transcript *Transcript
	barOpen    bool
}

// NewRunner creates a runner sized to the terminal
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	width := GetTerminalWidth()
	r := &Runner{
		cfg:        cfg,
		out:        cfg.Output,
		width:      width,
		header:     NewHeader(cfg.Title, cfg.Command, cfg.Params...).SetWidth(width),
		transcript: NewTranscript(),
	}
	r.transcript.Width = width
	if len(cfg.Steps) > 0 {
		r.steps = NewProgress("", len(cfg.Steps)).SetWidth(width).SetStepNames(cfg.Steps...)
	}
	return r
}

// Transcript returns the AT traffic recorded so far
func (r *Runner) Transcript() *Transcript {
	return r.transcript
}

// Observer returns the callback to pass to hcdevice.WithObserver.
func (r *Runner) Observer() hcdevice.Observer {
	return r.handle
}

func (r *Runner) handle(e hcdevice.Event) {
	r.transcript.Record(e)

	switch e.Type {
	case hcdevice.EventDetectStart:
		r.search = NewProgress("", e.Total).SetWidth(r.width)
		r.println(ProgressLabelStyle.Render(fmt.Sprintf("Searching %d baud/parity combinations...", e.Total)))
	case hcdevice.EventProbeCell:
		if r.search == nil {
			return
		}
		r.search.Advance(e.Cell, e.Total)
		if r.cfg.Live {
			_, _ = fmt.Fprintf(r.out, "\r%s  %s", r.search.RenderBar(), StepNoteStyle.Render(cellNote(e)))
			r.barOpen = true
		}
	case hcdevice.EventDetectDone:
		if r.barOpen {
			r.println("")
			r.barOpen = false
		}
		if e.Matched && e.Config != nil {
			r.println(StepCompleteStyle.Render(fmt.Sprintf("  %s found after %d cells", e.Config.Summary(), e.Cell)))
		}
	case hcdevice.EventStateChange:
		if e.To == hcdevice.StateLinkInvalidated {
			r.println(StepRunningStyle.Render("  " + WarningMarker + " link invalidated: " + e.Reason))
		}
	}
}

// cellNote describes a probe cell, e.g. "Modern 38400 Even".
func cellNote(e hcdevice.Event) string {
	name := "Modern"
	if e.Dialect == atcmd.DialectLegacy {
		name = "Legacy"
	}
	return fmt.Sprintf("%-6s %6d %-4s", name, e.BaudRate, e.Parity)
}

// Step updates and prints a numbered step. It is a StepCallback.
func (r *Runner) Step(number int, status StepStatus, message string) {
	if r.steps == nil || number < 1 || number > len(r.steps.Steps) {
		return
	}
	r.steps.UpdateStep(number, status, message)
	line := r.steps.RenderStep(r.steps.Steps[number-1])
	if status == StepRunning {
		if r.cfg.Live {
			_, _ = fmt.Fprint(r.out, line+"\r")
		}
		return
	}
	r.println(line)
}

// Operation is the work a Runner wraps. The returned details go in the
// success box.
type Operation func(ctx context.Context, onStep StepCallback) ([]Param, error)

// Run prints the header, runs op and prints the result box.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	start := time.Now()
	r.println(r.header.Render())
	r.println("")

	details, err := op(ctx, r.Step)
	elapsed := time.Since(start).Round(time.Millisecond)
	r.println("")

	var res *Result
	if err != nil {
		res = NewFailureResult(r.cfg.Title+" failed", err, TipsFromHint(hcdevice.GetTroubleshootingHint(err)))
		res.AddDetail("Duration", elapsed.String())
	} else {
		res = NewSuccessResult(r.cfg.Title+" complete", details...)
		res.AddDetail("Duration", elapsed.String())
	}
	r.println(res.SetWidth(r.width).Render())

	if r.cfg.Verbose {
		r.println("")
		r.println(r.transcript.Render())
	}
	return err
}

func (r *Runner) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}
