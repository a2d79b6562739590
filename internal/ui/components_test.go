package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/muurk/hcat/internal/hcdevice"
)

func TestHeaderRender(t *testing.T) {
	h := NewHeader("Module Detection", "hcat-cfg detect",
		P("Port", "/dev/ttyUSB0"),
		P("Mode control", "rts"),
	).SetWidth(80)
	out := h.Render()

	for _, want := range []string{"MODULE DETECTION", "hcat-cfg detect", "/dev/ttyUSB0", "rts"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Port") > strings.Index(out, "Mode control") {
		t.Error("params rendered out of order")
	}
}

func TestHeaderWithoutParams(t *testing.T) {
	out := NewHeader("About", "hcat-cfg about").SetWidth(10).Render()
	if !strings.Contains(out, "ABOUT") {
		t.Errorf("Render() = %q", out)
	}
}

func TestProgressSteps(t *testing.T) {
	p := NewProgress("", 0).SetWidth(80).SetStepNames("name", "pin", "uart")
	if p.Total != 3 {
		t.Fatalf("Total = %d", p.Total)
	}

	p.UpdateStep(1, StepComplete, "")
	p.UpdateStep(2, StepSkipped, "unchanged")
	p.UpdateStep(3, StepRunning, "")
	if p.Current != 3 {
		t.Errorf("Current = %d, want 3", p.Current)
	}
	if p.Percent < 0.66 || p.Percent > 0.67 {
		t.Errorf("Percent = %v, want 2/3", p.Percent)
	}
	p.UpdateStep(9, StepComplete, "") // ignored

	out := p.Render()
	if !strings.Contains(out, "(unchanged)") || !strings.Contains(out, "[2/3] pin") {
		t.Errorf("Render() = %q", out)
	}
}

func TestProgressAdvance(t *testing.T) {
	p := NewProgress("Searching", 42)
	p.Advance(21, 0)
	if p.Percent != 0.5 || p.Total != 42 {
		t.Errorf("Advance() Percent=%v Total=%d", p.Percent, p.Total)
	}
	if !strings.Contains(p.RenderBar(), "[21/42]") {
		t.Errorf("RenderBar() = %q", p.RenderBar())
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name string
		r    *Result
		want []string
	}{
		{"success", NewSuccessResult("Detection complete", P("Module", "HC-05")), []string{"SUCCESS", "Detection complete", "Module:", "HC-05"}},
		{"failure", NewFailureResult("Set name failed", errors.New("boom"), []string{"check wiring"}), []string{"FAILED", "Error: boom", "Troubleshooting:", "check wiring"}},
		{"warning", NewWarningResult("Parity pending", P("Action", "power cycle")), []string{"WARNING", "power cycle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.r.SetWidth(80).Render()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("Render() missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestTipsFromHint(t *testing.T) {
	hint := hcdevice.GetTroubleshootingHint(hcdevice.NewLinkError("open failed", errors.New("busy")))
	tips := TipsFromHint(hint)
	if len(tips) != 4 {
		t.Fatalf("TipsFromHint() = %q", tips)
	}
	if tips[0] != "The serial port failed." || strings.HasPrefix(tips[1], "•") {
		t.Errorf("TipsFromHint() = %q", tips)
	}
}

func TestEscape(t *testing.T) {
	if got := Escape([]byte("OK\r\n")); got != `OK\r\n` {
		t.Errorf("Escape() = %q", got)
	}
}
