package hcdevice

import (
	"context"
	"testing"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/sim"
)

func modernHC05Config() DeviceConfig {
	return DeviceConfig{
		Dialect: atcmd.DialectModern,
		Model:   ModelHC05,
		UART:    UARTConfig{BaudIndex: 5, Parity: atcmd.ParityNone},
		Role:    atcmd.RoleSecondary,
	}
}

func TestNewPlanBuilder(t *testing.T) {
	b := NewPlanBuilder(modernHC05Config())
	if b.HasChanges() {
		t.Error("Expected new builder to have no changes")
	}
	if _, err := b.Build(); !IsValidationError(err) {
		t.Errorf("Build() with no changes error = %v, want validation", err)
	}
}

func TestPlanBuilderHasChanges(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*PlanBuilder)
	}{
		{"name", func(b *PlanBuilder) { b.SetName("x") }},
		{"pin", func(b *PlanBuilder) { b.SetPin("1234") }},
		{"role", func(b *PlanBuilder) { b.SetRole(atcmd.RolePrimary) }},
		{"uart", func(b *PlanBuilder) { b.SetUART(9600, atcmd.ParityNone) }},
		{"baud", func(b *PlanBuilder) { b.SetBaudRate(9600) }},
		{"parity", func(b *PlanBuilder) { b.SetParity(atcmd.ParityOdd) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewPlanBuilder(modernHC05Config())
			tt.apply(b)
			if !b.HasChanges() {
				t.Error("Expected HasChanges() after a set")
			}
			b.Reset()
			if b.HasChanges() {
				t.Error("Expected Reset() to clear changes")
			}
		})
	}
}

func TestPlanBuilderValidate(t *testing.T) {
	legacy := DeviceConfig{
		Dialect: atcmd.DialectLegacy,
		Model:   ModelHC06,
		UART:    UARTConfig{BaudIndex: 3},
		Role:    atcmd.RoleSecondary,
	}

	tests := []struct {
		name      string
		current   DeviceConfig
		apply     func(*PlanBuilder)
		wantCount int
	}{
		{"valid modern", modernHC05Config(), func(b *PlanBuilder) {
			b.SetName("Car").SetPin("abcd").SetRole(atcmd.RolePrimary).SetUART(115200, atcmd.ParityEven)
		}, 0},
		{"blank name", modernHC05Config(), func(b *PlanBuilder) { b.SetName(" ") }, 1},
		{"legacy pin and role", legacy, func(b *PlanBuilder) {
			b.SetPin("12a4").SetRole(atcmd.RolePrimary)
		}, 2},
		{"modern baud floor", modernHC05Config(), func(b *PlanBuilder) { b.SetBaudRate(2400) }, 1},
		{"bad parity and rate", modernHC05Config(), func(b *PlanBuilder) {
			b.SetUART(12345, atcmd.Parity(9))
		}, 2},
		{"undetected", unknownConfig(), func(b *PlanBuilder) { b.SetName("x") }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewPlanBuilder(tt.current)
			tt.apply(b)
			errs := b.Validate()
			if len(errs) != tt.wantCount {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantCount, errs)
			}
		})
	}
}

func TestPlanBuild(t *testing.T) {
	p, err := NewPlanBuilder(modernHC05Config()).
		SetUART(115200, atcmd.ParityNone).
		SetName("Car").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if p.Pin != nil || p.Role != nil {
		t.Error("Expected unset fields to stay nil")
	}
	if p.Name == nil || *p.Name != "Car" {
		t.Errorf("Name = %v", p.Name)
	}
	steps := p.Steps()
	if len(steps) != 2 || steps[0] != StepName || steps[1] != StepUART {
		t.Errorf("Steps() = %v, want [name uart]", steps)
	}
}

func TestPlanBuildMultipleErrors(t *testing.T) {
	_, err := NewPlanBuilder(modernHC05Config()).SetName("").SetPin("").Build()
	if !IsValidationError(err) {
		t.Fatalf("Build() error = %v, want validation", err)
	}
}

func TestPlanApply(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)

	p, err := NewPlanBuilder(s.Config()).
		SetUART(115200, atcmd.ParityNone).
		SetPin("4321").
		SetName("Car").
		SetRole(atcmd.RolePrimary).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var started, finished []Step
	err = p.Apply(context.Background(), s, func(step Step, done bool, err error) {
		if err != nil {
			t.Errorf("step %s failed: %v", step, err)
		}
		if done {
			finished = append(finished, step)
		} else {
			started = append(started, step)
		}
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := []Step{StepName, StepPin, StepRole, StepUART}
	if len(finished) != len(want) || len(started) != len(want) {
		t.Fatalf("steps started %v finished %v, want %v", started, finished, want)
	}
	for i := range want {
		if finished[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, finished[i], want[i])
		}
	}

	if dev.Name() != "HC05_Car" || dev.Pin() != "4321" || dev.Role() != atcmd.RolePrimary || dev.Baud() != 115200 {
		t.Errorf("module = %q/%q/%v/%d", dev.Name(), dev.Pin(), dev.Role(), dev.Baud())
	}
	if s.State() != StateDetected {
		t.Errorf("State() = %v", s.State())
	}
}

func TestPlanApplyStopsAtFirstFailure(t *testing.T) {
	s, dev := detected(t, sim.HC06Modern, []sim.Option{sim.WithMuteAfterChange()})

	p, err := NewPlanBuilder(s.Config()).SetUART(38400, atcmd.ParityNone).SetName("Car").Build()
	if err != nil {
		t.Fatal(err)
	}
	err = p.Apply(context.Background(), s, nil)
	if !IsLinkDesync(err) {
		t.Fatalf("Apply() error = %v, want link desync", err)
	}
	// name ran before the UART change
	if dev.Name() != "HC06_Car" {
		t.Errorf("module name = %q", dev.Name())
	}
}

func TestPlanApplySkipsUnchangedUART(t *testing.T) {
	s, dev := detected(t, sim.HC06Modern, nil)

	p, err := NewPlanBuilder(s.Config()).SetUART(9600, atcmd.ParityNone).Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Apply(context.Background(), s, nil); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if dev.BytesWritten() != 0 {
		t.Error("unchanged UART reached the link")
	}
}

func TestPlanApplyCancelled(t *testing.T) {
	s, dev := detected(t, sim.HC06Modern, nil)
	p, err := NewPlanBuilder(s.Config()).SetName("x").Build()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Apply(ctx, s, nil); err != context.Canceled {
		t.Errorf("Apply() error = %v, want context.Canceled", err)
	}
	if dev.BytesWritten() != 0 {
		t.Error("cancelled plan reached the link")
	}
}
