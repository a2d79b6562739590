package hcdevice

import (
	"strings"
	"testing"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/sim"
)

func sampleConfig() DeviceConfig {
	return DeviceConfig{
		Dialect: atcmd.DialectModern,
		Model:   ModelHC05,
		UART:    UARTConfig{BaudIndex: 5, Parity: atcmd.ParityNone, StopBits: atcmd.StopBitsOne},
		Role:    atcmd.RoleSecondary,
		Version: "3.0-20170601",
	}
}

func TestSummary(t *testing.T) {
	got := sampleConfig().Summary()
	want := "HC-05 @ 38400 8N1 (Modern (FW 2.x/3.x), FW: 3.0-20170601)"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if got := unknownConfig().Summary(); got != "No module detected" {
		t.Errorf("Summary() of unknown config = %q", got)
	}
}

func TestFormatDetailed(t *testing.T) {
	out := sampleConfig().FormatDetailed()
	for _, want := range []string{
		"BLUETOOTH MODULE CONFIGURATION",
		"=== Module ===",
		"=== Serial Link ===",
		"Model:    HC-05",
		"Baud Rate: 38400 (index 5)",
		"Framing:   38400 8N1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatDetailed() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatUARTConfigUnknown(t *testing.T) {
	out := unknownConfig().FormatUARTConfig()
	if !strings.Contains(out, "Baud Rate: unknown") {
		t.Errorf("FormatUARTConfig() = %q", out)
	}
}

func TestFormatCompact(t *testing.T) {
	cfg := sampleConfig()
	cfg.Version = ""
	out := cfg.FormatCompact()
	if !strings.Contains(out, "Firmware: unknown") || !strings.Contains(out, "UART:     38400 8N1") {
		t.Errorf("FormatCompact() = %q", out)
	}
}

func TestFormatDiff(t *testing.T) {
	old := sampleConfig()
	if out := FormatDiff(old, old); !strings.Contains(out, "no differences") {
		t.Errorf("FormatDiff(same) = %q", out)
	}

	changed := old
	changed.UART.BaudIndex = 7
	changed.UART.Parity = atcmd.ParityEven
	changed.Role = atcmd.RolePrimary
	out := FormatDiff(old, changed)
	if !strings.Contains(out, "UART: 38400 8N1 → 115200 8E1") {
		t.Errorf("FormatDiff() = %q", out)
	}
	if !strings.Contains(out, "Role: Secondary → Primary") {
		t.Errorf("FormatDiff() = %q", out)
	}
}

func TestFormatReply(t *testing.T) {
	got := FormatReply(ModelHC06, []byte("OK\r\n"))
	if got != `[HC06] OK\r\n` {
		t.Errorf("FormatReply() = %q", got)
	}
}

func TestVerifyUART(t *testing.T) {
	t.Run("modern match", func(t *testing.T) {
		s, _ := detected(t, sim.HC05, nil)
		r := s.VerifyUART()
		if !r.Success || r.Error != nil {
			t.Errorf("VerifyUART() = %+v", r)
		}
		if r.FormatMismatches() != "No mismatches" {
			t.Errorf("FormatMismatches() = %q", r.FormatMismatches())
		}
	})

	t.Run("modern mismatch after local change", func(t *testing.T) {
		s, _ := detected(t, sim.HC05, nil)
		s.cfg.UART.Parity = atcmd.ParityOdd
		r := s.VerifyUART()
		if r.Success || len(r.Mismatches) != 1 {
			t.Fatalf("VerifyUART() = %+v", r)
		}
		if !strings.Contains(r.FormatMismatches(), "parity: expected Odd, got None") {
			t.Errorf("FormatMismatches() = %q", r.FormatMismatches())
		}
	})

	t.Run("legacy falls back to echo", func(t *testing.T) {
		s, dev := detected(t, sim.HC06Legacy, nil)
		r := s.VerifyUART()
		if !r.Success {
			t.Errorf("VerifyUART() = %+v", r)
		}
		if got := dev.Commands(); len(got) != 1 || got[0] != "AT" {
			t.Errorf("commands = %q", got)
		}
	})

	t.Run("undetected", func(t *testing.T) {
		s, _ := newSim(t, sim.HC05, nil)
		if r := s.VerifyUART(); !IsPreconditionError(r.Error) {
			t.Errorf("VerifyUART() error = %v", r.Error)
		}
	})
}
