package hcdevice

import (
	"fmt"
	"strings"

	"github.com/muurk/hcat/internal/atcmd"
)

// Summary returns a one-line summary of the module configuration
func (dc DeviceConfig) Summary() string {
	if dc.Dialect == atcmd.DialectUnknown && dc.Model == ModelUnknown {
		return "No module detected"
	}
	v := dc.Version
	if v == "" {
		v = "unknown"
	}
	return fmt.Sprintf("%s @ %s (%s, FW: %s)", dc.Model, dc.UART, dc.Dialect, v)
}

// FormatModuleInfo returns a formatted string with module identification
func (dc DeviceConfig) FormatModuleInfo() string {
	var b strings.Builder

	b.WriteString("=== Module ===\n")
	b.WriteString(fmt.Sprintf("Model:    %s\n", dc.Model))
	b.WriteString(fmt.Sprintf("Firmware: %s\n", orUnknown(dc.Version)))
	b.WriteString(fmt.Sprintf("Dialect:  %s\n", dc.Dialect))
	b.WriteString(fmt.Sprintf("Role:     %s\n", dc.Role))
	if dc.Name != "" {
		b.WriteString(fmt.Sprintf("Name:     %s\n", dc.Name))
	}

	return b.String()
}

// FormatUARTConfig returns a formatted string with the serial settings
func (dc DeviceConfig) FormatUARTConfig() string {
	var b strings.Builder

	b.WriteString("=== Serial Link ===\n")
	if dc.UART.BaudRate() == 0 {
		b.WriteString("Baud Rate: unknown\n")
	} else {
		b.WriteString(fmt.Sprintf("Baud Rate: %d (index %d)\n", dc.UART.BaudRate(), dc.UART.BaudIndex))
	}
	b.WriteString(fmt.Sprintf("Parity:    %s\n", dc.UART.Parity))
	b.WriteString(fmt.Sprintf("Stop Bits: %s\n", dc.UART.StopBits))
	b.WriteString(fmt.Sprintf("Framing:   %s\n", dc.UART))

	return b.String()
}

// FormatCompact returns a compact multi-line format suitable for terminal display
func (dc DeviceConfig) FormatCompact() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Module:   %s (%s)\n", dc.Model, dc.Dialect))
	b.WriteString(fmt.Sprintf("Firmware: %s\n", orUnknown(dc.Version)))
	b.WriteString(fmt.Sprintf("UART:     %s\n", dc.UART))
	b.WriteString(fmt.Sprintf("Role:     %s\n", dc.Role))

	return b.String()
}

// FormatDetailed returns a comprehensive formatted string with all details
func (dc DeviceConfig) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║              BLUETOOTH MODULE CONFIGURATION                    ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n")
	b.WriteString("\n")

	b.WriteString(dc.FormatModuleInfo())
	b.WriteString("\n")
	b.WriteString(dc.FormatUARTConfig())

	return b.String()
}

// FormatDiff returns a formatted diff between two configurations
func FormatDiff(old, new DeviceConfig) string {
	var b strings.Builder

	b.WriteString("=== Configuration Differences ===\n")
	hasChanges := false

	if old.UART != new.UART {
		b.WriteString(fmt.Sprintf("  UART: %s → %s\n", old.UART, new.UART))
		hasChanges = true
	}
	if old.Role != new.Role {
		b.WriteString(fmt.Sprintf("  Role: %s → %s\n", old.Role, new.Role))
		hasChanges = true
	}
	if old.Name != new.Name {
		b.WriteString(fmt.Sprintf("  Name: %q → %q\n", old.Name, new.Name))
		hasChanges = true
	}
	if old.Dialect != new.Dialect {
		b.WriteString(fmt.Sprintf("  Dialect: %s → %s\n", old.Dialect, new.Dialect))
		hasChanges = true
	}

	if !hasChanges {
		b.WriteString("\n(no differences detected)\n")
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// FormatReply prefixes a module reply with the model tag for transcripts.
// CR and LF are shown escaped so multi-line replies stay on one line.
func FormatReply(model Model, resp []byte) string {
	r := strings.NewReplacer("\r", `\r`, "\n", `\n`)
	return model.ResponsePrefix() + r.Replace(string(resp))
}
