package hcdevice

import (
	"fmt"
	"strings"

	"github.com/muurk/hcat/internal/atcmd"
)

// VerificationResult contains the outcome of reading the module's settings
// back after a change.
type VerificationResult struct {
	// Success indicates the module reports what the session tracks
	Success bool

	// Actual is what the module reported
	Actual UARTConfig

	// Mismatches lists every field that differs
	Mismatches []string

	// Error is set when the module could not be asked
	Error error
}

// VerifyUART asks a Modern module for its stored UART settings and compares
// them with the tracked config. Legacy firmware has no query, so it falls
// back to an echo at the current settings.
func (s *Session) VerifyUART() *VerificationResult {
	result := &VerificationResult{Mismatches: []string{}}

	if err := s.ready(); err != nil {
		result.Error = err
		return result
	}

	expected := s.cfg.UART
	if s.cfg.Dialect == atcmd.DialectLegacy {
		if err := s.TestEcho(); err != nil {
			result.Error = err
			return result
		}
		result.Actual = expected
		result.Success = true
		return result
	}

	actual, err := s.QueryUART()
	if err != nil {
		result.Error = err
		return result
	}
	result.Actual = actual
	result.Mismatches = compareUART(expected, actual)
	result.Success = len(result.Mismatches) == 0
	return result
}

func compareUART(expected, actual UARTConfig) []string {
	mismatches := []string{}
	if expected.BaudIndex != actual.BaudIndex {
		mismatches = append(mismatches, fmt.Sprintf("baud rate: expected %d, got %d", expected.BaudRate(), actual.BaudRate()))
	}
	if expected.Parity != actual.Parity {
		mismatches = append(mismatches, fmt.Sprintf("parity: expected %s, got %s", expected.Parity, actual.Parity))
	}
	if expected.StopBits != actual.StopBits {
		mismatches = append(mismatches, fmt.Sprintf("stop bits: expected %s, got %s", expected.StopBits, actual.StopBits))
	}
	return mismatches
}

// FormatMismatches renders the mismatch list, one per line.
func (r *VerificationResult) FormatMismatches() string {
	if len(r.Mismatches) == 0 {
		return "No mismatches"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d mismatch(es):\n", len(r.Mismatches)))
	for i, m := range r.Mismatches {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, m))
	}
	return sb.String()
}
