package hcdevice

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/muurk/hcat/internal/atcmd"
)

const (
	// MaxNameInput is how much of the user's name survives before the model
	// tag is added.
	MaxNameInput = 15
	// MaxName is the longest name sent to the module.
	MaxName = 20

	// Legacy firmware drops long names at high baud rates.
	legacyFastMaxNameInput = 9
	legacyFastMaxName      = 14
	legacyFastBaudIndex    = 4

	// LegacyPinLength is the fixed Legacy PIN length.
	LegacyPinLength = 4
	// MaxModernPin is the longest Modern passkey sent.
	MaxModernPin = 14
)

// ValidateBaudIndex checks i against the baud table and the dialect floor.
func ValidateBaudIndex(i int, dialect atcmd.Dialect) error {
	if !atcmd.ValidBaudIndex(i) {
		return NewValidationError(fmt.Sprintf("baud index must be 0-%d, got %d", len(atcmd.BaudRates)-1, i))
	}
	if minIdx := atcmd.MinBaudIndex(dialect); i < minIdx {
		return NewValidationError(fmt.Sprintf("%s firmware does not support %d baud (minimum %d)",
			dialect, atcmd.BaudRates[i], atcmd.BaudRates[minIdx]))
	}
	return nil
}

// ValidateBaudRate maps a rate to its table index and validates it.
func ValidateBaudRate(rate int, dialect atcmd.Dialect) (int, error) {
	idx := atcmd.BaudIndex(rate)
	if idx < 0 {
		return -1, NewValidationError(fmt.Sprintf("unsupported baud rate %d (supported: %s)", rate, supportedRates()))
	}
	return idx, ValidateBaudIndex(idx, dialect)
}

func supportedRates() string {
	parts := make([]string, len(atcmd.BaudRates))
	for i, b := range atcmd.BaudRates {
		parts[i] = fmt.Sprint(b)
	}
	return strings.Join(parts, ", ")
}

// ValidateParity rejects anything but None, Odd and Even.
func ValidateParity(p atcmd.Parity) error {
	if !p.Valid() {
		return NewValidationError(fmt.Sprintf("parity must be None, Odd or Even, got %d", int(p)))
	}
	return nil
}

// ValidateRole rejects anything but the three settable roles.
func ValidateRole(r atcmd.Role) error {
	if !r.Valid() {
		return NewValidationError(fmt.Sprintf("role must be 0 (Secondary), 1 (Primary) or 2 (Secondary-Loop), got %d", int(r)))
	}
	return nil
}

// BuildName turns user input into the name sent to the module: trimmed,
// truncated, prefixed with the model tag, and truncated again. Legacy
// firmware above 19200 baud gets the shorter limits.
func BuildName(input string, model Model, dialect atcmd.Dialect, baudIndex int) (string, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return "", NewValidationError("name cannot be empty")
	}

	maxInput, maxName := MaxNameInput, MaxName
	if dialect == atcmd.DialectLegacy && baudIndex > legacyFastBaudIndex {
		maxInput, maxName = legacyFastMaxNameInput, legacyFastMaxName
	}

	name = truncate(name, maxInput)
	return truncate(model.NamePrefix()+name, maxName), nil
}

// BuildPin validates a PIN for the dialect and returns the payload to send.
// Legacy takes exactly four digits; Modern takes 1-14 characters (longer
// input is cut) wrapped in quotes.
func BuildPin(pin string, dialect atcmd.Dialect) (atcmd.CommandKind, string, error) {
	switch dialect {
	case atcmd.DialectLegacy:
		if len(pin) != LegacyPinLength {
			return atcmd.PinSet, "", NewValidationError(fmt.Sprintf("PIN must be exactly %d digits, got %d characters", LegacyPinLength, len(pin)))
		}
		for _, r := range pin {
			if r < '0' || r > '9' {
				return atcmd.PinSet, "", NewValidationError(fmt.Sprintf("PIN must be numeric, got %q", pin))
			}
		}
		return atcmd.PinSet, pin, nil
	case atcmd.DialectModern:
		if pin == "" {
			return atcmd.PswdSet, "", NewValidationError("passkey cannot be empty")
		}
		if strings.Contains(pin, `"`) {
			return atcmd.PswdSet, "", NewValidationError("passkey cannot contain quote characters")
		}
		return atcmd.PswdSet, atcmd.QuotePasskey(truncate(pin, MaxModernPin)), nil
	}
	return atcmd.PinSet, "", NewPreconditionError(StateUndetected)
}

// truncate cuts s to at most n bytes without splitting a character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(errs)))
	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
