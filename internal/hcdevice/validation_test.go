package hcdevice

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/muurk/hcat/internal/atcmd"
)

// TestValidateBaudIndex tests the baud table bounds and the Modern floor
func TestValidateBaudIndex(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		dialect atcmd.Dialect
		wantErr bool
	}{
		{"Valid: legacy 1200", 0, atcmd.DialectLegacy, false},
		{"Valid: legacy 115200", 7, atcmd.DialectLegacy, false},
		{"Valid: modern 4800", 2, atcmd.DialectModern, false},
		{"Valid: modern 9600", 3, atcmd.DialectModern, false},
		{"Invalid: modern 1200", 0, atcmd.DialectModern, true},
		{"Invalid: modern 2400", 1, atcmd.DialectModern, true},
		{"Invalid: negative", -1, atcmd.DialectLegacy, true},
		{"Invalid: past table", 8, atcmd.DialectModern, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaudIndex(tt.index, tt.dialect)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBaudIndex(%d, %v) error = %v, wantErr %v", tt.index, tt.dialect, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

func TestValidateBaudRate(t *testing.T) {
	idx, err := ValidateBaudRate(57600, atcmd.DialectModern)
	if err != nil || idx != 6 {
		t.Errorf("ValidateBaudRate(57600) = %d, %v", idx, err)
	}
	if _, err := ValidateBaudRate(14400, atcmd.DialectModern); !IsValidationError(err) {
		t.Errorf("ValidateBaudRate(14400) error = %v", err)
	}
	if _, err := ValidateBaudRate(2400, atcmd.DialectModern); !IsValidationError(err) {
		t.Errorf("ValidateBaudRate(2400) error = %v", err)
	}
}

func TestValidateParityAndRole(t *testing.T) {
	for _, p := range atcmd.Parities {
		if err := ValidateParity(p); err != nil {
			t.Errorf("ValidateParity(%v) error = %v", p, err)
		}
	}
	if err := ValidateParity(atcmd.Parity(3)); !IsValidationError(err) {
		t.Errorf("ValidateParity(3) error = %v", err)
	}

	for _, r := range []atcmd.Role{atcmd.RoleSecondary, atcmd.RolePrimary, atcmd.RoleSecondaryLoop} {
		if err := ValidateRole(r); err != nil {
			t.Errorf("ValidateRole(%v) error = %v", r, err)
		}
	}
	for _, r := range []atcmd.Role{atcmd.RoleUnknown, atcmd.Role(3)} {
		if err := ValidateRole(r); !IsValidationError(err) {
			t.Errorf("ValidateRole(%v) error = %v", r, err)
		}
	}
}

// TestBuildName tests trimming, truncation and the model tag
func TestBuildName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		model     Model
		dialect   atcmd.Dialect
		baudIndex int
		want      string
		wantErr   bool
	}{
		{"short HC-05", "Car", ModelHC05, atcmd.DialectModern, 5, "HC05_Car", false},
		{"trimmed", "  Car  ", ModelHC06, atcmd.DialectModern, 3, "HC06_Car", false},
		{"unknown model", "Car", ModelUnknown, atcmd.DialectModern, 3, "HCxx_Car", false},
		{"input cut to 15", "0123456789ABCDEFGHIJ", ModelHC05, atcmd.DialectModern, 3, "HC05_0123456789ABCDE", false},
		{"legacy at 19200 keeps long limits", "0123456789ABCDEFGHIJ", ModelHC06, atcmd.DialectLegacy, 4, "HC06_0123456789ABCDE", false},
		{"legacy above 19200", "0123456789ABCDEFGHIJ", ModelHC06, atcmd.DialectLegacy, 5, "HC06_012345678", false},
		{"modern fast keeps long limits", "0123456789ABCDEFGHIJ", ModelHC06, atcmd.DialectModern, 7, "HC06_0123456789ABCDE", false},
		{"multi-byte character at the cut", "0123456789ABCDé", ModelHC05, atcmd.DialectModern, 3, "HC05_0123456789ABCD", false},
		{"multi-byte character fits", "0123456789ABCé", ModelHC05, atcmd.DialectModern, 3, "HC05_0123456789ABCé", false},
		{"empty", "", ModelHC05, atcmd.DialectModern, 3, "", true},
		{"blank", " \t ", ModelHC05, atcmd.DialectModern, 3, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildName(tt.input, tt.model, tt.dialect, tt.baudIndex)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BuildName() = %q, want %q", got, tt.want)
			}
			if len(got) > MaxName {
				t.Errorf("BuildName() length %d exceeds %d", len(got), MaxName)
			}
			if !utf8.ValidString(got) {
				t.Errorf("BuildName() = %q is not valid UTF-8", got)
			}
		})
	}
}

// TestBuildPin tests PIN rules per dialect
func TestBuildPin(t *testing.T) {
	tests := []struct {
		name     string
		pin      string
		dialect  atcmd.Dialect
		wantKind atcmd.CommandKind
		want     string
		wantErr  bool
	}{
		{"legacy 4 digits", "1234", atcmd.DialectLegacy, atcmd.PinSet, "1234", false},
		{"legacy letter", "12a4", atcmd.DialectLegacy, atcmd.PinSet, "", true},
		{"legacy short", "123", atcmd.DialectLegacy, atcmd.PinSet, "", true},
		{"legacy long", "12345", atcmd.DialectLegacy, atcmd.PinSet, "", true},
		{"modern short", "1", atcmd.DialectModern, atcmd.PswdSet, `"1"`, false},
		{"modern letters", "abcd", atcmd.DialectModern, atcmd.PswdSet, `"abcd"`, false},
		{"modern truncated", "123456789012345678", atcmd.DialectModern, atcmd.PswdSet, `"12345678901234"`, false},
		{"modern empty", "", atcmd.DialectModern, atcmd.PswdSet, "", true},
		{"modern quote", `a"b`, atcmd.DialectModern, atcmd.PswdSet, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, payload, err := BuildPin(tt.pin, tt.dialect)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildPin() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
			if kind != tt.wantKind {
				t.Errorf("BuildPin() kind = %v, want %v", kind, tt.wantKind)
			}
			if payload != tt.want {
				t.Errorf("BuildPin() payload = %q, want %q", payload, tt.want)
			}
		})
	}
}

func TestBuildPinUnknownDialect(t *testing.T) {
	if _, _, err := BuildPin("1234", atcmd.DialectUnknown); !IsPreconditionError(err) {
		t.Errorf("BuildPin() error = %v, want precondition", err)
	}
}

func TestFormatValidationErrors(t *testing.T) {
	if got := FormatValidationErrors(nil); got != "No validation errors" {
		t.Errorf("FormatValidationErrors(nil) = %q", got)
	}
	got := FormatValidationErrors([]error{NewValidationError("a"), NewValidationError("b")})
	if !strings.Contains(got, "2 error(s)") || !strings.Contains(got, "  2. Validation Error: b") {
		t.Errorf("FormatValidationErrors() = %q", got)
	}
}
