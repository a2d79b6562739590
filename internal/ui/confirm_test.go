package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "CHANGE BAUD", []string{"link will reopen"}, "Continue?")
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "CHANGE BAUD") {
				t.Errorf("warning box not printed: %q", out.String())
			}
		})
	}
}

func TestPowerCyclePrompt(t *testing.T) {
	var out bytes.Buffer
	hook := PowerCyclePrompt(strings.NewReader("\nq\n"), &out)

	if err := hook(); err != nil {
		t.Errorf("first prompt error = %v", err)
	}
	if err := hook(); !errors.Is(err, ErrCancelled) {
		t.Errorf("second prompt error = %v, want ErrCancelled", err)
	}
	if err := hook(); err == nil {
		t.Error("prompt at EOF should fail")
	}
	if !strings.Contains(out.String(), "POWER CYCLE REQUIRED") {
		t.Errorf("output = %q", out.String())
	}
}
