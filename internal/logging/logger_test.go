package logging

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatal(err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op when no level is configured")
	}
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	if err := Initialize("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogTransaction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	old := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = old })

	LogTransaction("Echo", []byte("AT\r\n"), []byte("OK\r\n"), 50*time.Millisecond, true)

	entries := logs.FilterMessage("AT transaction").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["command"] != `AT\r\n` {
		t.Errorf("command = %v", fields["command"])
	}
	if fields["response_hex"] != "4f4b0d0a" {
		t.Errorf("response_hex = %v", fields["response_hex"])
	}
}

func TestDumps(t *testing.T) {
	if got := asciiDump([]byte{'O', 'K', 0x00, 0xff}); got != "OK.." {
		t.Errorf("asciiDump() = %q", got)
	}
	long := make([]byte, 300)
	if got := hexDump(long); len(got) != 512+3 {
		t.Errorf("hexDump() length = %d", len(got))
	}
	if hexDump(nil) != "" || asciiDump(nil) != "" {
		t.Error("empty input should give empty dump")
	}
}
