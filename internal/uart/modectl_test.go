package uart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recordingSetter struct {
	calls []string
	err   error
}

func (r *recordingSetter) SetLine(line ControlLine, level bool) error {
	if r.err != nil {
		return r.err
	}
	v := "0"
	if level {
		v = "1"
	}
	r.calls = append(r.calls, line.String()+"="+v)
	return nil
}

func TestLineMode(t *testing.T) {
	tests := []struct {
		name      string
		line      ControlLine
		activeLow bool
		mode      Mode
		want      string
	}{
		{"rts active high command", LineRTS, false, ModeCommand, "RTS=1"},
		{"rts active high data", LineRTS, false, ModeData, "RTS=0"},
		{"rts active low command", LineRTS, true, ModeCommand, "RTS=0"},
		{"dtr active low data", LineDTR, true, ModeData, "DTR=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setter := &recordingSetter{}
			var slept time.Duration
			m := NewLineMode(setter, tt.line, tt.activeLow)
			m.sleep = func(d time.Duration) { slept += d }

			if err := m.SetMode(tt.mode); err != nil {
				t.Fatalf("SetMode() error = %v", err)
			}
			if len(setter.calls) != 1 || setter.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", setter.calls, tt.want)
			}
			if slept != DefaultModeSettle {
				t.Errorf("settle = %v", slept)
			}
		})
	}
}

func TestLineModeError(t *testing.T) {
	m := NewLineMode(&recordingSetter{err: errors.New("ioctl failed")}, LineRTS, false)
	m.Settle = 0
	if err := m.SetMode(ModeCommand); err == nil {
		t.Fatal("expected error")
	}
}

// fakeGPIO lays out a sysfs tree the way the kernel does after export.
func fakeGPIO(t *testing.T, pin string, exported bool) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "export"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if exported {
		dir := filepath.Join(root, "gpio"+pin)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, f := range []string{"direction", "value"} {
			if err := os.WriteFile(filepath.Join(dir, f), []byte("in\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func readAttr(t *testing.T, root, pin, attr string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, "gpio"+pin, attr))
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}

func TestSysfsGPIOCommandAndData(t *testing.T) {
	root := fakeGPIO(t, "17", true)
	g := NewSysfsGPIO(17, false)
	g.Root = root
	g.Settle = 0

	if err := g.SetMode(ModeCommand); err != nil {
		t.Fatalf("SetMode(command) error = %v", err)
	}
	if got := readAttr(t, root, "17", "direction"); got != "out" {
		t.Errorf("direction = %q", got)
	}
	if got := readAttr(t, root, "17", "value"); got != "1" {
		t.Errorf("value = %q", got)
	}

	if err := g.SetMode(ModeData); err != nil {
		t.Fatalf("SetMode(data) error = %v", err)
	}
	if got := readAttr(t, root, "17", "value"); got != "0" {
		t.Errorf("value = %q", got)
	}
	if got := readAttr(t, root, "17", "direction"); got != "in" {
		t.Errorf("direction = %q", got)
	}
}

func TestSysfsGPIOActiveLow(t *testing.T) {
	root := fakeGPIO(t, "4", true)
	g := NewSysfsGPIO(4, true)
	g.Root = root
	g.Settle = 0

	if err := g.SetMode(ModeCommand); err != nil {
		t.Fatal(err)
	}
	if got := readAttr(t, root, "4", "value"); got != "0" {
		t.Errorf("value = %q, want 0", got)
	}
}

func TestSysfsGPIOExports(t *testing.T) {
	root := fakeGPIO(t, "22", false)
	g := NewSysfsGPIO(22, false)
	g.Root = root
	g.Settle = 0

	// no kernel to create gpio22/, so writing direction must fail after export
	if err := g.SetMode(ModeCommand); err == nil {
		t.Fatal("expected error without gpio22 directory")
	}
	b, err := os.ReadFile(filepath.Join(root, "export"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "22" {
		t.Errorf("export = %q", b)
	}
}

func TestSysfsGPIOSkipsRedundantSwitch(t *testing.T) {
	root := fakeGPIO(t, "5", true)
	g := NewSysfsGPIO(5, false)
	g.Root = root
	sleeps := 0
	g.sleep = func(time.Duration) { sleeps++ }

	for i := 0; i < 3; i++ {
		if err := g.SetMode(ModeCommand); err != nil {
			t.Fatal(err)
		}
	}
	if sleeps != 1 {
		t.Errorf("settled %d times, want 1", sleeps)
	}
}

func TestSysfsGPIODataWhenUnexported(t *testing.T) {
	root := fakeGPIO(t, "6", false)
	g := NewSysfsGPIO(6, false)
	g.Root = root
	g.Settle = 0
	if err := g.SetMode(ModeData); err != nil {
		t.Errorf("SetMode(data) on unexported pin = %v", err)
	}
}

func TestNoopMode(t *testing.T) {
	var m ModeControl = NoopMode{}
	if err := m.SetMode(ModeCommand); err != nil {
		t.Error(err)
	}
}

func TestNewModeControl(t *testing.T) {
	setter := &recordingSetter{}
	tests := []struct {
		kind    string
		pin     int
		want    string
		wantErr bool
	}{
		{"", 0, "uart.NoopMode", false},
		{"none", 0, "uart.NoopMode", false},
		{"RTS", 0, "*uart.LineMode", false},
		{"dtr", 0, "*uart.LineMode", false},
		{"gpio", 17, "*uart.SysfsGPIO", false},
		{"gpio", 0, "", true},
		{"cts", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			mc, err := NewModeControl(tt.kind, setter, tt.pin, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewModeControl() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && fmt.Sprintf("%T", mc) != tt.want {
				t.Errorf("NewModeControl() = %T, want %s", mc, tt.want)
			}
		})
	}
}
