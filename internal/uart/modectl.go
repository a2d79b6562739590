package uart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/logging"
)

// DefaultModeSettle is how long the module needs after its KEY pin changes.
const DefaultModeSettle = 100 * time.Millisecond

// NoopMode is used when the KEY pin is strapped by hand or the module is a
// Legacy HC-06 that is always in command mode while unpaired.
type NoopMode struct{}

// SetMode implements ModeControl.
func (NoopMode) SetMode(Mode) error { return nil }

// LineSetter drives a modem control line. *SerialLink implements it.
type LineSetter interface {
	SetLine(line ControlLine, level bool) error
}

// LineMode wires the KEY pin to the adapter's RTS or DTR output.
//
// Most USB-UART adapters invert RTS/DTR (asserted means low), so ActiveLow
// is the usual setting when KEY is connected straight to the header pin.
type LineMode struct {
	Setter    LineSetter
	Line      ControlLine
	ActiveLow bool
	Settle    time.Duration

	sleep func(time.Duration)
}

// NewLineMode creates a LineMode with the default settle time.
func NewLineMode(setter LineSetter, line ControlLine, activeLow bool) *LineMode {
	return &LineMode{
		Setter:    setter,
		Line:      line,
		ActiveLow: activeLow,
		Settle:    DefaultModeSettle,
		sleep:     time.Sleep,
	}
}

// SetMode implements ModeControl.
func (m *LineMode) SetMode(mode Mode) error {
	level := mode == ModeCommand
	if m.ActiveLow {
		level = !level
	}
	if err := m.Setter.SetLine(m.Line, level); err != nil {
		return fmt.Errorf("failed to switch module to %s mode: %w", mode, err)
	}
	logging.Debug("Mode pin set",
		zap.String("mode", mode.String()),
		zap.String("line", m.Line.String()),
		zap.Bool("level", level),
	)
	m.wait()
	return nil
}

func (m *LineMode) wait() {
	if m.Settle <= 0 {
		return
	}
	if m.sleep == nil {
		m.sleep = time.Sleep
	}
	m.sleep(m.Settle)
}

// DefaultGPIORoot is the legacy sysfs GPIO interface on Linux SBCs.
const DefaultGPIORoot = "/sys/class/gpio"

// SysfsGPIO drives the KEY pin from a Raspberry Pi style GPIO.
type SysfsGPIO struct {
	Root      string
	Pin       int
	ActiveLow bool
	Settle    time.Duration

	sleep    func(time.Duration)
	lastMode Mode
	known    bool
}

// NewSysfsGPIO creates a controller for pin under DefaultGPIORoot.
func NewSysfsGPIO(pin int, activeLow bool) *SysfsGPIO {
	return &SysfsGPIO{
		Root:      DefaultGPIORoot,
		Pin:       pin,
		ActiveLow: activeLow,
		Settle:    DefaultModeSettle,
		sleep:     time.Sleep,
	}
}

func (g *SysfsGPIO) pinDir() string {
	return filepath.Join(g.Root, "gpio"+strconv.Itoa(g.Pin))
}

// SetMode implements ModeControl. Command mode exports the pin and drives it;
// data mode drives it inactive and releases it back to an input.
func (g *SysfsGPIO) SetMode(mode Mode) error {
	if g.known && g.lastMode == mode {
		return nil
	}

	var err error
	if mode == ModeCommand {
		err = g.enterCommand()
	} else {
		err = g.enterData()
	}
	if err != nil {
		return fmt.Errorf("gpio%d: failed to switch module to %s mode: %w", g.Pin, mode, err)
	}

	g.lastMode = mode
	g.known = true
	logging.Debug("Mode GPIO set", zap.Int("pin", g.Pin), zap.String("mode", mode.String()))

	if g.Settle > 0 {
		if g.sleep == nil {
			g.sleep = time.Sleep
		}
		g.sleep(g.Settle)
	}
	return nil
}

func (g *SysfsGPIO) enterCommand() error {
	if err := g.export(); err != nil {
		return err
	}
	if err := g.write("direction", "out"); err != nil {
		return err
	}
	return g.write("value", g.level(true))
}

func (g *SysfsGPIO) enterData() error {
	if _, err := os.Stat(g.pinDir()); errors.Is(err, os.ErrNotExist) {
		// never exported, so the pin is already released
		return nil
	}
	if err := g.write("value", g.level(false)); err != nil {
		return err
	}
	return g.write("direction", "in")
}

func (g *SysfsGPIO) export() error {
	if _, err := os.Stat(g.pinDir()); err == nil {
		return nil
	}
	path := filepath.Join(g.Root, "export")
	if err := os.WriteFile(path, []byte(strconv.Itoa(g.Pin)), 0o200); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func (g *SysfsGPIO) write(attr, value string) error {
	path := filepath.Join(g.pinDir(), attr)
	if cur, err := os.ReadFile(path); err == nil && strings.TrimSpace(string(cur)) == value {
		return nil
	}
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", attr, err)
	}
	return nil
}

func (g *SysfsGPIO) level(active bool) string {
	if active != g.ActiveLow {
		return "1"
	}
	return "0"
}

// NewModeControl builds the ModeControl named by kind: "rts" or "dtr" drive
// a line on setter, "gpio" drives sysfs pin gpioPin, "" and "none" do nothing.
func NewModeControl(kind string, setter LineSetter, gpioPin int, activeLow bool) (ModeControl, error) {
	switch strings.ToLower(kind) {
	case "", "none":
		return NoopMode{}, nil
	case "rts", "dtr":
		line, _ := ParseControlLine(strings.ToLower(kind))
		return NewLineMode(setter, line, activeLow), nil
	case "gpio":
		if gpioPin <= 0 {
			return nil, fmt.Errorf("gpio mode control needs a pin number, got %d", gpioPin)
		}
		return NewSysfsGPIO(gpioPin, activeLow), nil
	}
	return nil, fmt.Errorf("unknown mode control %q (use none, rts, dtr or gpio)", kind)
}
