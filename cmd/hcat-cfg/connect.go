package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/config"
	"github.com/muurk/hcat/internal/hcdevice"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/sim"
	"github.com/muurk/hcat/internal/uart"
	"github.com/muurk/hcat/internal/ui"
)

// Connection flags (persistent on root)
var (
	portPath     string
	adapterName  string
	modeControl  string
	gpioPin      int
	activeLow    bool
	outputFormat string
	logLevel     string
	simProfile   string
	verbose      bool
	timeout      time.Duration
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&portPath, "port", "", "Serial port (default from HCAT_PORT or the adapter profile)")
	pf.StringVar(&adapterName, "adapter", "", "Adapter profile from the config file")
	pf.StringVar(&modeControl, "mode-control", "", "How the KEY pin is driven: none, rts, dtr or gpio")
	pf.IntVar(&gpioPin, "gpio-pin", 0, "sysfs GPIO number for --mode-control gpio")
	pf.BoolVar(&activeLow, "active-low", false, "KEY is asserted by driving the line low")
	pf.StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); logs go to stderr")
	pf.StringVar(&simProfile, "sim", "", "Use a simulated module: hc05, hc06, hc06-secondary or hc06-legacy")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show the AT transcript")
	pf.DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")
}

// target is everything a device command needs.
type target struct {
	Port     string
	Adapter  string
	Link     uart.Link
	Mode     uart.ModeControl
	Options  []hcdevice.Option
	registry *config.Registry
}

// newTarget resolves flags, environment and the registry into a link.
func newTarget() (*target, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		// A broken config file should not stop a command that names --port.
		reg = config.NewRegistry()
		if portPath == "" && simProfile == "" {
			return nil, err
		}
	}

	eff, err := reg.Resolve(config.Overrides{Adapter: adapterName, Port: portPath, LogLevel: logLevel})
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(eff.LogLevel); err != nil {
		return nil, err
	}

	t := &target{Port: eff.Port, registry: reg}

	if simProfile != "" {
		profile, ok := sim.ProfileByName(simProfile)
		if !ok {
			return nil, fmt.Errorf("unknown simulated module %q (use hc05, hc06, hc06-secondary or hc06-legacy)", simProfile)
		}
		dev := sim.New(profile)
		t.Port = "sim:" + simProfile
		t.Link, t.Mode = dev, dev
		t.Options = []hcdevice.Option{hcdevice.WithClock(dev.Clock())}
		return t, nil
	}

	if t.Port == "" {
		return nil, fmt.Errorf("no serial port: use --port, %s or an adapter profile (see 'hcat-cfg ports')", config.EnvPort)
	}

	link := uart.NewSerialLink(t.Port)
	t.Link = link

	a := eff.Adapter
	if a == nil {
		a = &config.Adapter{Port: t.Port}
	} else {
		t.Adapter = adapterName
		if t.Adapter == "" && reg.Preferences != nil {
			t.Adapter = reg.Preferences.DefaultAdapter
		}
		t.Options = append(t.Options, hcdevice.WithLegacyMinBaud(a.LegacyMinBaud))
	}

	kind := a.ModeControl
	if modeControl != "" {
		kind = modeControl
	}
	kind, err = config.ParseModeControl(kind)
	if err != nil {
		return nil, err
	}
	pin := a.GPIOPin
	if gpioPin != 0 {
		pin = gpioPin
	}
	t.Mode, err = uart.NewModeControl(kind, link, pin, a.ActiveLow || activeLow)
	if err != nil {
		return nil, err
	}

	logging.Debug("Target resolved",
		zap.String("port", t.Port),
		zap.String("adapter", t.Adapter),
		zap.String("mode_control", kind),
	)
	return t, nil
}

// params is the header block every device command shows.
func (t *target) params(extra ...ui.Param) []ui.Param {
	ps := []ui.Param{ui.P("Port", t.Port)}
	if t.Adapter != "" {
		ps = append(ps, ui.P("Adapter", t.Adapter))
	}
	return append(ps, extra...)
}

// markSeen records a successful detection against the adapter profile.
func (t *target) markSeen() {
	if t.Adapter == "" {
		return
	}
	t.registry.MarkSeen(t.Adapter, time.Now())
	if err := t.registry.Save(); err != nil {
		logging.Warn("Failed to update adapter profile", zap.Error(err))
	}
}

// deviceCommand is the body of a command that talks to the module. It runs
// after detection succeeds; steps beyond the first are the command's own.
type deviceCommand struct {
	Title      string
	Command    string
	Params     []ui.Param
	Steps      []string
	PowerCycle bool // prompt the user if Legacy parity changes
	Output     *os.File
	Run        func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error)
}

// runDevice opens the link, detects the module, runs dc and closes the
// session again. Detection is always step 1.
func runDevice(cmd *cobra.Command, dc deviceCommand) error {
	cmd.SilenceUsage = true

	t, err := newTarget()
	if err != nil {
		return err
	}
	defer logging.Sync()

	out := dc.Output
	if out == nil {
		out = os.Stdout
	}
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   dc.Title,
		Command: dc.Command,
		Params:  t.params(dc.Params...),
		Steps:   append([]string{"Detect module"}, dc.Steps...),
		Verbose: verbose,
		Output:  out,
		Live:    ui.IsTerminal(),
	})

	opts := append(t.Options, hcdevice.WithObserver(runner.Observer()))
	if dc.PowerCycle {
		opts = append(opts, hcdevice.WithPowerCycle(ui.PowerCyclePrompt(os.Stdin, out)))
	}
	session := hcdevice.NewSession(t.Link, t.Mode, opts...)
	defer func() {
		if err := session.Close(); err != nil {
			logging.Warn("Failed to release the link", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	return runner.Run(ctx, func(ctx context.Context, step ui.StepCallback) ([]ui.Param, error) {
		step(1, ui.StepRunning, "")
		cfg, err := session.Detect(ctx)
		if err != nil {
			step(1, ui.StepFailed, "")
			return nil, err
		}
		step(1, ui.StepComplete, cfg.Summary())
		t.markSeen()

		if dc.Run == nil {
			return moduleParams(cfg), nil
		}
		return dc.Run(ctx, session, func(n int, status ui.StepStatus, msg string) {
			step(n+1, status, msg)
		})
	})
}

// moduleParams lists what detection learned.
func moduleParams(cfg hcdevice.DeviceConfig) []ui.Param {
	ps := []ui.Param{
		ui.P("Model", cfg.Model.String()),
		ui.P("Firmware", orDash(cfg.Version)),
		ui.P("Dialect", cfg.Dialect.String()),
		ui.P("Serial", cfg.UART.String()),
		ui.P("Role", cfg.Role.String()),
	}
	if cfg.Name != "" {
		ps = append(ps, ui.P("Name", cfg.Name))
	}
	return ps
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
