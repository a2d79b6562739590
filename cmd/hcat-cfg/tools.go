package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/config"
	"github.com/muurk/hcat/internal/discovery"
	"github.com/muurk/hcat/internal/uart"
	"github.com/muurk/hcat/internal/ui"
	"github.com/muurk/hcat/internal/wizard/tui"
)

var (
	scanTimeout time.Duration

	adapterPort     string
	adapterNickname string
	adapterMode     string
	adapterGPIO     int
	adapterLow      bool
	adapterFloor    int
	adapterDefault  bool
)

func init() {
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(bridgesCmd)
	rootCmd.AddCommand(adapterCmd)
	rootCmd.AddCommand(wizardCmd)

	adapterCmd.AddCommand(adapterAddCmd)
	adapterCmd.AddCommand(adapterListCmd)
	adapterCmd.AddCommand(adapterRemoveCmd)

	bridgesCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 3*time.Second, "How long to listen for bridges")

	f := adapterAddCmd.Flags()
	f.StringVar(&adapterPort, "port", "", "Serial device path (required)")
	f.StringVar(&adapterNickname, "nickname", "", "Friendly description")
	f.StringVar(&adapterMode, "mode-control", config.ModeControlNone, "How the KEY pin is driven: none, rts, dtr or gpio")
	f.IntVar(&adapterGPIO, "gpio-pin", 0, "sysfs GPIO number for gpio mode control")
	f.BoolVar(&adapterLow, "active-low", false, "KEY is asserted by driving the line low")
	f.IntVar(&adapterFloor, "legacy-min-baud", 0, "Lowest baud index (0-7) scanned for Legacy firmware")
	f.BoolVar(&adapterDefault, "default", false, "Use this adapter when no --port or --adapter is given")
	_ = adapterAddCmd.MarkFlagRequired("port")
}

// portsCmd lists serial ports
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports; USB-UART bridges are marked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ports, err := uart.ListPorts()
		if err != nil {
			ui.NewPrinter(os.Stderr).PrintError("Could not list serial ports", err)
			return err
		}
		if outputFormat == "json" {
			return printJSON(ports)
		}

		p := ui.NewPrinter(os.Stdout)
		p.PrintHeader("Serial Ports", "hcat-cfg ports")
		if len(ports) == 0 {
			p.PrintWarning("No serial ports found",
				ui.P("Tip", "Check the adapter is plugged in and you can read /dev/tty*"))
			return nil
		}
		params := make([]ui.Param, 0, len(ports))
		for _, port := range ports {
			desc := "serial"
			if port.IsUSB {
				desc = fmt.Sprintf("USB %s:%s", port.VID, port.PID)
			}
			if port.Likely() {
				desc = "★ " + port.Chip + " " + desc
			}
			if port.Product != "" {
				desc += " " + port.Product
			}
			params = append(params, ui.P(port.Name, desc))
		}
		p.PrintSuccess(fmt.Sprintf("%d port(s)", len(ports)), params...)
		return nil
	},
}

// bridgesCmd browses for hcat-server instances
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Find hcat-server bridges on the local network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		bridges, err := discovery.ScanBridges(cmd.Context(), scanTimeout)
		if err != nil {
			ui.NewPrinter(os.Stderr).PrintError("mDNS browse failed", err)
			return err
		}
		if outputFormat == "json" {
			return printJSON(bridges)
		}

		p := ui.NewPrinter(os.Stdout)
		p.PrintHeader("Bridges", "hcat-cfg bridges", ui.P("Timeout", scanTimeout.String()))
		if len(bridges) == 0 {
			p.PrintWarning("No bridges answered",
				ui.P("Tip", "Bridges advertise "+discovery.ServiceType+"; multicast must reach this host"))
			return nil
		}
		params := make([]ui.Param, 0, len(bridges))
		for _, b := range bridges {
			params = append(params, ui.P(b.BaseURL(), b.String()))
		}
		p.PrintSuccess(fmt.Sprintf("%d bridge(s)", len(bridges)), params...)
		return nil
	},
}

// adapterCmd manages adapter profiles
var adapterCmd = &cobra.Command{
	Use:   "adapter",
	Short: "Manage saved USB-UART adapter profiles",
	Long: `Adapter profiles remember a serial port and how the module's KEY pin is
wired, so commands can take --adapter bench instead of a list of flags.`,
}

var adapterAddCmd = &cobra.Command{
	Use:     "add <name>",
	Short:   "Add or replace an adapter profile",
	Example: `  hcat-cfg adapter add bench --port /dev/ttyUSB0 --mode-control rts --default`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		a := &config.Adapter{
			Nickname:      adapterNickname,
			Port:          adapterPort,
			ModeControl:   adapterMode,
			GPIOPin:       adapterGPIO,
			ActiveLow:     adapterLow,
			LegacyMinBaud: adapterFloor,
		}
		if err := reg.SetAdapter(args[0], a); err != nil {
			return err
		}
		if adapterDefault {
			reg.Preferences.DefaultAdapter = args[0]
		}
		if err := reg.Save(); err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Adapter saved", adapterParams(args[0], a, adapterDefault)...)
		return nil
	},
}

var adapterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List adapter profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(reg.Adapters)
		}

		p := ui.NewPrinter(os.Stdout)
		names := reg.AdapterNames()
		if len(names) == 0 {
			p.PrintWarning("No adapter profiles", ui.P("Add one", "hcat-cfg adapter add <name> --port <path>"))
			return nil
		}
		for _, n := range names {
			p.PrintSuccess(n, adapterParams(n, reg.GetAdapter(n), reg.Preferences.DefaultAdapter == n)...)
		}
		return nil
	},
}

var adapterRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete an adapter profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if !reg.RemoveAdapter(args[0]) {
			return fmt.Errorf("no adapter named %q", args[0])
		}
		if err := reg.Save(); err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Adapter removed", ui.P("Name", args[0]))
		return nil
	},
}

func adapterParams(name string, a *config.Adapter, isDefault bool) []ui.Param {
	ps := []ui.Param{ui.P("Name", name), ui.P("Port", a.Port)}
	if a.Nickname != "" {
		ps = append(ps, ui.P("Nickname", a.Nickname))
	}
	mc := a.ModeControl
	if mc == config.ModeControlGPIO {
		mc += " " + strconv.Itoa(a.GPIOPin)
	}
	if a.ActiveLow {
		mc += " (active low)"
	}
	ps = append(ps, ui.P("Mode Control", orDash(mc)))
	if a.LegacyMinBaud > 0 {
		ps = append(ps, ui.P("Legacy Floor", strconv.Itoa(atcmd.BaudRates[a.LegacyMinBaud])))
	}
	if !a.LastSeen.IsZero() {
		ps = append(ps, ui.P("Last Seen", a.LastSeen.Local().Format(time.DateTime)))
	}
	if isDefault {
		ps = append(ps, ui.P("Default", "yes"))
	}
	return ps
}

// wizardCmd starts the interactive menu
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive menu (also the default with no command)",
	Args:  cobra.NoArgs,
	RunE:  runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if !ui.IsTerminal() {
		return fmt.Errorf("the interactive menu needs a terminal; try 'hcat-cfg detect'")
	}
	t, err := newTarget()
	if err != nil {
		return err
	}
	return tui.Run(tui.New(t.Link, t.Mode, t.Port, t.Options...))
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
