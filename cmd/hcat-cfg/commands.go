package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/hcdevice"
	"github.com/muurk/hcat/internal/ui"
)

// Command flags
var (
	assumeYes  bool
	applyName  string
	applyPin   string
	applyRole  int
	applyBaud  int
	applyParit string
)

func init() {
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(roleCmd)
	rootCmd.AddCommand(setBaudCmd)
	rootCmd.AddCommand(setParityCmd)
	rootCmd.AddCommand(setUARTCmd)
	rootCmd.AddCommand(setNameCmd)
	rootCmd.AddCommand(setPinCmd)
	rootCmd.AddCommand(setRoleCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(localCmd)

	for _, c := range []*cobra.Command{setBaudCmd, setParityCmd, setUARTCmd, applyCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before changing the serial settings")
	}

	applyCmd.Flags().StringVar(&applyName, "name", "", "New Bluetooth name")
	applyCmd.Flags().StringVar(&applyPin, "pin", "", "New pairing PIN")
	applyCmd.Flags().IntVar(&applyRole, "role", -1, "New role (0 Secondary, 1 Primary, 2 Secondary-Loop)")
	applyCmd.Flags().IntVar(&applyBaud, "baud", 0, "New baud rate")
	applyCmd.Flags().StringVar(&applyParit, "parity", "", "New parity (none, odd, even)")
}

// detectCmd finds the module
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find the module and report its model, firmware and serial settings",
	Long: `Search for the module by sending an AT echo at every supported
combination of firmware dialect, parity and baud rate.

Modern firmware (HC-05, HC-06 2.x/3.x) is tried first, then Legacy linvor
firmware. The first combination that answers OK wins; the model is then
told apart by how the module answers role queries.`,
	Example: `  hcat-cfg detect --port /dev/ttyUSB0
  hcat-cfg detect --port /dev/ttyUSB0 --mode-control rts --active-low
  hcat-cfg detect --adapter bench -v`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevice(cmd, deviceCommand{
			Title:   "Module Detection",
			Command: "hcat-cfg detect",
		})
	},
}

// showCmd prints everything known about the module
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show module configuration",
	Long: `Detect the module and display its configuration.

On Modern firmware the stored UART settings are read back with AT+UART? and
compared with the settings the module was found at.`,
	Example: `  hcat-cfg show --port /dev/ttyUSB0
  hcat-cfg show --port /dev/ttyUSB0 --format compact
  hcat-cfg show --port /dev/ttyUSB0 --format json | jq .baud_rate`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

// showJSON is the --format json document.
type showJSON struct {
	Port       string   `json:"port"`
	Model      string   `json:"model"`
	Dialect    string   `json:"dialect"`
	Firmware   string   `json:"firmware,omitempty"`
	BaudRate   int      `json:"baud_rate"`
	Parity     string   `json:"parity"`
	StopBits   string   `json:"stop_bits"`
	Role       string   `json:"role"`
	Verified   bool     `json:"verified"`
	Mismatches []string `json:"mismatches,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	var (
		cfg    hcdevice.DeviceConfig
		verify *hcdevice.VerificationResult
	)
	out := os.Stdout
	if outputFormat == "json" {
		out = os.Stderr
	}

	err := runDevice(cmd, deviceCommand{
		Title:   "Module Configuration",
		Command: "hcat-cfg show",
		Steps:   []string{"Read stored UART settings"},
		Output:  out,
		Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
			step(1, ui.StepRunning, "")
			verify = s.VerifyUART()
			cfg = s.Config()
			switch {
			case verify.Error != nil:
				step(1, ui.StepFailed, "")
				return nil, verify.Error
			case !verify.Success:
				step(1, ui.StepFailed, verify.FormatMismatches())
			case cfg.Dialect == atcmd.DialectLegacy:
				step(1, ui.StepSkipped, "Legacy firmware has no query; echo OK")
			default:
				step(1, ui.StepComplete, verify.Actual.String())
			}
			return moduleParams(cfg), nil
		},
	})
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		doc := showJSON{
			Port:       portPath,
			Model:      cfg.Model.String(),
			Dialect:    cfg.Dialect.String(),
			Firmware:   cfg.Version,
			BaudRate:   cfg.UART.BaudRate(),
			Parity:     cfg.UART.Parity.String(),
			StopBits:   cfg.UART.StopBits.String(),
			Role:       cfg.Role.String(),
			Verified:   verify.Success,
			Mismatches: verify.Mismatches,
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	case "compact":
		fmt.Println()
		fmt.Println(cfg.FormatCompact())
	case "detailed":
		fallthrough
	default:
		fmt.Println()
		fmt.Println(cfg.FormatDetailed())
	}
	return nil
}

// echoCmd sends a bare AT
var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Detect the module, then check it still answers a bare AT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevice(cmd, deviceCommand{
			Title:   "Echo Test",
			Command: "hcat-cfg echo",
			Steps:   []string{"Send AT"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				step(1, ui.StepRunning, "")
				if err := s.TestEcho(); err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, "OK")
				return []ui.Param{ui.P("Serial", s.Config().UART.String())}, nil
			},
		})
	},
}

// versionCmd queries the module firmware
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the module's firmware version",
	Long: `Detect the module and print its firmware version.

Use 'hcat-cfg about' for the version of this tool.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevice(cmd, deviceCommand{
			Title:   "Firmware Version",
			Command: "hcat-cfg version",
			Steps:   []string{"Query version"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				step(1, ui.StepRunning, "")
				v, err := s.Version()
				if err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, v)
				return []ui.Param{ui.P("Model", s.Config().Model.String()), ui.P("Firmware", v)}, nil
			},
		})
	},
}

// roleCmd queries the module role
var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Print the module's role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevice(cmd, deviceCommand{
			Title:   "Module Role",
			Command: "hcat-cfg role",
			Steps:   []string{"Query role"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				step(1, ui.StepRunning, "")
				r, err := s.Role()
				if err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, r.String())
				return []ui.Param{ui.P("Model", s.Config().Model.String()), ui.P("Role", r.String())}, nil
			},
		})
	},
}

// setBaudCmd changes the module baud rate
var setBaudCmd = &cobra.Command{
	Use:   "set-baud <rate>",
	Short: "Change the module baud rate",
	Long: `Change the baud rate the module talks at. The host reopens the port at
the new rate and checks the module still answers.

Supported rates: 1200 2400 4800 9600 19200 38400 57600 115200.
Modern firmware does not accept 1200 or 2400.`,
	Example: `  hcat-cfg set-baud 115200 --port /dev/ttyUSB0
  hcat-cfg set-baud 9600 --adapter bench --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid baud rate %q: %w", args[0], err)
		}
		idx, err := hcdevice.ValidateBaudRate(rate, atcmd.DialectUnknown)
		if err != nil {
			return err
		}
		if !confirmUARTChange(fmt.Sprintf("%d baud", rate)) {
			return ui.ErrCancelled
		}
		return runDevice(cmd, deviceCommand{
			Title:   "Set Baud Rate",
			Command: "hcat-cfg set-baud",
			Params:  []ui.Param{ui.P("Baud Rate", args[0])},
			Steps:   []string{"Set baud rate", "Verify"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				old := s.Config()
				step(1, ui.StepRunning, "")
				if err := s.SetBaud(idx); err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, "")
				return verifyStep(s, old, 2, step)
			},
		})
	},
}

// setParityCmd changes the module parity
var setParityCmd = &cobra.Command{
	Use:   "set-parity <none|odd|even>",
	Short: "Change the module parity",
	Long: `Change the parity the module uses. Legacy firmware only applies a new
parity after a power cycle; you will be asked to unplug the module's power.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := atcmd.ParseParity(args[0])
		if err != nil {
			return err
		}
		if !confirmUARTChange(p.String() + " parity") {
			return ui.ErrCancelled
		}
		return runDevice(cmd, deviceCommand{
			Title:      "Set Parity",
			Command:    "hcat-cfg set-parity",
			Params:     []ui.Param{ui.P("Parity", p.String())},
			Steps:      []string{"Set parity", "Verify"},
			PowerCycle: true,
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				old := s.Config()
				step(1, ui.StepRunning, "")
				if err := s.SetParity(p); err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, "")
				return verifyStep(s, old, 2, step)
			},
		})
	},
}

// setUARTCmd changes baud rate and parity together
var setUARTCmd = &cobra.Command{
	Use:   "set-uart <rate> <none|odd|even>",
	Short: "Change baud rate and parity in one go",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid baud rate %q: %w", args[0], err)
		}
		p, err := atcmd.ParseParity(args[1])
		if err != nil {
			return err
		}
		if !confirmUARTChange(fmt.Sprintf("%d baud, %s parity", rate, p)) {
			return ui.ErrCancelled
		}
		return runDevice(cmd, deviceCommand{
			Title:      "Configure UART",
			Command:    "hcat-cfg set-uart",
			Params:     []ui.Param{ui.P("Baud Rate", args[0]), ui.P("Parity", p.String())},
			Steps:      []string{"Configure UART", "Verify"},
			PowerCycle: true,
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				old := s.Config()
				step(1, ui.StepRunning, "")
				if err := s.ConfigureUART(rate, p); err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, "")
				return verifyStep(s, old, 2, step)
			},
		})
	},
}

// setNameCmd changes the Bluetooth name
var setNameCmd = &cobra.Command{
	Use:   "set-name <name>",
	Short: "Change the advertised Bluetooth name",
	Long: `Change the name the module advertises. The model tag is prepended so
modules can be told apart when scanning, e.g. "HC05-bench". Legacy names
also carry the baud rate.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevice(cmd, deviceCommand{
			Title:   "Set Name",
			Command: "hcat-cfg set-name",
			Params:  []ui.Param{ui.P("Name", args[0])},
			Steps:   []string{"Set name"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				step(1, ui.StepRunning, "")
				name, err := s.SetName(args[0])
				if err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, name)
				return []ui.Param{ui.P("Name", name)}, nil
			},
		})
	},
}

// setPinCmd changes the pairing PIN
var setPinCmd = &cobra.Command{
	Use:   "set-pin <pin>",
	Short: "Change the pairing PIN",
	Long: `Change the pairing PIN. Legacy firmware takes exactly four digits;
Modern firmware takes up to 14 characters without quotes; longer PINs
are truncated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevice(cmd, deviceCommand{
			Title:   "Set PIN",
			Command: "hcat-cfg set-pin",
			Steps:   []string{"Set PIN"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				step(1, ui.StepRunning, "")
				if err := s.SetPin(args[0]); err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, "")
				return []ui.Param{ui.P("PIN", "updated")}, nil
			},
		})
	},
}

// setRoleCmd changes the HC-05 role
var setRoleCmd = &cobra.Command{
	Use:   "set-role <0|1|2>",
	Short: "Change the role (HC-05 only)",
	Long: `Change the module role: 0 Secondary, 1 Primary, 2 Secondary-Loop.
HC-06 modules are always Secondary; asking for Secondary succeeds without
sending anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid role %q: %w", args[0], err)
		}
		r := atcmd.Role(n)
		return runDevice(cmd, deviceCommand{
			Title:   "Set Role",
			Command: "hcat-cfg set-role",
			Params:  []ui.Param{ui.P("Role", r.String())},
			Steps:   []string{"Set role"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				step(1, ui.StepRunning, "")
				if err := s.SetRole(r); err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				step(1, ui.StepComplete, "")
				return []ui.Param{ui.P("Role", s.Config().Role.String())}, nil
			},
		})
	},
}

// applyCmd applies several changes in one session
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply several changes in one session",
	Long: `Validate all requested changes, then apply them in order: name, PIN,
role, serial settings. The serial change goes last because it is the only
one that moves the link. A serial change matching the current settings is
skipped.`,
	Example: `  hcat-cfg apply --name bench --pin 4321 --baud 115200 --port /dev/ttyUSB0`,
	Args:    cobra.NoArgs,
	RunE:    runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	var parity *atcmd.Parity
	if applyParit != "" {
		p, err := atcmd.ParseParity(applyParit)
		if err != nil {
			return err
		}
		parity = &p
	}
	if (applyBaud != 0 || parity != nil) && !confirmUARTChange("new serial settings") {
		return ui.ErrCancelled
	}

	var diff string
	err := runDevice(cmd, deviceCommand{
		Title:      "Apply Configuration",
		Command:    "hcat-cfg apply",
		Steps:      []string{"Build plan", "Apply plan"},
		PowerCycle: true,
		Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
			old := s.Config()

			step(1, ui.StepRunning, "")
			b := hcdevice.NewPlanBuilder(old)
			if cmd.Flags().Changed("name") {
				b.SetName(applyName)
			}
			if cmd.Flags().Changed("pin") {
				b.SetPin(applyPin)
			}
			if applyRole >= 0 {
				b.SetRole(atcmd.Role(applyRole))
			}
			switch {
			case applyBaud != 0 && parity != nil:
				b.SetUART(applyBaud, *parity)
			case applyBaud != 0:
				b.SetBaudRate(applyBaud)
			case parity != nil:
				b.SetParity(*parity)
			}
			plan, err := b.Build()
			if err != nil {
				step(1, ui.StepFailed, "")
				return nil, err
			}
			step(1, ui.StepComplete, fmt.Sprintf("%d change(s)", len(plan.Steps())))

			step(2, ui.StepRunning, "")
			err = plan.Apply(ctx, s, func(st hcdevice.Step, done bool, err error) {
				if done && err == nil {
					step(2, ui.StepRunning, string(st)+" done")
				}
			})
			if err != nil {
				step(2, ui.StepFailed, "")
				return nil, err
			}
			step(2, ui.StepComplete, "")
			diff = hcdevice.FormatDiff(old, s.Config())
			return moduleParams(s.Config()), nil
		},
	})
	if err == nil && diff != "" {
		fmt.Println()
		fmt.Println(diff)
	}
	return err
}

// localCmd changes only the host side of the link
var localCmd = &cobra.Command{
	Use:   "local <rate> [none|odd|even]",
	Short: "Reopen only the host side at other settings (testing aid)",
	Long: `Detect the module, then reopen the host side of the link at a different
baud rate or parity without telling the module, and check whether it still
answers. Useful to confirm that a mismatch is noticed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid baud rate %q: %w", args[0], err)
		}
		idx, err := hcdevice.ValidateBaudRate(rate, atcmd.DialectUnknown)
		if err != nil {
			return err
		}
		var parity *atcmd.Parity
		if len(args) == 2 {
			p, err := atcmd.ParseParity(args[1])
			if err != nil {
				return err
			}
			parity = &p
		}

		return runDevice(cmd, deviceCommand{
			Title:   "Local Link Settings",
			Command: "hcat-cfg local",
			Params:  []ui.Param{ui.P("Local Baud", args[0])},
			Steps:   []string{"Reopen host side", "Send AT"},
			Run: func(ctx context.Context, s *hcdevice.Session, step ui.StepCallback) ([]ui.Param, error) {
				step(1, ui.StepRunning, "")
				if parity != nil {
					if err := s.SetLocalParity(*parity); err != nil {
						step(1, ui.StepFailed, "")
						return nil, err
					}
				}
				if err := s.SetLocalBaud(idx); err != nil {
					step(1, ui.StepFailed, "")
					return nil, err
				}
				baud, p := s.LocalSettings()
				step(1, ui.StepComplete, fmt.Sprintf("%d %s", baud, p))

				step(2, ui.StepRunning, "")
				answers := "yes"
				if err := s.TestEcho(); err != nil {
					answers = "no (" + hcdevice.GetShortErrorMessage(err) + ")"
					step(2, ui.StepFailed, "")
				} else {
					step(2, ui.StepComplete, "OK")
				}
				return []ui.Param{
					ui.P("Module", s.Config().UART.String()),
					ui.P("Host", fmt.Sprintf("%d %s", baud, p)),
					ui.P("Answers", answers),
				}, nil
			},
		})
	},
}

// verifyStep reads the serial settings back after a UART change.
func verifyStep(s *hcdevice.Session, old hcdevice.DeviceConfig, n int, step ui.StepCallback) ([]ui.Param, error) {
	step(n, ui.StepRunning, "")
	res := s.VerifyUART()
	switch {
	case res.Error != nil:
		step(n, ui.StepFailed, "")
		return nil, res.Error
	case !res.Success:
		step(n, ui.StepFailed, "")
		return nil, hcdevice.NewMalformedResponseError(atcmd.UartGet, []byte(res.FormatMismatches()))
	}
	step(n, ui.StepComplete, res.Actual.String())
	return []ui.Param{
		ui.P("Before", old.UART.String()),
		ui.P("After", s.Config().UART.String()),
	}, nil
}

// confirmUARTChange warns that the link moves. --yes or a non-terminal
// stdin skips the question.
func confirmUARTChange(what string) bool {
	if assumeYes || !ui.IsTerminal() {
		return true
	}
	return ui.Confirm(os.Stdin, os.Stdout, "SERIAL SETTINGS WILL CHANGE", []string{
		"The module will switch to " + what,
		"Anything else talking to it must be reconfigured to match",
		"If the link is lost, run 'hcat-cfg detect' to find it again",
	}, "Continue?")
}
