// Hcat-cfg detects and configures HC-05 and HC-06 Bluetooth modules over a
// USB-UART adapter.
//
// It searches every supported dialect, parity and baud rate until the module
// answers, then reads or changes its name, PIN, role and serial settings.
//
// Usage:
//
//	hcat-cfg [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'hcat-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/hcat/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hcat-cfg",
	Short: "HC-05/HC-06 Bluetooth Module Configuration Utility",
	Long: `Detect and configure HC-05 and HC-06 Bluetooth modules over UART.

The module's baud rate, parity and firmware dialect are found automatically
by trying every combination until it answers an AT echo. After that the
name, PIN, role and serial settings can be read or changed.

If no command is specified, the interactive wizard will launch automatically.`,
	Version: version.Version,
	Example: `  # Interactive wizard on the default adapter
  hcat-cfg --port /dev/ttyUSB0

  # Find the module and print what it is
  hcat-cfg detect --port /dev/ttyUSB0

  # Switch an HC-05 to 115200 baud, KEY pin on RTS
  hcat-cfg set-baud 115200 --port /dev/ttyUSB0 --mode-control rts

  # Try everything against a simulated module
  hcat-cfg detect --sim hc06-legacy -v`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when no subcommand provided
		return runWizard(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(aboutCmd)
}

var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "Print tool version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner("hcat-cfg"))
	},
}
