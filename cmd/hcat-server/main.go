// Hcat-server is a network bridge for one HC-05/HC-06 module.
//
// It owns the serial port, serves the module over a JSON API with a
// websocket feed of probe progress, and announces itself over mDNS so
// 'hcat-cfg bridges' can find it.
//
// Usage:
//
//	hcat-server [flags]
//
// See 'hcat-server --help' for available options.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/config"
	"github.com/muurk/hcat/internal/discovery"
	"github.com/muurk/hcat/internal/hcdevice"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/server"
	"github.com/muurk/hcat/internal/sim"
	"github.com/muurk/hcat/internal/uart"
	"github.com/muurk/hcat/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Server flags
var (
	listen      string
	portPath    string
	adapterName string
	modeControl string
	gpioPin     int
	activeLow   bool
	certPath    string
	keyPath     string
	noAdvertise bool
	detectFirst bool
	logLevel    string
	simProfile  string
)

var rootCmd = &cobra.Command{
	Use:   "hcat-server",
	Short: "HC-05/HC-06 network bridge",
	Long: `Serve one HC-05/HC-06 module over HTTP.

The bridge owns the serial port and exposes detection, queries and
configuration as a JSON API under /api. Probe progress and AT transactions
stream to websocket clients on /ws. The bridge announces itself as
_hcat._tcp over mDNS unless --no-advertise is given.

Under systemd (Type=notify) readiness is reported once the listener is bound.`,
	Version: version.Version,
	Example: `  # Bridge the module on /dev/ttyUSB0, KEY pin on RTS
  hcat-server --port /dev/ttyUSB0 --mode-control rts

  # Use a saved adapter profile and serve TLS
  hcat-server --adapter pi --cert cert.pem --key key.pem

  # Try the API without hardware
  hcat-server --sim hc05 --listen 127.0.0.1:8089`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&listen, "listen", "", "Listen address (default from HCAT_LISTEN or "+config.DefaultListen+")")
	f.StringVar(&portPath, "port", "", "Serial port (default from HCAT_PORT or the adapter profile)")
	f.StringVar(&adapterName, "adapter", "", "Adapter profile from the config file")
	f.StringVar(&modeControl, "mode-control", "", "How the KEY pin is driven: none, rts, dtr or gpio")
	f.IntVar(&gpioPin, "gpio-pin", 0, "sysfs GPIO number for --mode-control gpio")
	f.BoolVar(&activeLow, "active-low", false, "KEY is asserted by driving the line low")
	f.StringVar(&certPath, "cert", "", "TLS certificate file (with --key enables HTTPS)")
	f.StringVar(&keyPath, "key", "", "TLS private key file")
	f.BoolVar(&noAdvertise, "no-advertise", false, "Do not announce the bridge over mDNS")
	f.BoolVar(&detectFirst, "detect", false, "Detect the module before accepting requests")
	f.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&simProfile, "sim", "", "Bridge a simulated module: hc05, hc06, hc06-secondary or hc06-legacy")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if (certPath == "") != (keyPath == "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		if portPath == "" && simProfile == "" {
			return err
		}
		reg = config.NewRegistry()
	}
	eff, err := reg.Resolve(config.Overrides{
		Adapter:  adapterName,
		Port:     portPath,
		LogLevel: logLevel,
		Listen:   listen,
	})
	if err != nil {
		return err
	}
	level := eff.LogLevel
	if level == "" {
		level = "info"
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	defer logging.Sync()

	link, mode, opts, port, err := openModule(&eff)
	if err != nil {
		return err
	}

	var adv *discovery.Advertiser
	txt := map[string]string{
		discovery.TxtVersion: version.Version,
		discovery.TxtPort:    port,
		discovery.TxtPath:    "/api",
	}
	opts = append(opts, hcdevice.WithObserver(func(e hcdevice.Event) {
		if e.Type != hcdevice.EventDetectDone || e.Config == nil {
			return
		}
		txt[discovery.TxtModel] = e.Config.Model.String()
		if adv != nil {
			adv.Update(txt)
		}
	}))

	srv, err := server.New(server.Config{
		Listen:   eff.Listen,
		Port:     port,
		CertPath: certPath,
		KeyPath:  keyPath,
	}, link, mode, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}
	logging.Info("Bridge listening",
		zap.String("addr", srv.Addr().String()),
		zap.String("serial_port", port),
		zap.Bool("tls", certPath != ""),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if detectFirst {
		if cfg, err := srv.Detect(ctx); err != nil {
			logging.Warn("Initial detection failed", zap.Error(err))
		} else {
			logging.Info("Module detected", zap.String("module", cfg.Summary()))
		}
	}

	if !noAdvertise && reg.Preferences.Advertise {
		adv, err = advertise(srv.Addr(), txt)
		if err != nil {
			logging.Warn("mDNS announcement failed", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("sd_notify failed", zap.Error(err))
	} else if ok {
		logging.Debug("Notified systemd")
	}

	err = srv.Serve(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	logging.Info("Bridge stopped")
	return err
}

// openModule turns the resolved settings into a link and mode control.
func openModule(eff *config.Effective) (uart.Link, uart.ModeControl, []hcdevice.Option, string, error) {
	if simProfile != "" {
		profile, ok := sim.ProfileByName(simProfile)
		if !ok {
			return nil, nil, nil, "", fmt.Errorf("unknown simulated module %q", simProfile)
		}
		dev := sim.New(profile)
		return dev, dev, []hcdevice.Option{hcdevice.WithClock(dev.Clock())}, "sim:" + simProfile, nil
	}
	if eff.Port == "" {
		return nil, nil, nil, "", fmt.Errorf("no serial port: use --port, %s or an adapter profile", config.EnvPort)
	}

	a := eff.Adapter
	var opts []hcdevice.Option
	if a == nil {
		a = &config.Adapter{Port: eff.Port}
	} else {
		opts = append(opts, hcdevice.WithLegacyMinBaud(a.LegacyMinBaud))
	}
	kind := a.ModeControl
	if modeControl != "" {
		kind = modeControl
	}
	pin := a.GPIOPin
	if gpioPin != 0 {
		pin = gpioPin
	}

	link := uart.NewSerialLink(eff.Port)
	mode, err := uart.NewModeControl(kind, link, pin, a.ActiveLow || activeLow)
	if err != nil {
		return nil, nil, nil, "", err
	}
	return link, mode, opts, eff.Port, nil
}

func advertise(addr net.Addr, txt map[string]string) (*discovery.Advertiser, error) {
	_, p, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return nil, err
	}
	return discovery.Advertise(discovery.Announcement{
		Instance: discovery.DefaultInstance(),
		Port:     n,
		Text:     txt,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner("hcat-server"))
	},
}
