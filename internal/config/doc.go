// Package config provides user configuration management for hcat.
//
// This package manages a YAML-based configuration file that stores USB-UART
// adapter profiles (port path and how the module's KEY pin is driven) and
// application preferences. Bluetooth module settings are never persisted:
// the module is the source of truth and is detected on every run.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/hcat/config.yaml or $HOME/.config/hcat/config.yaml
//   - macOS: $HOME/.config/hcat/config.yaml
//   - Windows: %LOCALAPPDATA%\hcat\config.yaml
//
// # Precedence
//
// Command-line flags beat the HCAT_PORT, HCAT_LOG_LEVEL and HCAT_LISTEN
// environment variables, which beat the registry. Registry.Resolve applies
// the layering.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = registry.SetAdapter("bench", &config.Adapter{
//	    Port:        "/dev/ttyUSB0",
//	    ModeControl: config.ModeControlRTS,
//	})
//	if err == nil {
//	    err = registry.Save()
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
