package hcdevice

import (
	"fmt"

	"github.com/muurk/hcat/internal/atcmd"
)

// Model is the inferred module family.
type Model int

const (
	// ModelUnknown means detection has not run or failed
	ModelUnknown Model = iota
	// ModelHC05 is the primary/secondary capable module (AT+ROLE works)
	ModelHC05
	// ModelHC06 is the secondary-only module
	ModelHC06
)

// String returns a human-readable name for the model
func (m Model) String() string {
	switch m {
	case ModelHC05:
		return "HC-05"
	case ModelHC06:
		return "HC-06"
	case ModelUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// NamePrefix is prepended to every name set on the module, so a scan lists
// which family each device is.
func (m Model) NamePrefix() string {
	switch m {
	case ModelHC05:
		return "HC05_"
	case ModelHC06:
		return "HC06_"
	default:
		return "HCxx_"
	}
}

// ResponsePrefix labels module replies in transcripts.
func (m Model) ResponsePrefix() string {
	switch m {
	case ModelHC05:
		return "[HC05] "
	case ModelHC06:
		return "[HC06] "
	default:
		return "[HC0x] "
	}
}

// State is the lifecycle of a Session.
type State int

const (
	// StateUndetected: no successful search yet
	StateUndetected State = iota
	// StateDetected: link settings match the module
	StateDetected
	// StateLinkInvalidated: a UART change or echo failed; detect again
	StateLinkInvalidated
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateUndetected:
		return "Undetected"
	case StateDetected:
		return "Detected"
	case StateLinkInvalidated:
		return "LinkInvalidated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// UARTConfig is the module's serial configuration as tracked by the host.
type UARTConfig struct {
	BaudIndex int
	Parity    atcmd.Parity
	StopBits  atcmd.StopBits
}

// BaudRate returns the rate for BaudIndex, or 0 when unset.
func (u UARTConfig) BaudRate() int {
	if !atcmd.ValidBaudIndex(u.BaudIndex) {
		return 0
	}
	return atcmd.BaudRates[u.BaudIndex]
}

// String formats the config as "38400 8N1"
func (u UARTConfig) String() string {
	if u.BaudRate() == 0 {
		return "unknown"
	}
	p := "N"
	switch u.Parity {
	case atcmd.ParityOdd:
		p = "O"
	case atcmd.ParityEven:
		p = "E"
	}
	return fmt.Sprintf("%d 8%s%s", u.BaudRate(), p, u.StopBits)
}

// DeviceConfig is everything known about the connected module.
type DeviceConfig struct {
	Dialect atcmd.Dialect
	Model   Model
	UART    UARTConfig
	Role    atcmd.Role
	Version string
	Name    string // last name set in this session; modules cannot be asked
}

// unknownConfig is the value before and after a failed detection.
func unknownConfig() DeviceConfig {
	return DeviceConfig{
		Dialect: atcmd.DialectUnknown,
		Model:   ModelUnknown,
		UART:    UARTConfig{BaudIndex: -1},
		Role:    atcmd.RoleUnknown,
	}
}

// Detection is the result of one search.
type Detection struct {
	Found  bool
	Config DeviceConfig
	Cells  int // cells probed, including the matching one
}
