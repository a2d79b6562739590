package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Registry represents the entire user configuration file.
// It stores host-side adapter profiles and application preferences. Module
// settings (baud, name, PIN) are never stored; they are always detected.
type Registry struct {
	Version     int                 `yaml:"version"`
	Adapters    map[string]*Adapter `yaml:"adapters,omitempty"` // Keyed by profile name
	Preferences *Preferences        `yaml:"preferences,omitempty"`
}

// Mode control kinds for the KEY/EN pin
const (
	ModeControlNone = "none"
	ModeControlRTS  = "rts"
	ModeControlDTR  = "dtr"
	ModeControlGPIO = "gpio"
)

// ModeControlKinds lists the accepted mode control kinds
var ModeControlKinds = []string{ModeControlNone, ModeControlRTS, ModeControlDTR, ModeControlGPIO}

// Adapter describes one USB-UART adapter and how the module's KEY pin is wired to it.
type Adapter struct {
	Nickname      string    `yaml:"nickname,omitempty"`        // User-friendly name
	Port          string    `yaml:"port"`                      // Serial device path (/dev/ttyUSB0, COM3)
	ModeControl   string    `yaml:"mode_control,omitempty"`    // none, rts, dtr or gpio
	GPIOPin       int       `yaml:"gpio_pin,omitempty"`        // sysfs GPIO number when mode_control is gpio
	ActiveLow     bool      `yaml:"active_low,omitempty"`      // KEY is asserted by driving the line low
	LegacyMinBaud int       `yaml:"legacy_min_baud,omitempty"` // Lowest baud index scanned for Legacy firmware
	LastSeen      time.Time `yaml:"last_seen,omitempty"`       // Last successful detection through this adapter
}

// Validate checks the adapter profile for obvious mistakes.
func (a *Adapter) Validate() error {
	if strings.TrimSpace(a.Port) == "" {
		return fmt.Errorf("adapter port cannot be empty")
	}
	if _, err := ParseModeControl(a.ModeControl); err != nil {
		return err
	}
	if a.ModeControl == ModeControlGPIO && a.GPIOPin <= 0 {
		return fmt.Errorf("gpio mode control needs a gpio_pin, got %d", a.GPIOPin)
	}
	if a.LegacyMinBaud < 0 || a.LegacyMinBaud > 7 {
		return fmt.Errorf("legacy_min_baud must be 0-7, got %d", a.LegacyMinBaud)
	}
	return nil
}

// ParseModeControl normalises a mode control kind. Empty means none.
func ParseModeControl(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeControlNone, nil
	}
	for _, k := range ModeControlKinds {
		if s == k {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown mode control %q (use %s)", s, strings.Join(ModeControlKinds, ", "))
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultAdapter string `yaml:"default_adapter,omitempty"` // Adapter used when --adapter is not given
	LogLevel       string `yaml:"log_level,omitempty"`       // debug, info, warn, error or off
	Listen         string `yaml:"listen"`                    // Bridge listen address
	Advertise      bool   `yaml:"advertise"`                 // Announce the bridge over mDNS
}

// DefaultListen is the bridge listen address when nothing else is set.
const DefaultListen = ":8089"

func defaultPreferences() *Preferences {
	return &Preferences{
		Listen:    DefaultListen,
		Advertise: true,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     registryVersion,
		Adapters:    make(map[string]*Adapter),
		Preferences: defaultPreferences(),
	}
}

// GetAdapter retrieves an adapter profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetAdapter(name string) *Adapter {
	return r.Adapters[name]
}

// SetAdapter validates and stores an adapter profile under name.
func (r *Registry) SetAdapter(name string, a *Adapter) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("adapter name cannot be empty")
	}
	mc, err := ParseModeControl(a.ModeControl)
	if err != nil {
		return err
	}
	a.ModeControl = mc
	if err := a.Validate(); err != nil {
		return err
	}
	if r.Adapters == nil {
		r.Adapters = make(map[string]*Adapter)
	}
	r.Adapters[name] = a
	return nil
}

// RemoveAdapter deletes a profile. It reports whether the profile existed.
// Removing the default adapter clears the preference.
func (r *Registry) RemoveAdapter(name string) bool {
	if _, ok := r.Adapters[name]; !ok {
		return false
	}
	delete(r.Adapters, name)
	if r.Preferences != nil && r.Preferences.DefaultAdapter == name {
		r.Preferences.DefaultAdapter = ""
	}
	return true
}

// AdapterNames returns the profile names in sorted order.
func (r *Registry) AdapterNames() []string {
	names := make([]string, 0, len(r.Adapters))
	for name := range r.Adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarkSeen records a successful detection through an adapter.
func (r *Registry) MarkSeen(name string, at time.Time) {
	if a := r.Adapters[name]; a != nil {
		a.LastSeen = at
	}
}

// ResolveAdapter picks the adapter profile to use: the named one, else the
// default preference. A nil result with a nil error means no profile applies.
func (r *Registry) ResolveAdapter(name string) (*Adapter, error) {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultAdapter
	}
	if name == "" {
		return nil, nil
	}
	a := r.Adapters[name]
	if a == nil {
		return nil, fmt.Errorf("no adapter profile named %q (see 'hcat-cfg adapter list')", name)
	}
	return a, nil
}
