package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/hcdevice"
)

// Action is one entry of the main menu.
type Action int

const (
	ActionSetBaud Action = iota
	ActionSetName
	ActionSetPin
	ActionSetParity
	ActionSetRole
	ActionLocalBaud
	ActionLocalParity
	ActionVersion
	ActionRescan
	ActionQuit
)

// menu is shown numbered; the digit keys select entries directly.
var menu = []struct {
	action Action
	label  string
}{
	{ActionSetBaud, "Set module baud rate"},
	{ActionSetName, "Set Bluetooth name"},
	{ActionSetPin, "Set pairing PIN"},
	{ActionSetParity, "Set module parity"},
	{ActionSetRole, "Set role (HC-05)"},
	{ActionLocalBaud, "Set local baud rate (host only)"},
	{ActionLocalParity, "Set local parity (host only)"},
	{ActionVersion, "Query firmware version"},
	{ActionRescan, "Rescan for module"},
	{ActionQuit, "Quit"},
}

func (a Action) String() string {
	for _, m := range menu {
		if m.action == a {
			return m.label
		}
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// option is a choice in the selection list.
type option struct {
	label  string
	note   string
	index  int
	parity atcmd.Parity
	role   atcmd.Role
}

func (o option) Title() string       { return o.label }
func (o option) Description() string { return o.note }
func (o option) FilterValue() string { return o.label }

// optionsFor builds the choices for actions that pick from a fixed set.
func optionsFor(a Action, cfg hcdevice.DeviceConfig, localBaud int, localParity atcmd.Parity) []list.Item {
	var items []list.Item
	switch a {
	case ActionSetBaud, ActionLocalBaud:
		lo := 0
		current := localBaud
		if a == ActionSetBaud {
			lo = atcmd.MinBaudIndex(cfg.Dialect)
			current = cfg.UART.BaudRate()
		}
		for i := lo; i < len(atcmd.BaudRates); i++ {
			o := option{label: strconv.Itoa(atcmd.BaudRates[i]), index: i}
			if atcmd.BaudRates[i] == current {
				o.note = "current"
			}
			items = append(items, o)
		}
	case ActionSetParity, ActionLocalParity:
		current := localParity
		if a == ActionSetParity {
			current = cfg.UART.Parity
		}
		for _, p := range atcmd.Parities {
			o := option{label: p.String(), parity: p}
			if p == current {
				o.note = "current"
			}
			if a == ActionSetParity && cfg.Dialect == atcmd.DialectLegacy {
				o.note += " (needs power cycle)"
			}
			items = append(items, o)
		}
	case ActionSetRole:
		for _, r := range []atcmd.Role{atcmd.RoleSecondary, atcmd.RolePrimary, atcmd.RoleSecondaryLoop} {
			o := option{label: r.String(), role: r}
			if r == cfg.Role {
				o.note = "current"
			}
			items = append(items, o)
		}
	}
	return items
}

type opDoneMsg struct {
	action Action
	detail string
	err    error
}

// runCmd performs an action against the session off the UI goroutine. The
// model accepts no further actions until opDoneMsg arrives, so the session
// is never used concurrently.
func runCmd(s *hcdevice.Session, a Action, o option, text string) tea.Cmd {
	return func() tea.Msg {
		var (
			detail string
			err    error
		)
		switch a {
		case ActionSetBaud:
			err = s.SetBaud(o.index)
			detail = fmt.Sprintf("Module baud rate set to %d", atcmd.BaudRates[o.index])
		case ActionSetName:
			var name string
			name, err = s.SetName(text)
			detail = fmt.Sprintf("Name set to %q", name)
		case ActionSetPin:
			err = s.SetPin(text)
			detail = "PIN updated"
		case ActionSetParity:
			err = s.SetParity(o.parity)
			detail = "Module parity set to " + o.parity.String()
		case ActionSetRole:
			err = s.SetRole(o.role)
			detail = "Role set to " + o.role.String()
		case ActionLocalBaud:
			err = s.SetLocalBaud(o.index)
			detail = fmt.Sprintf("Host link now at %d; the module was not changed", atcmd.BaudRates[o.index])
		case ActionLocalParity:
			err = s.SetLocalParity(o.parity)
			detail = "Host link parity now " + o.parity.String() + "; the module was not changed"
		case ActionVersion:
			var v string
			v, err = s.Version()
			detail = "Firmware: " + v
		}
		return opDoneMsg{action: a, detail: detail, err: err}
	}
}
