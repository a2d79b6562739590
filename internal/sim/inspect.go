package sim

import (
	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/uart"
)

// Baud returns the module's current baud rate
func (d *Device) Baud() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baud
}

// Parity returns the module's active parity
func (d *Device) Parity() atcmd.Parity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parity
}

// PendingParity reports a Legacy parity change waiting for a power cycle.
func (d *Device) PendingParity() (atcmd.Parity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pendingParity == nil {
		return atcmd.ParityNone, false
	}
	return *d.pendingParity, true
}

// Name returns the advertised name
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// Pin returns the pairing PIN
func (d *Device) Pin() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pin
}

// Role returns the stored role
func (d *Device) Role() atcmd.Role {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.role
}

// Mode returns the KEY pin state
func (d *Device) Mode() uart.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// IsOpen reports whether the host side is open.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Opens returns how many times the host opened the port.
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Closes returns how many times an open port was closed.
func (d *Device) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// OpenWhileOpen counts Open calls made without closing the previous cell.
func (d *Device) OpenWhileOpen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openWhileOpen
}

// History returns every host configuration opened, in order.
func (d *Device) History() []Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Settings(nil), d.history...)
}

// Writes returns a copy of every write, in order.
func (d *Device) Writes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.writes))
	for i, w := range d.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// BytesWritten is the total number of bytes the host wrote.
func (d *Device) BytesWritten() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, w := range d.writes {
		n += len(w)
	}
	return n
}

// Commands returns the commands the module actually understood, without
// terminators.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// ResetHistory clears recorded opens, writes and commands.
func (d *Device) ResetHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens, d.closes, d.openWhileOpen = 0, 0, 0
	d.history = nil
	d.writes = nil
	d.commands = nil
}
