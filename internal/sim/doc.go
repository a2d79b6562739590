// Package sim simulates HC-05 and HC-06 modules behind a USB-UART adapter.
//
// A Device is both the uart.Link and the uart.ModeControl of a session, and
// runs on a FakeClock shared with the session so detection and every
// configuration transaction are deterministic:
//
//	clock := sim.NewFakeClock()
//	dev := sim.New(sim.HC05, sim.WithClock(clock), sim.WithBaud(9600))
//	sess := hcdevice.NewSession(dev, dev, hcdevice.WithClock(clock))
//
// The module answers only when the host opened the port at its baud and
// parity. Reply bytes appear one frame time apart after the profile latency,
// so a too-short response wait produces the same false negative it would on
// real hardware.
//
// The same device backs the --sim flag of hcat-cfg and hcat-server.
package sim
