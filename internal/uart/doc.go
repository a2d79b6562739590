// Package uart is the physical side of the configurator: the local serial
// port, the KEY/EN mode pin, and port enumeration.
//
// The probe and session code in hcdevice only see the Link and ModeControl
// interfaces, so the same logic runs against a real adapter, the simulator
// in internal/sim, or a gomock double:
//
//	link := uart.NewSerialLink("/dev/ttyUSB0")
//	mode := uart.NewLineMode(link, uart.LineRTS, true)
//	sess := hcdevice.NewSession(link, mode)
//
// Mode controllers:
//
//   - NoopMode: KEY strapped by hand, or a Legacy HC-06
//   - LineMode: KEY driven from RTS or DTR of the USB adapter
//   - SysfsGPIO: KEY driven from a Linux GPIO (Raspberry Pi header)
package uart
