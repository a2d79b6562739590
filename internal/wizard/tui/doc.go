// Package tui implements the interactive hcat-cfg wizard.
//
// The wizard detects the module on start, then loops over a numbered menu:
//
//  1. Set module baud rate
//  2. Set Bluetooth name
//  3. Set pairing PIN
//  4. Set module parity
//  5. Set role (HC-05)
//  6. Set local baud rate (host only)
//  7. Set local parity (host only)
//  8. Query firmware version
//  9. Rescan for module
//
// Every session call runs in a tea.Cmd and the model refuses input until it
// reports back, so the session is only ever used by one goroutine at a time.
// Probe progress and the Legacy power cycle prompt reach the model over
// channels that the model re-arms after each message.
//
// When a UART change leaves the link invalidated, any key on the result
// screen starts a new search.
package tui
