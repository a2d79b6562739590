// Package hcdevice detects and configures HC-05 and HC-06 Bluetooth serial
// modules over a UART link.
//
// Detection is a bounded search over firmware dialect, parity and baud rate.
// Each cell reopens the link, sends a bare AT and waits the response delay
// computed by package atcmd. The first OK wins. HC-05 and HC-06 are then told
// apart by how the module answers role commands.
//
// # Usage Example
//
//	link := uart.NewSerialLink("/dev/ttyUSB0")
//	s := hcdevice.NewSession(link, uart.NewLineMode(link, uart.LineRTS, false))
//	defer s.Close()
//
//	cfg, err := s.Detect(ctx)
//	if err != nil {
//	    log.Fatal(hcdevice.GetShortErrorMessage(err))
//	}
//	fmt.Println(cfg.Summary())
//
//	if err := s.ConfigureUART(115200, atcmd.ParityNone); hcdevice.IsLinkDesync(err) {
//	    // the module took the change but is silent at the new settings
//	    cfg, err = s.Detect(ctx)
//	}
//
// # Session States
//
// A Session starts Undetected. A successful Detect moves it to Detected,
// where configuration calls are allowed. A failed post-change echo moves it
// to LinkInvalidated; every call except Detect then fails with a
// precondition error and performs no I/O.
//
// # Multi-field Changes
//
// PlanBuilder validates a name, PIN, role and UART change together before
// anything is written, and Plan.Apply runs them in an order that leaves the
// UART change for last.
package hcdevice
