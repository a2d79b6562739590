package uart

import (
	"fmt"

	"github.com/muurk/hcat/internal/atcmd"
)

//go:generate go tool mockgen -source=link.go -destination=mock_uart.go -package=uart

// Link is a duplex byte channel to the module with explicit open/close.
//
// Available and ReadAll never block waiting for new data beyond a short
// inter-byte gap; the caller owns all protocol timing. Open on an already
// open link closes it first, so no partial-open state is ever visible.
type Link interface {
	// Open (re)configures the local UART at baudRate and parity, 8 data bits,
	// one stop bit.
	Open(baudRate int, parity atcmd.Parity) error

	// Close releases the port. Closing a closed link is a no-op.
	Close() error

	// Write queues bytes for transmission.
	Write(p []byte) (int, error)

	// Flush blocks until every written byte has left the UART.
	Flush() error

	// Available returns how many received bytes can be read without waiting.
	Available() (int, error)

	// ReadAll returns everything received so far, including bytes still
	// trickling in until the line goes quiet.
	ReadAll() ([]byte, error)
}

// Mode is the state of the module's KEY/EN pin.
type Mode int

const (
	// ModeData passes bytes through to the Bluetooth peer.
	ModeData Mode = iota
	// ModeCommand makes the module interpret AT commands.
	ModeCommand
)

// String returns a human-readable name for the mode
func (m Mode) String() string {
	switch m {
	case ModeData:
		return "data"
	case ModeCommand:
		return "command"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeControl drives the mode-select pin. Implementations apply their own
// settle time after a change.
type ModeControl interface {
	SetMode(mode Mode) error
}
