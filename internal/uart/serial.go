package uart

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/logging"
)

const (
	// pollTimeout bounds a single non-blocking read in Available.
	pollTimeout = 1 * time.Millisecond

	// DefaultQuietGap is the silence that ends a ReadAll.
	DefaultQuietGap = 20 * time.Millisecond
)

// ControlLine is a modem output line of the USB-UART adapter.
type ControlLine int

const (
	LineRTS ControlLine = iota
	LineDTR
)

// String returns the line name
func (c ControlLine) String() string {
	if c == LineDTR {
		return "DTR"
	}
	return "RTS"
}

// ParseControlLine accepts "rts" or "dtr".
func ParseControlLine(s string) (ControlLine, error) {
	switch s {
	case "rts", "RTS":
		return LineRTS, nil
	case "dtr", "DTR":
		return LineDTR, nil
	}
	return LineRTS, fmt.Errorf("unknown control line %q (use rts or dtr)", s)
}

// openFunc is serial.Open; replaced in tests.
type openFunc func(portName string, mode *serial.Mode) (serial.Port, error)

// SerialLink is a Link over a local serial device using go.bug.st/serial.
type SerialLink struct {
	path     string
	open     openFunc
	port     serial.Port
	baud     int
	parity   atcmd.Parity
	pending  []byte
	rts, dtr bool

	// QuietGap is how long ReadAll waits for more bytes before returning.
	QuietGap time.Duration
}

// NewSerialLink creates a link for the device at path. The port is not
// opened until Open is called.
func NewSerialLink(path string) *SerialLink {
	return &SerialLink{
		path:     path,
		open:     serial.Open,
		QuietGap: DefaultQuietGap,
	}
}

// Path returns the device path
func (l *SerialLink) Path() string {
	return l.path
}

// IsOpen reports whether the port is currently open
func (l *SerialLink) IsOpen() bool {
	return l.port != nil
}

// Settings returns the baud rate and parity of the last successful Open
func (l *SerialLink) Settings() (int, atcmd.Parity) {
	return l.baud, l.parity
}

// Open implements Link.
func (l *SerialLink) Open(baudRate int, parity atcmd.Parity) error {
	if l.port != nil {
		if err := l.Close(); err != nil {
			return err
		}
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   toSerialParity(parity),
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			RTS: l.rts,
			DTR: l.dtr,
		},
	}

	port, err := l.open(l.path, mode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.path, describePortError(err))
	}
	if err := port.SetReadTimeout(pollTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", l.path, err)
	}

	l.port = port
	l.baud = baudRate
	l.parity = parity
	l.pending = l.pending[:0]

	logging.Debug("Serial port opened",
		zap.String("path", l.path),
		zap.Int("baud", baudRate),
		zap.String("parity", parity.String()),
	)
	return nil
}

// Close implements Link.
func (l *SerialLink) Close() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	l.pending = l.pending[:0]
	logging.Debug("Serial port closed", zap.String("path", l.path))
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", l.path, err)
	}
	return nil
}

// Write implements Link.
func (l *SerialLink) Write(p []byte) (int, error) {
	if l.port == nil {
		return 0, ErrNotOpen
	}
	return l.port.Write(p)
}

// Flush implements Link by waiting for the OS transmit buffer to drain.
func (l *SerialLink) Flush() error {
	if l.port == nil {
		return ErrNotOpen
	}
	return l.port.Drain()
}

// Available implements Link. It moves whatever the OS has buffered into
// the link's own buffer and reports its size.
func (l *SerialLink) Available() (int, error) {
	if l.port == nil {
		return 0, ErrNotOpen
	}
	buf := make([]byte, 256)
	for {
		n, err := l.port.Read(buf)
		if n > 0 {
			l.pending = append(l.pending, buf[:n]...)
		}
		if err != nil {
			return len(l.pending), fmt.Errorf("read from %s: %w", l.path, err)
		}
		if n == 0 {
			return len(l.pending), nil
		}
	}
}

// ReadAll implements Link. It returns buffered bytes plus anything that
// arrives before QuietGap of silence.
func (l *SerialLink) ReadAll() ([]byte, error) {
	if l.port == nil {
		return nil, ErrNotOpen
	}

	buf := make([]byte, 256)
	quiet := time.Now().Add(l.QuietGap)
	for time.Now().Before(quiet) {
		n, err := l.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read from %s: %w", l.path, err)
		}
		if n > 0 {
			l.pending = append(l.pending, buf[:n]...)
			quiet = time.Now().Add(l.QuietGap)
		}
	}

	out := make([]byte, len(l.pending))
	copy(out, l.pending)
	l.pending = l.pending[:0]
	return out, nil
}

// SetLine drives RTS or DTR. The level is remembered and reapplied on every
// Open, so the mode pin survives the reopen between probe cells.
func (l *SerialLink) SetLine(line ControlLine, level bool) error {
	switch line {
	case LineDTR:
		l.dtr = level
	default:
		l.rts = level
	}
	if l.port == nil {
		return nil
	}
	var err error
	if line == LineDTR {
		err = l.port.SetDTR(level)
	} else {
		err = l.port.SetRTS(level)
	}
	if err != nil {
		return fmt.Errorf("failed to set %s on %s: %w", line, l.path, err)
	}
	return nil
}

// ErrNotOpen is returned by I/O on a closed link.
var ErrNotOpen = errors.New("serial link is not open")

func toSerialParity(p atcmd.Parity) serial.Parity {
	switch p {
	case atcmd.ParityOdd:
		return serial.OddParity
	case atcmd.ParityEven:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

// describePortError adds a hint for the common go.bug.st/serial failures.
func describePortError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w (is the adapter plugged in? try 'hcat-cfg ports')", err)
	case serial.PortBusy:
		return fmt.Errorf("%w (another program holds the port)", err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w (add your user to the dialout group)", err)
	case serial.InvalidSpeed:
		return fmt.Errorf("%w (adapter does not support this baud rate)", err)
	}
	return err
}
