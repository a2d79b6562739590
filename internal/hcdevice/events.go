package hcdevice

import (
	"time"

	"github.com/muurk/hcat/internal/atcmd"
)

// Clock is the time source for every settle and response wait. Tests pass
// sim.FakeClock so detection runs instantly.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// EventType identifies what an Event reports.
type EventType int

const (
	EventDetectStart EventType = iota
	EventProbeCell
	EventTransaction
	EventStateChange
	EventDetectDone
)

// String returns the event name used on the wire by the bridge
func (t EventType) String() string {
	switch t {
	case EventDetectStart:
		return "detect_start"
	case EventProbeCell:
		return "probe_cell"
	case EventTransaction:
		return "transaction"
	case EventStateChange:
		return "state_change"
	case EventDetectDone:
		return "detect_done"
	default:
		return "unknown"
	}
}

// Event is a progress report from a Probe or Session. Only the fields that
// apply to Type are set.
type Event struct {
	Type EventType
	Time time.Time

	// probe cells
	Dialect  atcmd.Dialect
	BaudRate int
	Parity   atcmd.Parity
	Cell     int
	Total    int
	Matched  bool

	// transactions
	Kind     atcmd.CommandKind
	Command  []byte
	Response []byte
	OK       bool
	Wait     time.Duration

	// state changes
	From   State
	To     State
	Reason string

	// detect done
	Config *DeviceConfig
}

// Observer receives events synchronously on the calling goroutine. It must
// not call back into the Session.
type Observer func(Event)

// Option configures a Probe or Session.
type Option func(*options)

type options struct {
	clock      Clock
	observer   Observer
	legacyMin  int
	powerCycle PowerCycleFunc
}

func defaultOptions() options {
	return options{
		clock:     SystemClock,
		legacyMin: atcmd.MinBaudIndex(atcmd.DialectLegacy),
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithObserver registers a progress callback. Several observers are called
// in the order they were given.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		switch prev := o.observer; {
		case fn == nil:
		case prev == nil:
			o.observer = fn
		default:
			o.observer = func(e Event) {
				prev(e)
				fn(e)
			}
		}
	}
}

// WithLegacyMinBaud raises the lowest baud index tried for Legacy firmware.
// Index 2 (4800) skips the two slowest Legacy cells per parity, which take
// the longest to probe.
func WithLegacyMinBaud(index int) Option {
	return func(o *options) {
		if atcmd.ValidBaudIndex(index) {
			o.legacyMin = index
		}
	}
}

// PowerCycleFunc restarts the module. Legacy parity changes only take effect
// after a power cycle; the Session calls it between closing and reopening the
// link. Interactive front ends prompt the user here.
type PowerCycleFunc func() error

// WithPowerCycle registers the power cycle hook.
func WithPowerCycle(fn PowerCycleFunc) Option {
	return func(o *options) { o.powerCycle = fn }
}

// SearchCells returns how many cells a full search probes.
func SearchCells(legacyMin int) int {
	n := len(atcmd.BaudRates)
	return len(atcmd.Parities) * ((n - atcmd.MinBaudIndex(atcmd.DialectModern)) + (n - legacyMin))
}
