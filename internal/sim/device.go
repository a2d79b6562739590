package sim

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/uart"
)

// QuietGap matches uart.DefaultQuietGap: ReadAll waits this long after the
// last byte.
const QuietGap = uart.DefaultQuietGap

// addrReply is the Bluetooth address reported by AT+ADDR?.
const addrReply = "+ADDR:98d3:31:f5b1c2"

// Settings is one local UART configuration the host opened.
type Settings struct {
	Baud   int
	Parity atcmd.Parity
}

type reply struct {
	at       time.Time
	data     []byte
	charTime time.Duration
}

func (r reply) end() time.Time {
	return r.at.Add(time.Duration(len(r.data)) * r.charTime)
}

// Device is a simulated HC-05/HC-06 wired to a simulated USB-UART adapter.
// It implements uart.Link (the host side) and uart.ModeControl (the KEY pin).
//
// The module only understands bytes when the host opened the port at the
// module's baud and parity. Replies become visible to Available one
// character at a time, after the module latency, measured on the shared
// FakeClock.
type Device struct {
	mu      sync.Mutex
	clock   *FakeClock
	profile Profile

	// module side
	baud          int
	parity        atcmd.Parity
	stop          atcmd.StopBits
	pendingParity *atcmd.Parity
	name          string
	pin           string
	role          atcmd.Role
	mode          uart.Mode
	lineBuf       []byte
	muted         bool

	// failure injection
	noise           bool
	muteAfterChange bool

	// host side
	open       bool
	hostBaud   int
	hostParity atcmd.Parity
	unflushed  int
	replies    []reply

	// recorded history
	opens         int
	closes        int
	openWhileOpen int
	history       []Settings
	writes        [][]byte
	commands      []string
}

// Option configures a Device.
type Option func(*Device)

// WithClock shares a clock with the code under test.
func WithClock(c *FakeClock) Option {
	return func(d *Device) { d.clock = c }
}

// WithBaud sets the module's current baud rate.
func WithBaud(rate int) Option {
	return func(d *Device) { d.baud = rate }
}

// WithParity sets the module's current parity.
func WithParity(p atcmd.Parity) Option {
	return func(d *Device) { d.parity = p }
}

// WithRole sets the stored role (HC-05 only).
func WithRole(r atcmd.Role) Option {
	return func(d *Device) { d.role = r }
}

// WithName sets the advertised name.
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// WithLineNoise makes the module answer mismatched framing with garbage bytes
// instead of silence, as a real module does at the wrong baud.
func WithLineNoise() Option {
	return func(d *Device) { d.noise = true }
}

// WithMuteAfterChange makes the module stop answering after it accepts a baud
// or parity change, so the post-change echo fails.
func WithMuteAfterChange() Option {
	return func(d *Device) { d.muteAfterChange = true }
}

// New creates a simulated module at the profile's factory settings.
func New(profile Profile, opts ...Option) *Device {
	d := &Device{
		profile: profile,
		baud:    profile.DefaultBaud,
		parity:  atcmd.ParityNone,
		name:    profile.DefaultName,
		pin:     profile.DefaultPin,
		role:    atcmd.RoleSecondary,
		mode:    uart.ModeData,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = NewFakeClock()
	}
	return d
}

// Clock returns the clock the device measures latency on.
func (d *Device) Clock() *FakeClock {
	return d.clock
}

// Profile returns the firmware profile
func (d *Device) Profile() Profile {
	return d.profile
}

// Open implements uart.Link.
func (d *Device) Open(baudRate int, parity atcmd.Parity) error {
	if baudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", baudRate)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		d.openWhileOpen++
	}
	d.open = true
	d.hostBaud = baudRate
	d.hostParity = parity
	d.unflushed = 0
	d.replies = nil
	d.opens++
	d.history = append(d.history, Settings{Baud: baudRate, Parity: parity})
	return nil
}

// Close implements uart.Link. Replies still in flight are lost.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil
	}
	d.open = false
	d.replies = nil
	d.unflushed = 0
	d.closes++
	return nil
}

// Write implements uart.Link. The module reacts immediately; its reply is
// scheduled after the command has been transmitted plus the module latency.
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0, uart.ErrNotOpen
	}
	buf := append([]byte(nil), p...)
	d.writes = append(d.writes, buf)
	d.unflushed += len(buf)

	arrived := d.clock.Now().Add(time.Duration(len(buf)) * d.charTime())

	switch {
	case d.profile.RequiresKey && d.mode != uart.ModeCommand:
		// data mode: bytes go to the Bluetooth peer
	case d.muted:
	case d.hostBaud != d.baud || d.hostParity != d.parity:
		// framing errors leave a junk byte in the module's line buffer
		if d.profile.Dialect == atcmd.DialectModern {
			d.lineBuf = append(d.lineBuf, 0xFF)
		}
		if d.noise {
			d.queue([]byte{0xF8, 0x00, 0x80}, arrived)
		}
	default:
		d.receive(buf, arrived.Add(d.profile.Latency))
	}
	return len(buf), nil
}

// Flush implements uart.Link by advancing the clock by the transmit time of
// everything written since the last flush.
func (d *Device) Flush() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return uart.ErrNotOpen
	}
	tx := time.Duration(d.unflushed) * d.charTime()
	d.unflushed = 0
	d.mu.Unlock()

	d.clock.Advance(tx)
	return nil
}

// Available implements uart.Link.
func (d *Device) Available() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0, uart.ErrNotOpen
	}
	now := d.clock.Now()
	n := 0
	for _, r := range d.replies {
		if now.Before(r.at) {
			continue
		}
		got := int(now.Sub(r.at) / r.charTime)
		if got > len(r.data) {
			got = len(r.data)
		}
		n += got
	}
	return n, nil
}

// ReadAll implements uart.Link. Like the real link it keeps reading until
// QuietGap passes without a byte, so the clock moves forward.
func (d *Device) ReadAll() ([]byte, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, uart.ErrNotOpen
	}

	deadline := d.clock.Now().Add(QuietGap)
	taken := 0
	for taken < len(d.replies) && !d.replies[taken].at.After(deadline) {
		if end := d.replies[taken].end().Add(QuietGap); end.After(deadline) {
			deadline = end
		}
		taken++
	}

	var out []byte
	for _, r := range d.replies[:taken] {
		out = append(out, r.data...)
	}
	d.replies = d.replies[taken:]
	wait := deadline.Sub(d.clock.Now())
	d.mu.Unlock()

	d.clock.Advance(wait)
	return out, nil
}

// SetMode implements uart.ModeControl for the module's KEY pin.
func (d *Device) SetMode(mode uart.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = mode
	return nil
}

// PowerCycle restarts the module. A pending Legacy parity change takes
// effect and any half-received command is forgotten.
func (d *Device) PowerCycle() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pendingParity != nil {
		d.parity = *d.pendingParity
		d.pendingParity = nil
	}
	d.lineBuf = nil
	d.replies = nil
}

// Mute stops the module answering anything, like a loose wire.
func (d *Device) Mute() {
	d.mu.Lock()
	d.muted = true
	d.mu.Unlock()
}

// Unmute reverses Mute and WithMuteAfterChange.
func (d *Device) Unmute() {
	d.mu.Lock()
	d.muted = false
	d.muteAfterChange = false
	d.mu.Unlock()
}

// charTime is the real 8-bit frame time at the host settings. It is always
// shorter than the 12-bit worst case the response delay assumes.
func (d *Device) charTime() time.Duration {
	bits := 10
	if d.hostParity != atcmd.ParityNone {
		bits = 11
	}
	if d.hostBaud <= 0 {
		return time.Millisecond
	}
	return time.Duration(bits) * time.Second / time.Duration(d.hostBaud)
}

func (d *Device) queue(data []byte, at time.Time) {
	if len(data) == 0 {
		return
	}
	if n := len(d.replies); n > 0 {
		if end := d.replies[n-1].end(); end.After(at) {
			at = end
		}
	}
	d.replies = append(d.replies, reply{at: at, data: data, charTime: d.charTime()})
}

func (d *Device) receive(p []byte, at time.Time) {
	if d.profile.Dialect == atcmd.DialectLegacy {
		// Legacy firmware treats each burst as one command
		cmd := string(p)
		d.commands = append(d.commands, cmd)
		resp, apply := d.legacyCommand(cmd)
		d.queue([]byte(resp), at)
		if apply != nil {
			apply()
		}
		return
	}

	d.lineBuf = append(d.lineBuf, p...)
	for {
		i := bytes.Index(d.lineBuf, []byte("\r\n"))
		if i < 0 {
			return
		}
		line := string(d.lineBuf[:i])
		d.lineBuf = d.lineBuf[i+2:]
		d.commands = append(d.commands, line)
		resp, apply := d.modernCommand(line)
		d.queue([]byte(resp), at)
		if apply != nil {
			apply()
		}
	}
}

func (d *Device) afterChange() {
	if d.muteAfterChange {
		d.muted = true
	}
}

func modernOK(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	b.WriteString("OK\r\n")
	return b.String()
}

func modernError(code atcmd.ErrorCode) string {
	return fmt.Sprintf("ERROR:(%X)\r\n", int(code))
}

func (d *Device) modernCommand(line string) (string, func()) {
	switch {
	case line == "AT":
		return modernOK(), nil
	case line == "AT+VERSION?":
		return modernOK("+VERSION:" + d.profile.Version), nil
	case line == "AT+NAME?":
		return modernOK("+NAME:" + d.name), nil
	case strings.HasPrefix(line, "AT+NAME="):
		name := strings.TrimPrefix(line, "AT+NAME=")
		if name == "" {
			return modernError(0x04), nil
		}
		if len(name) > 32 {
			return modernError(0x03), nil
		}
		d.name = name
		return modernOK(), nil
	case line == "AT+PSWD?":
		return modernOK("+PSWD:" + d.pin), nil
	case strings.HasPrefix(line, "AT+PSWD="):
		return d.modernPasskey(strings.TrimPrefix(line, "AT+PSWD="))
	case line == "AT+UART?":
		return modernOK(fmt.Sprintf("+UART:%d,%d,%d", d.baud, int(d.stop), int(d.parity))), nil
	case strings.HasPrefix(line, "AT+UART="):
		return d.modernUART(strings.TrimPrefix(line, "AT+UART="))
	case line == "AT+ROLE?":
		switch d.profile.RoleReply {
		case RoleReplyBare:
			return modernOK(), nil
		case RoleReplyLetter:
			return modernOK("+ROLE:S"), nil
		default:
			return modernOK(fmt.Sprintf("+ROLE:%d", int(d.role))), nil
		}
	case strings.HasPrefix(line, "AT+ROLE="):
		if !d.profile.RoleSettable {
			return modernError(0x00), nil
		}
		n, err := strconv.Atoi(strings.TrimPrefix(line, "AT+ROLE="))
		if err != nil || !atcmd.Role(n).Valid() {
			return modernError(0x11), nil
		}
		d.role = atcmd.Role(n)
		return modernOK(), nil
	case line == "AT+ADDR?":
		return modernOK(addrReply), nil
	case line == "AT+RESET":
		return modernOK(), nil
	case line == "AT+ORGL":
		return modernOK(), func() {
			d.name = d.profile.DefaultName
			d.pin = d.profile.DefaultPin
			d.role = atcmd.RoleSecondary
			d.baud = d.profile.DefaultBaud
			d.parity = atcmd.ParityNone
			d.stop = atcmd.StopBitsOne
		}
	}
	return modernError(0x00), nil
}

func (d *Device) modernPasskey(v string) (string, func()) {
	quoted := len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`)
	if quoted {
		v = v[1 : len(v)-1]
	} else if d.profile.QuotedPasskey {
		return modernError(0x00), nil
	}
	if v == "" {
		return modernError(0x0F), nil
	}
	if len(v) > 16 {
		return modernError(0x10), nil
	}
	d.pin = v
	return modernOK(), nil
}

func (d *Device) modernUART(payload string) (string, func()) {
	fields := strings.Split(payload, ",")
	if len(fields) != 3 {
		return modernError(0x00), nil
	}
	vals := make([]int, 3)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return modernError(0x00), nil
		}
		vals[i] = v
	}
	if idx := atcmd.BaudIndex(vals[0]); idx < atcmd.ModernMinBaudIndex {
		return modernError(0x12), nil
	}
	if vals[1] != 0 && vals[1] != 1 {
		return modernError(0x13), nil
	}
	if !atcmd.Parity(vals[2]).Valid() {
		return modernError(0x14), nil
	}
	return modernOK(), func() {
		d.baud = vals[0]
		d.stop = atcmd.StopBits(vals[1])
		d.parity = atcmd.Parity(vals[2])
		d.afterChange()
	}
}

func (d *Device) legacyCommand(cmd string) (string, func()) {
	if strings.ContainsAny(cmd, "\r\n") {
		return "", nil
	}
	switch {
	case cmd == "AT":
		return "OK", nil
	case cmd == "AT+VERSION":
		return "OK" + d.profile.Version, nil
	case strings.HasPrefix(cmd, "AT+NAME"):
		name := strings.TrimPrefix(cmd, "AT+NAME")
		if name == "" || len(name) > 20 {
			return "", nil
		}
		d.name = name
		return "OKsetname", nil
	case strings.HasPrefix(cmd, "AT+PIN"):
		pin := strings.TrimPrefix(cmd, "AT+PIN")
		if len(pin) != 4 || strings.Trim(pin, "0123456789") != "" {
			return "", nil
		}
		d.pin = pin
		return "OKsetPIN", nil
	case strings.HasPrefix(cmd, "AT+BAUD"):
		digit := strings.TrimPrefix(cmd, "AT+BAUD")
		n, err := strconv.Atoi(digit)
		if err != nil || len(digit) != 1 || !atcmd.ValidBaudIndex(n-1) {
			return "", nil
		}
		rate := atcmd.BaudRates[n-1]
		return "OK" + strconv.Itoa(rate), func() {
			d.baud = rate
			d.afterChange()
		}
	case cmd == "AT+PN", cmd == "AT+PO", cmd == "AT+PE":
		p := map[string]atcmd.Parity{"AT+PN": atcmd.ParityNone, "AT+PO": atcmd.ParityOdd, "AT+PE": atcmd.ParityEven}[cmd]
		return "OK " + legacyParityName(p), func() {
			d.pendingParity = &p
			d.afterChange()
		}
	}
	return "", nil
}

func legacyParityName(p atcmd.Parity) string {
	switch p {
	case atcmd.ParityOdd:
		return "ODD"
	case atcmd.ParityEven:
		return "EVEN"
	default:
		return "None"
	}
}
