package hcdevice

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/uart"
)

// Session owns one module behind one link. Every configuration change is a
// confirmed transaction: precondition, validation, command, OK. A UART change
// is followed by reopening the link and an echo at the new settings.
//
// A Session is not safe for concurrent use; callers sharing a physical link
// serialise access themselves.
type Session struct {
	c          *conn
	probe      *Probe
	powerCycle PowerCycleFunc

	cfg   DeviceConfig
	state State
}

// NewSession creates an undetected session. Call Detect before anything else.
func NewSession(link uart.Link, mode uart.ModeControl, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := newConn(link, mode, o)
	return &Session{
		c:          c,
		probe:      &Probe{c: c, legacyMin: o.legacyMin},
		powerCycle: o.powerCycle,
		cfg:        unknownConfig(),
		state:      StateUndetected,
	}
}

// State returns the session state
func (s *Session) State() State {
	return s.state
}

// Config returns a copy of what is known about the module
func (s *Session) Config() DeviceConfig {
	return s.cfg
}

// LocalSettings returns the baud rate and parity the host link is open at.
// It differs from Config().UART only after SetLocalBaud or SetLocalParity.
func (s *Session) LocalSettings() (int, atcmd.Parity) {
	return s.c.baud, s.c.parity
}

// Detect searches for the module. It is the only way out of
// StateLinkInvalidated.
func (s *Session) Detect(ctx context.Context) (DeviceConfig, error) {
	det, err := s.probe.Detect(ctx)
	if err != nil {
		s.cfg = unknownConfig()
		s.setState(StateUndetected, "detection aborted")
		return s.cfg, err
	}
	if !det.Found {
		s.cfg = unknownConfig()
		s.setState(StateUndetected, "no module found")
		return s.cfg, &DeviceError{
			Type:      ErrTypeNoResponse,
			Message:   fmt.Sprintf("no module answered in %d configurations", det.Cells),
			Command:   atcmd.Echo,
			Retryable: true,
		}
	}

	s.cfg = det.Config
	s.setState(StateDetected, fmt.Sprintf("%s %s at %s", s.cfg.Model, s.cfg.Dialect, s.cfg.UART))
	return s.cfg, nil
}

// TestEcho sends a bare AT. A failed echo means the link no longer matches
// the module, so the session is invalidated.
func (s *Session) TestEcho() (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	defer s.toData(&err)
	if _, err := s.c.confirm(atcmd.Echo, s.cfg.Dialect, ""); err != nil {
		if !IsLinkError(err) {
			s.invalidate("echo failed")
		}
		return err
	}
	return nil
}

// SetBaud changes the module baud rate to BaudRates[index].
func (s *Session) SetBaud(index int) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	if err := ValidateBaudIndex(index, s.cfg.Dialect); err != nil {
		return err
	}
	defer s.toData(&err)

	var payload string
	if s.cfg.Dialect == atcmd.DialectLegacy {
		payload = atcmd.LegacyBaudPayload(index)
	} else {
		payload = atcmd.UARTPayload(atcmd.BaudRates[index], s.cfg.UART.StopBits, s.cfg.UART.Parity)
	}
	if _, err := s.c.confirm(atcmd.BaudSet, s.cfg.Dialect, payload); err != nil {
		return err
	}
	return s.applyUART(atcmd.BaudSet, index, s.cfg.UART.Parity, false)
}

// SetParity changes the module parity. Legacy modules only apply it after a
// power cycle.
func (s *Session) SetParity(p atcmd.Parity) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	if err := ValidateParity(p); err != nil {
		return err
	}
	defer s.toData(&err)

	legacy := s.cfg.Dialect == atcmd.DialectLegacy
	var payload string
	if legacy {
		payload = atcmd.LegacyParityPayload(p)
	} else {
		payload = atcmd.UARTPayload(s.cfg.UART.BaudRate(), s.cfg.UART.StopBits, p)
	}
	if _, err := s.c.confirm(atcmd.ParitySet, s.cfg.Dialect, payload); err != nil {
		return err
	}
	return s.applyUART(atcmd.ParitySet, s.cfg.UART.BaudIndex, p, legacy)
}

// ConfigureUART sets baud rate and parity together. Modern firmware takes a
// single AT+UART; Legacy needs a command for each setting that changes.
func (s *Session) ConfigureUART(baudRate int, parity atcmd.Parity) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	idx, err := ValidateBaudRate(baudRate, s.cfg.Dialect)
	if err != nil {
		return err
	}
	if err := ValidateParity(parity); err != nil {
		return err
	}
	defer s.toData(&err)

	if s.cfg.Dialect == atcmd.DialectLegacy {
		if idx != s.cfg.UART.BaudIndex {
			if err := s.SetBaud(idx); err != nil {
				return err
			}
		}
		if parity != s.cfg.UART.Parity {
			return s.SetParity(parity)
		}
		return nil
	}

	payload := atcmd.UARTPayload(baudRate, s.cfg.UART.StopBits, parity)
	if _, err := s.c.confirm(atcmd.BaudSet, s.cfg.Dialect, payload); err != nil {
		return err
	}
	return s.applyUART(atcmd.BaudSet, idx, parity, false)
}

// applyUART follows an accepted UART change: close, optional power cycle,
// reopen at the new settings, then the post-change echo.
func (s *Session) applyUART(kind atcmd.CommandKind, idx int, parity atcmd.Parity, needsPowerCycle bool) error {
	rate := atcmd.BaudRates[idx]
	if err := s.c.close(); err != nil {
		s.invalidate("close after UART change failed")
		return err
	}

	skipEcho := false
	if needsPowerCycle {
		if s.powerCycle == nil {
			logging.Warn("Parity change needs a module power cycle; skipping post-change echo",
				zap.String("parity", parity.String()))
			skipEcho = true
		} else if err := s.powerCycle(); err != nil {
			s.invalidate("power cycle failed")
			return NewLinkError("power cycle", err)
		}
	}

	if err := s.c.reopen(rate, parity); err != nil {
		s.invalidate("reopen after UART change failed")
		return err
	}
	s.cfg.UART.BaudIndex = idx
	s.cfg.UART.Parity = parity

	if skipEcho {
		return nil
	}
	resp, err := s.c.exchange(atcmd.Echo, s.cfg.Dialect, "")
	if err != nil || !atcmd.ParseStatus(resp) {
		s.invalidate("post-change echo failed")
		return NewLinkDesyncError(kind, rate, parity)
	}
	return nil
}

// SetName sets the advertised name and returns the name actually sent,
// including the model tag.
func (s *Session) SetName(input string) (_ string, err error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	name, err := BuildName(input, s.cfg.Model, s.cfg.Dialect, s.cfg.UART.BaudIndex)
	if err != nil {
		return "", err
	}
	defer s.toData(&err)
	if _, err := s.c.confirm(atcmd.NameSet, s.cfg.Dialect, name); err != nil {
		return "", err
	}
	s.cfg.Name = name
	return name, nil
}

// SetPin sets the pairing PIN (Legacy) or passkey (Modern).
func (s *Session) SetPin(pin string) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	kind, payload, err := BuildPin(pin, s.cfg.Dialect)
	if err != nil {
		return err
	}
	defer s.toData(&err)
	_, err = s.c.confirm(kind, s.cfg.Dialect, payload)
	return err
}

// SetRole changes the HC-05 role. An HC-06 is always Secondary, so asking
// for Secondary succeeds without I/O and anything else is rejected.
func (s *Session) SetRole(r atcmd.Role) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	if err := ValidateRole(r); err != nil {
		return err
	}
	if s.cfg.Model != ModelHC05 {
		if r == atcmd.RoleSecondary {
			return nil
		}
		return NewValidationError(fmt.Sprintf("%s only supports the Secondary role", s.cfg.Model))
	}
	if r == s.cfg.Role {
		return nil
	}
	defer s.toData(&err)
	if _, err := s.c.confirm(atcmd.RoleSet, s.cfg.Dialect, atcmd.RolePayload(r)); err != nil {
		return err
	}
	s.cfg.Role = r
	return nil
}

// Role returns the cached role, asking the module when it is unknown. An
// HC-06 that did not report a role during detection stays RoleUnknown.
func (s *Session) Role() (_ atcmd.Role, err error) {
	if err := s.ready(); err != nil {
		return atcmd.RoleUnknown, err
	}
	if s.cfg.Role != atcmd.RoleUnknown || s.cfg.Model != ModelHC05 {
		return s.cfg.Role, nil
	}
	defer s.toData(&err)
	resp, err := s.c.exchange(atcmd.RoleGet, s.cfg.Dialect, "")
	if err != nil {
		return atcmd.RoleUnknown, err
	}
	if len(resp) == 0 {
		return atcmd.RoleUnknown, NewNoResponseError(atcmd.RoleGet)
	}
	role := atcmd.ParseRole(resp)
	if role == atcmd.RoleUnknown {
		return role, NewMalformedResponseError(atcmd.RoleGet, resp)
	}
	s.cfg.Role = role
	return role, nil
}

// Version returns the cached firmware version, asking the module when it is
// unknown.
func (s *Session) Version() (_ string, err error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if s.cfg.Version != "" {
		return s.cfg.Version, nil
	}
	defer s.toData(&err)
	resp, err := s.c.exchange(atcmd.VersionQuery, s.cfg.Dialect, "")
	if err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", NewNoResponseError(atcmd.VersionQuery)
	}
	v := versionFromReply(resp)
	if v == "" {
		return "", NewMalformedResponseError(atcmd.VersionQuery, resp)
	}
	s.cfg.Version = v
	return v, nil
}

// QueryUART reads the UART settings stored in a Modern module.
func (s *Session) QueryUART() (_ UARTConfig, err error) {
	if err := s.ready(); err != nil {
		return UARTConfig{BaudIndex: -1}, err
	}
	if s.cfg.Dialect != atcmd.DialectModern {
		return UARTConfig{BaudIndex: -1}, NewValidationError("Legacy firmware cannot report its UART settings")
	}
	defer s.toData(&err)
	resp, err := s.c.exchange(atcmd.UartGet, s.cfg.Dialect, "")
	if err != nil {
		return UARTConfig{BaudIndex: -1}, err
	}
	if len(resp) == 0 {
		return UARTConfig{BaudIndex: -1}, NewNoResponseError(atcmd.UartGet)
	}
	baud, stop, parity, ok := atcmd.ParseUART(resp)
	if !ok {
		return UARTConfig{BaudIndex: -1}, NewMalformedResponseError(atcmd.UartGet, resp)
	}
	return UARTConfig{BaudIndex: atcmd.BaudIndex(baud), Parity: parity, StopBits: stop}, nil
}

// Raw sends an arbitrary command with the dialect terminator and returns the
// reply, OK or not.
func (s *Session) Raw(command string) (_ []byte, err error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if command == "" {
		return nil, NewValidationError("command cannot be empty")
	}
	defer s.toData(&err)
	resp, err := s.c.exchange(atcmd.Other, s.cfg.Dialect, command)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, NewNoResponseError(atcmd.Other)
	}
	return resp, nil
}

// SetLocalBaud reopens only the host side at BaudRates[index]. The module
// is not told; use it to check that a mismatch is noticed.
func (s *Session) SetLocalBaud(index int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !atcmd.ValidBaudIndex(index) {
		return NewValidationError(fmt.Sprintf("baud index must be 0-%d, got %d", len(atcmd.BaudRates)-1, index))
	}
	return s.c.reopen(atcmd.BaudRates[index], s.c.parity)
}

// SetLocalParity reopens only the host side with parity p.
func (s *Session) SetLocalParity(p atcmd.Parity) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := ValidateParity(p); err != nil {
		return err
	}
	return s.c.reopen(s.c.baud, p)
}

// Close returns the module to data mode and releases the link.
func (s *Session) Close() error {
	modeErr := s.c.setMode(uart.ModeData)
	closeErr := s.c.close()
	s.setState(StateUndetected, "closed")
	if closeErr != nil {
		return closeErr
	}
	return modeErr
}

// toData returns the module to data mode once a transaction is over. The
// transaction's own error wins over a pin failure.
func (s *Session) toData(err *error) {
	if merr := s.c.leaveCommand(); merr != nil && *err == nil {
		*err = merr
	}
}

func (s *Session) ready() error {
	if s.state != StateDetected || s.cfg.Dialect == atcmd.DialectUnknown {
		return NewPreconditionError(s.state)
	}
	return nil
}

func (s *Session) invalidate(reason string) {
	s.cfg.Dialect = atcmd.DialectUnknown
	s.setState(StateLinkInvalidated, reason)
}

func (s *Session) setState(to State, reason string) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	logging.LogStateChange(from.String(), to.String(), reason)
	s.c.emit(Event{Type: EventStateChange, From: from, To: to, Reason: reason})
}
