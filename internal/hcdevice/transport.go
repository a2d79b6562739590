package hcdevice

import (
	"fmt"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/uart"
)

// conn owns the link and mode pin and applies the timing discipline every
// exchange follows. Probe and Session share one conn.
type conn struct {
	link     uart.Link
	mode     uart.ModeControl
	clock    Clock
	observer Observer

	open   bool
	baud   int
	parity atcmd.Parity

	curMode   uart.Mode
	modeKnown bool
}

func newConn(link uart.Link, mode uart.ModeControl, o options) *conn {
	if mode == nil {
		mode = uart.NoopMode{}
	}
	return &conn{
		link:     link,
		mode:     mode,
		clock:    o.clock,
		observer: o.observer,
	}
}

func (c *conn) emit(e Event) {
	if c.observer == nil {
		return
	}
	e.Time = c.clock.Now()
	c.observer(e)
}

// reopen closes any open port, opens at the new settings and lets the UART
// settle.
func (c *conn) reopen(baudRate int, parity atcmd.Parity) error {
	if c.open {
		if err := c.close(); err != nil {
			return err
		}
	}
	if err := c.link.Open(baudRate, parity); err != nil {
		return NewLinkError(fmt.Sprintf("open at %d baud, parity %s", baudRate, parity), err)
	}
	c.open = true
	c.baud = baudRate
	c.parity = parity
	c.clock.Sleep(atcmd.ConfigSettle)
	return nil
}

func (c *conn) close() error {
	if !c.open {
		return nil
	}
	c.open = false
	if err := c.link.Close(); err != nil {
		return NewLinkError("close", err)
	}
	return nil
}

// setMode only touches the pin when the mode actually changes.
func (c *conn) setMode(m uart.Mode) error {
	if c.modeKnown && c.curMode == m {
		return nil
	}
	if err := c.mode.SetMode(m); err != nil {
		return NewLinkError("switch mode pin", err)
	}
	c.curMode = m
	c.modeKnown = true
	return nil
}

// leaveCommand puts the module back in data mode. A pin that was never
// driven is left alone.
func (c *conn) leaveCommand() error {
	if !c.modeKnown {
		return nil
	}
	return c.setMode(uart.ModeData)
}

// drain discards whatever is buffered.
func (c *conn) drain() error {
	n, err := c.link.Available()
	if err != nil {
		return NewLinkError("read", err)
	}
	if n == 0 {
		return nil
	}
	stale, err := c.link.ReadAll()
	if err != nil {
		return NewLinkError("read", err)
	}
	logging.LogRawBytes("Discarded stale bytes", stale)
	return nil
}

// clearInput flushes stale bytes. A Modern module may hold half a command
// from earlier traffic, so a bare terminator completes it first.
func (c *conn) clearInput(dialect atcmd.Dialect) error {
	if dialect == atcmd.DialectModern {
		if _, err := c.link.Write([]byte(dialect.Terminator())); err != nil {
			return NewLinkError("write", err)
		}
		if err := c.link.Flush(); err != nil {
			return NewLinkError("flush", err)
		}
		c.clock.Sleep(atcmd.ClearSettle)
	}
	return c.drain()
}

// exchange runs one command: command mode, clear, send, flush, wait the
// computed delay and read. A nil reply with a nil error means nothing came
// back in time.
func (c *conn) exchange(kind atcmd.CommandKind, dialect atcmd.Dialect, payload string) ([]byte, error) {
	if err := c.setMode(uart.ModeCommand); err != nil {
		return nil, err
	}
	if err := c.clearInput(dialect); err != nil {
		return nil, err
	}
	return c.sendAndWait(kind, dialect, payload)
}

func (c *conn) sendAndWait(kind atcmd.CommandKind, dialect atcmd.Dialect, payload string) ([]byte, error) {
	cmd := atcmd.BuildCommand(kind, dialect, payload)
	logging.LogRawBytes("TX", cmd)
	if _, err := c.link.Write(cmd); err != nil {
		return nil, NewLinkError("write", err)
	}
	if err := c.link.Flush(); err != nil {
		return nil, NewLinkError("flush", err)
	}

	wait := atcmd.ResponseDelay(kind, dialect, len(cmd), c.baud)
	c.clock.Sleep(wait)

	n, err := c.link.Available()
	if err != nil {
		return nil, NewLinkError("read", err)
	}
	var resp []byte
	if n > 0 {
		if resp, err = c.link.ReadAll(); err != nil {
			return nil, NewLinkError("read", err)
		}
		logging.LogRawBytes("RX", resp)
	}

	ok := atcmd.ParseStatus(resp)
	logging.LogTransaction(kind.String(), cmd, resp, wait, ok)
	c.emit(Event{
		Type:     EventTransaction,
		Dialect:  dialect,
		BaudRate: c.baud,
		Parity:   c.parity,
		Kind:     kind,
		Command:  cmd,
		Response: resp,
		OK:       ok,
		Wait:     wait,
	})
	return resp, nil
}

// confirm runs exchange and requires an OK reply.
func (c *conn) confirm(kind atcmd.CommandKind, dialect atcmd.Dialect, payload string) ([]byte, error) {
	resp, err := c.exchange(kind, dialect, payload)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, NewNoResponseError(kind)
	}
	if !atcmd.ParseStatus(resp) {
		return resp, NewMalformedResponseError(kind, resp)
	}
	return resp, nil
}
