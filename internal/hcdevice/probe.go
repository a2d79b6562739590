package hcdevice

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/uart"
)

// searchOrder tries Modern first; newer modules dominate.
var searchOrder = []atcmd.Dialect{atcmd.DialectModern, atcmd.DialectLegacy}

// Probe finds the dialect, parity and baud rate a module answers on, then
// tells HC-05 from HC-06 by how it handles role commands.
type Probe struct {
	c         *conn
	legacyMin int
}

// NewProbe creates a probe over link and mode. A nil mode means the KEY pin
// is not wired.
func NewProbe(link uart.Link, mode uart.ModeControl, opts ...Option) *Probe {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Probe{c: newConn(link, mode, o), legacyMin: o.legacyMin}
}

// Detect runs the full search. A module that is not found is not an error:
// Found is false, the config is all Unknown and the link is closed. Errors
// are reserved for link failures and cancellation, which is only checked
// between cells.
func (p *Probe) Detect(ctx context.Context) (Detection, error) {
	det := Detection{Config: unknownConfig()}
	total := SearchCells(p.legacyMin)

	// drive the pin at least once per search
	p.c.modeKnown = false
	p.c.emit(Event{Type: EventDetectStart, Total: total})

	dialect, parity, idx, cells, found, err := p.search(ctx, total)
	det.Cells = cells
	if err != nil || !found {
		if merr := p.c.leaveCommand(); merr != nil {
			logging.Warn("Failed to return module to data mode", zap.Error(merr))
		}
		_ = p.c.close()
		p.c.emit(Event{Type: EventDetectDone, Cell: cells, Total: total})
		return det, err
	}

	cfg := DeviceConfig{
		Dialect: dialect,
		UART:    UARTConfig{BaudIndex: idx, Parity: parity, StopBits: atcmd.StopBitsOne},
	}

	cfg.Model, cfg.Role, err = p.inferModel(dialect)
	if err != nil {
		_ = p.c.leaveCommand()
		_ = p.c.close()
		p.c.emit(Event{Type: EventDetectDone, Cell: cells, Total: total})
		return det, err
	}

	// best effort
	cfg.Version = p.queryVersion(dialect)

	if err := p.c.leaveCommand(); err != nil {
		_ = p.c.close()
		p.c.emit(Event{Type: EventDetectDone, Cell: cells, Total: total})
		return det, err
	}

	det.Found = true
	det.Config = cfg
	p.c.emit(Event{Type: EventDetectDone, Cell: cells, Total: total, Matched: true, Config: &cfg})
	return det, nil
}

func (p *Probe) search(ctx context.Context, total int) (atcmd.Dialect, atcmd.Parity, int, int, bool, error) {
	cells := 0
	for _, dialect := range searchOrder {
		minIdx := atcmd.MinBaudIndex(dialect)
		if dialect == atcmd.DialectLegacy {
			minIdx = p.legacyMin
		}
		for _, parity := range atcmd.Parities {
			for idx := minIdx; idx < len(atcmd.BaudRates); idx++ {
				if err := ctx.Err(); err != nil {
					return atcmd.DialectUnknown, atcmd.ParityNone, -1, cells, false, err
				}
				cells++

				matched, err := p.tryCell(dialect, parity, idx)
				logging.LogProbeCell(dialect.String(), atcmd.BaudRates[idx], parity.String(), matched)
				p.c.emit(Event{
					Type:     EventProbeCell,
					Dialect:  dialect,
					BaudRate: atcmd.BaudRates[idx],
					Parity:   parity,
					Cell:     cells,
					Total:    total,
					Matched:  matched,
				})
				if err != nil {
					return atcmd.DialectUnknown, atcmd.ParityNone, -1, cells, false, err
				}
				if matched {
					return dialect, parity, idx, cells, true, nil
				}
			}
		}
	}
	return atcmd.DialectUnknown, atcmd.ParityNone, -1, cells, false, nil
}

// tryCell sends one echo at one configuration. A rejected cell leaves the
// link closed.
func (p *Probe) tryCell(dialect atcmd.Dialect, parity atcmd.Parity, idx int) (bool, error) {
	if err := p.c.reopen(atcmd.BaudRates[idx], parity); err != nil {
		return false, err
	}
	resp, err := p.c.exchange(atcmd.Echo, dialect, "")
	if err != nil {
		return false, err
	}
	if len(resp) > 0 && atcmd.ParseStatus(resp) {
		return true, nil
	}

	if err := p.c.drain(); err != nil {
		return false, err
	}
	if err := p.c.close(); err != nil {
		return false, err
	}
	p.c.clock.Sleep(atcmd.ConfigSettle)
	return false, nil
}

// inferModel tells the families apart. Only HC-05 reports Primary or
// Secondary-Loop, and only HC-05 accepts AT+ROLE=0 when already Secondary.
// A module that cannot report its role is left at RoleUnknown.
func (p *Probe) inferModel(dialect atcmd.Dialect) (Model, atcmd.Role, error) {
	if dialect != atcmd.DialectModern {
		return ModelHC06, atcmd.RoleUnknown, nil
	}

	resp, err := p.c.exchange(atcmd.RoleGet, dialect, "")
	if err != nil {
		return ModelUnknown, atcmd.RoleUnknown, err
	}

	switch role := atcmd.ParseRole(resp); role {
	case atcmd.RoleSecondary:
		resp, err := p.c.exchange(atcmd.RoleSet, dialect, atcmd.RolePayload(atcmd.RoleSecondary))
		if err != nil {
			return ModelUnknown, atcmd.RoleUnknown, err
		}
		if atcmd.ParseStatus(resp) {
			return ModelHC05, atcmd.RoleSecondary, nil
		}
		return ModelHC06, atcmd.RoleSecondary, nil
	case atcmd.RolePrimary, atcmd.RoleSecondaryLoop:
		return ModelHC05, role, nil
	default:
		return ModelHC06, atcmd.RoleUnknown, nil
	}
}

// queryVersion returns "" on any failure.
func (p *Probe) queryVersion(dialect atcmd.Dialect) string {
	resp, err := p.c.exchange(atcmd.VersionQuery, dialect, "")
	if err != nil {
		logging.Debug("Version query failed: " + err.Error())
		return ""
	}
	return versionFromReply(resp)
}

// versionFromReply strips the framing around the version string:
// "+VERSION:3.0-20170601\r\nOK" and "OKlinvorV1.8" both reduce to the bare
// version.
func versionFromReply(resp []byte) string {
	line := atcmd.ParseVersionLine(resp)
	if line == "" || strings.HasPrefix(line, "ERROR") {
		return ""
	}
	if i := strings.Index(line, "VERSION:"); i >= 0 {
		return line[i+len("VERSION:"):]
	}
	if line == atcmd.StatusOK {
		return ""
	}
	return strings.TrimPrefix(line, atcmd.StatusOK)
}

// Transact runs one command at the link's current settings and returns the
// raw reply. Detect must have found the module first.
func (p *Probe) Transact(kind atcmd.CommandKind, dialect atcmd.Dialect, payload string) ([]byte, error) {
	if !p.c.open {
		return nil, NewPreconditionError(StateUndetected)
	}
	return p.c.exchange(kind, dialect, payload)
}
