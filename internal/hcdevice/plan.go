package hcdevice

import (
	"context"
	"fmt"

	"github.com/muurk/hcat/internal/atcmd"
)

// PlanBuilder collects several changes and applies them as one run. It
// validates everything it can up front, so a bad PIN is reported before the
// name has been written.
//
// Example usage:
//
//	plan, err := NewPlanBuilder(session.Config()).
//	    SetName("Kitchen").
//	    SetPin("1234").
//	    SetUART(115200, atcmd.ParityNone).
//	    Build()
//	if err == nil {
//	    err = plan.Apply(ctx, session, nil)
//	}
type PlanBuilder struct {
	// current is the detected configuration the plan is checked against
	current DeviceConfig

	nameChanged bool
	name        string

	pinChanged bool
	pin        string

	roleChanged bool
	role        atcmd.Role

	uartChanged bool
	baudRate    int
	parity      atcmd.Parity
}

// NewPlanBuilder starts an empty plan against current.
func NewPlanBuilder(current DeviceConfig) *PlanBuilder {
	b := &PlanBuilder{current: current}
	b.Reset()
	return b
}

// SetName queues a name change. The model tag is added when built.
func (b *PlanBuilder) SetName(name string) *PlanBuilder {
	b.nameChanged = true
	b.name = name
	return b
}

// SetPin queues a PIN or passkey change.
func (b *PlanBuilder) SetPin(pin string) *PlanBuilder {
	b.pinChanged = true
	b.pin = pin
	return b
}

// SetRole queues a role change.
func (b *PlanBuilder) SetRole(r atcmd.Role) *PlanBuilder {
	b.roleChanged = true
	b.role = r
	return b
}

// SetUART queues a baud rate and parity change.
func (b *PlanBuilder) SetUART(baudRate int, parity atcmd.Parity) *PlanBuilder {
	b.uartChanged = true
	b.baudRate = baudRate
	b.parity = parity
	return b
}

// SetBaudRate queues a baud change and keeps the current parity.
func (b *PlanBuilder) SetBaudRate(baudRate int) *PlanBuilder {
	return b.SetUART(baudRate, b.parity)
}

// SetParity queues a parity change and keeps the current baud rate.
func (b *PlanBuilder) SetParity(p atcmd.Parity) *PlanBuilder {
	return b.SetUART(b.baudRate, p)
}

// HasChanges returns true if anything has been queued.
func (b *PlanBuilder) HasChanges() bool {
	return b.nameChanged || b.pinChanged || b.roleChanged || b.uartChanged
}

// Validate runs every check that needs no I/O and returns all failures.
func (b *PlanBuilder) Validate() []error {
	var errs []error
	if b.current.Dialect == atcmd.DialectUnknown {
		return []error{NewPreconditionError(StateUndetected)}
	}

	if b.nameChanged {
		if _, err := BuildName(b.name, b.current.Model, b.current.Dialect, b.targetBaudIndex()); err != nil {
			errs = append(errs, err)
		}
	}
	if b.pinChanged {
		if _, _, err := BuildPin(b.pin, b.current.Dialect); err != nil {
			errs = append(errs, err)
		}
	}
	if b.roleChanged {
		if err := ValidateRole(b.role); err != nil {
			errs = append(errs, err)
		} else if b.current.Model != ModelHC05 && b.role != atcmd.RoleSecondary {
			errs = append(errs, NewValidationError(fmt.Sprintf("%s only supports the Secondary role", b.current.Model)))
		}
	}
	if b.uartChanged {
		if _, err := ValidateBaudRate(b.baudRate, b.current.Dialect); err != nil {
			errs = append(errs, err)
		}
		if err := ValidateParity(b.parity); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// the name is sent before the UART change, so the current rate decides the
// Legacy name limits
func (b *PlanBuilder) targetBaudIndex() int {
	return b.current.UART.BaudIndex
}

// Build validates the plan and freezes it.
func (b *PlanBuilder) Build() (*Plan, error) {
	if errs := b.Validate(); len(errs) > 0 {
		if len(errs) == 1 {
			return nil, errs[0]
		}
		return nil, NewValidationError(FormatValidationErrors(errs))
	}
	if !b.HasChanges() {
		return nil, NewValidationError("no changes to apply")
	}

	p := &Plan{}
	if b.nameChanged {
		name := b.name
		p.Name = &name
	}
	if b.pinChanged {
		pin := b.pin
		p.Pin = &pin
	}
	if b.roleChanged {
		r := b.role
		p.Role = &r
	}
	if b.uartChanged {
		p.UART = &UARTChange{BaudRate: b.baudRate, Parity: b.parity}
	}
	return p, nil
}

// Reset clears all queued changes.
func (b *PlanBuilder) Reset() *PlanBuilder {
	b.nameChanged = false
	b.pinChanged = false
	b.roleChanged = false
	b.uartChanged = false

	b.name = ""
	b.pin = ""
	b.role = b.current.Role
	b.baudRate = b.current.UART.BaudRate()
	b.parity = b.current.UART.Parity
	return b
}

// UARTChange is the serial part of a Plan.
type UARTChange struct {
	BaudRate int
	Parity   atcmd.Parity
}

// Plan is a validated set of changes. Nil fields are left alone.
type Plan struct {
	Name *string
	Pin  *string
	Role *atcmd.Role
	UART *UARTChange
}

// Step names one stage of Apply.
type Step string

const (
	StepName Step = "name"
	StepPin  Step = "pin"
	StepRole Step = "role"
	StepUART Step = "uart"
)

// StepCallback is told when each step starts and how it ended. err is nil
// at the start of a step.
type StepCallback func(step Step, done bool, err error)

// Steps lists the steps Apply will run, in order.
func (p *Plan) Steps() []Step {
	var steps []Step
	if p.Name != nil {
		steps = append(steps, StepName)
	}
	if p.Pin != nil {
		steps = append(steps, StepPin)
	}
	if p.Role != nil {
		steps = append(steps, StepRole)
	}
	if p.UART != nil {
		steps = append(steps, StepUART)
	}
	return steps
}

// Apply runs the plan against s. The UART change goes last because it is the
// only step that can invalidate the session. Apply stops at the first
// failure; steps already confirmed stay applied on the module.
func (p *Plan) Apply(ctx context.Context, s *Session, cb StepCallback) error {
	if cb == nil {
		cb = func(Step, bool, error) {}
	}
	for _, step := range p.Steps() {
		if err := ctx.Err(); err != nil {
			return err
		}
		cb(step, false, nil)
		err := p.run(step, s)
		cb(step, true, err)
		if err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
	}
	return nil
}

func (p *Plan) run(step Step, s *Session) error {
	switch step {
	case StepName:
		_, err := s.SetName(*p.Name)
		return err
	case StepPin:
		return s.SetPin(*p.Pin)
	case StepRole:
		return s.SetRole(*p.Role)
	case StepUART:
		cfg := s.Config()
		if cfg.UART.BaudRate() == p.UART.BaudRate && cfg.UART.Parity == p.UART.Parity {
			return nil
		}
		return s.ConfigureUART(p.UART.BaudRate, p.UART.Parity)
	}
	return nil
}
