package hcdevice

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/muurk/hcat/internal/atcmd"
	"github.com/muurk/hcat/internal/sim"
	"github.com/muurk/hcat/internal/uart"
)

func detected(t *testing.T, profile sim.Profile, devOpts []sim.Option, opts ...Option) (*Session, *sim.Device) {
	t.Helper()
	s, dev := newSim(t, profile, devOpts, opts...)
	if _, err := s.Detect(context.Background()); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	dev.ResetHistory()
	return s, dev
}

func TestSessionDetect(t *testing.T) {
	s, dev := newSim(t, sim.HC06Modern, nil)

	if s.State() != StateUndetected {
		t.Fatalf("initial State() = %v", s.State())
	}
	cfg, err := s.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if s.State() != StateDetected {
		t.Errorf("State() = %v, want Detected", s.State())
	}
	if cfg.Dialect != atcmd.DialectModern || cfg.UART.BaudRate() != 9600 || cfg.UART.Parity != atcmd.ParityNone {
		t.Errorf("Detect() = %+v, want Modern 9600 None", cfg)
	}
	if dev.OpenWhileOpen() != 0 {
		t.Errorf("OpenWhileOpen() = %d", dev.OpenWhileOpen())
	}
	if rate, parity := s.LocalSettings(); rate != 9600 || parity != atcmd.ParityNone {
		t.Errorf("LocalSettings() = %d, %v", rate, parity)
	}
}

func TestSessionDetectTwiceIsStable(t *testing.T) {
	for _, profile := range []sim.Profile{sim.HC05, sim.HC06Modern, sim.HC06ModernSecondary, sim.HC06Legacy} {
		t.Run(profile.Name+"/"+profile.Version, func(t *testing.T) {
			s, dev := newSim(t, profile, nil)

			first, err := s.Detect(context.Background())
			if err != nil {
				t.Fatalf("first Detect() error = %v", err)
			}
			second, err := s.Detect(context.Background())
			if err != nil {
				t.Fatalf("second Detect() error = %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("Detect() changed from %+v to %+v", first, second)
			}
			if dev.OpenWhileOpen() != 0 {
				t.Errorf("OpenWhileOpen() = %d", dev.OpenWhileOpen())
			}
		})
	}
}

func TestSessionDetectNotFound(t *testing.T) {
	s, dev := newSim(t, sim.HC06Modern, nil)
	dev.Mute()

	cfg, err := s.Detect(context.Background())
	if !IsNoResponse(err) {
		t.Fatalf("Detect() error = %v, want no response", err)
	}
	if s.State() != StateUndetected {
		t.Errorf("State() = %v", s.State())
	}
	if cfg.Dialect != atcmd.DialectUnknown {
		t.Errorf("Dialect = %v", cfg.Dialect)
	}
}

func TestSessionPreconditionDoesNoIO(t *testing.T) {
	ctrl := gomock.NewController(t)
	link := uart.NewMockLink(ctrl)
	mode := uart.NewMockModeControl(ctrl)

	// any link or pin call fails the test
	s := NewSession(link, mode, WithClock(sim.NewFakeClock()))

	calls := map[string]func() error{
		"TestEcho":       s.TestEcho,
		"SetBaud":        func() error { return s.SetBaud(3) },
		"SetParity":      func() error { return s.SetParity(atcmd.ParityOdd) },
		"ConfigureUART":  func() error { return s.ConfigureUART(9600, atcmd.ParityNone) },
		"SetName":        func() error { _, err := s.SetName("x"); return err },
		"SetPin":         func() error { return s.SetPin("1234") },
		"SetRole":        func() error { return s.SetRole(atcmd.RolePrimary) },
		"Role":           func() error { _, err := s.Role(); return err },
		"Version":        func() error { _, err := s.Version(); return err },
		"QueryUART":      func() error { _, err := s.QueryUART(); return err },
		"Raw":            func() error { _, err := s.Raw("AT"); return err },
		"SetLocalBaud":   func() error { return s.SetLocalBaud(3) },
		"SetLocalParity": func() error { return s.SetLocalParity(atcmd.ParityNone) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !IsPreconditionError(err) {
				t.Errorf("%s() error = %v, want precondition", name, err)
			}
		})
	}
}

func TestSessionSetBaudBelowModernFloor(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)

	for _, idx := range []int{0, 1} {
		err := s.SetBaud(idx)
		if !IsValidationError(err) {
			t.Errorf("SetBaud(%d) error = %v, want validation", idx, err)
		}
	}
	if n := dev.BytesWritten(); n != 0 {
		t.Errorf("rejected SetBaud wrote %d bytes", n)
	}
	if s.State() != StateDetected {
		t.Errorf("State() = %v", s.State())
	}
}

func TestSessionSetBaudModern(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)

	if err := s.SetBaud(7); err != nil {
		t.Fatalf("SetBaud(7) error = %v", err)
	}
	if dev.Baud() != 115200 {
		t.Errorf("module baud = %d", dev.Baud())
	}
	if got := s.Config().UART.BaudRate(); got != 115200 {
		t.Errorf("tracked baud = %d", got)
	}
	cmds := dev.Commands()
	if !contains(cmds, "AT+UART=115200,0,0") {
		t.Errorf("commands = %q, want AT+UART=115200,0,0", cmds)
	}
	if cmds[len(cmds)-1] != "AT" {
		t.Errorf("last command = %q, want the post-change echo", cmds[len(cmds)-1])
	}
	if dev.OpenWhileOpen() != 0 {
		t.Errorf("OpenWhileOpen() = %d", dev.OpenWhileOpen())
	}
}

func TestSessionSetBaudLegacy(t *testing.T) {
	s, dev := detected(t, sim.HC06Legacy, nil)

	if err := s.SetBaud(4); err != nil {
		t.Fatalf("SetBaud(4) error = %v", err)
	}
	if dev.Baud() != 19200 {
		t.Errorf("module baud = %d", dev.Baud())
	}
	if got := dev.Commands(); len(got) != 2 || got[0] != "AT+BAUD5" || got[1] != "AT" {
		t.Errorf("commands = %q, want [AT+BAUD5 AT]", got)
	}
}

func TestSessionSetPinLegacy(t *testing.T) {
	s, dev := detected(t, sim.HC06Legacy, nil)

	for _, bad := range []string{"12a4", "123", "12345", ""} {
		if err := s.SetPin(bad); !IsValidationError(err) {
			t.Errorf("SetPin(%q) error = %v, want validation", bad, err)
		}
	}
	if n := dev.BytesWritten(); n != 0 {
		t.Fatalf("rejected PINs wrote %d bytes", n)
	}

	if err := s.SetPin("1234"); err != nil {
		t.Fatalf("SetPin(1234) error = %v", err)
	}
	writes := dev.Writes()
	if len(writes) != 1 || string(writes[0]) != "AT+PIN1234" {
		t.Errorf("writes = %q, want [AT+PIN1234]", writes)
	}
}

func TestSessionSetPinModern(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)

	if err := s.SetPin("0000111122223333"); err != nil {
		t.Fatalf("SetPin() error = %v", err)
	}
	if dev.Pin() != "00001111222233" {
		t.Errorf("module passkey = %q, want 14 characters", dev.Pin())
	}
	if !contains(dev.Commands(), `AT+PSWD="00001111222233"`) {
		t.Errorf("commands = %q", dev.Commands())
	}
	if err := s.SetPin(`ab"c`); !IsValidationError(err) {
		t.Errorf("quoted passkey error = %v, want validation", err)
	}
}

func TestSessionSetName(t *testing.T) {
	tests := []struct {
		name    string
		profile sim.Profile
		devOpts []sim.Option
		input   string
		want    string
	}{
		{"HC-05 tag", sim.HC05, nil, "  Kitchen  ", "HC05_Kitchen"},
		{"HC-06 long input", sim.HC06Modern, nil, "ABCDEFGHIJKLMNOPQRS", "HC06_ABCDEFGHIJKLMNO"},
		{"legacy slow", sim.HC06Legacy, nil, "ABCDEFGHIJKLMNOPQRS", "HC06_ABCDEFGHIJKLMNO"},
		{"legacy fast", sim.HC06Legacy, []sim.Option{sim.WithBaud(38400)}, "ABCDEFGHIJKLMNOPQRS", "HC06_ABCDEFGHI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dev := detected(t, tt.profile, tt.devOpts)
			got, err := s.SetName(tt.input)
			if err != nil {
				t.Fatalf("SetName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SetName() = %q, want %q", got, tt.want)
			}
			if dev.Name() != tt.want {
				t.Errorf("module name = %q", dev.Name())
			}
			if s.Config().Name != tt.want {
				t.Errorf("Config().Name = %q", s.Config().Name)
			}
			if dev.Mode() != uart.ModeData {
				t.Errorf("Mode() = %v after SetName, want data", dev.Mode())
			}
		})
	}
}

func TestSessionSetNameEmpty(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)
	if _, err := s.SetName("   "); !IsValidationError(err) {
		t.Errorf("SetName(blank) error = %v, want validation", err)
	}
	if dev.BytesWritten() != 0 {
		t.Error("blank name reached the link")
	}
}

func TestSessionSetRole(t *testing.T) {
	t.Run("HC-05 primary", func(t *testing.T) {
		s, dev := detected(t, sim.HC05, nil)
		if err := s.SetRole(atcmd.RolePrimary); err != nil {
			t.Fatalf("SetRole() error = %v", err)
		}
		if dev.Role() != atcmd.RolePrimary {
			t.Errorf("module role = %v", dev.Role())
		}
		if r, _ := s.Role(); r != atcmd.RolePrimary {
			t.Errorf("Role() = %v", r)
		}
	})

	t.Run("HC-05 same role is free", func(t *testing.T) {
		s, dev := detected(t, sim.HC05, nil)
		if err := s.SetRole(atcmd.RoleSecondary); err != nil {
			t.Fatalf("SetRole() error = %v", err)
		}
		if dev.BytesWritten() != 0 {
			t.Error("unchanged role reached the link")
		}
	})

	t.Run("HC-06 secondary is accepted", func(t *testing.T) {
		s, dev := detected(t, sim.HC06Modern, nil)
		if err := s.SetRole(atcmd.RoleSecondary); err != nil {
			t.Errorf("SetRole(Secondary) error = %v", err)
		}
		if dev.BytesWritten() != 0 {
			t.Error("HC-06 role change reached the link")
		}
	})

	t.Run("HC-06 primary is rejected", func(t *testing.T) {
		s, dev := detected(t, sim.HC06Legacy, nil)
		if err := s.SetRole(atcmd.RolePrimary); !IsValidationError(err) {
			t.Errorf("SetRole(Primary) error = %v, want validation", err)
		}
		if dev.BytesWritten() != 0 {
			t.Error("HC-06 role change reached the link")
		}
	})

	t.Run("invalid role", func(t *testing.T) {
		s, _ := detected(t, sim.HC05, nil)
		if err := s.SetRole(atcmd.Role(7)); !IsValidationError(err) {
			t.Errorf("SetRole(7) error = %v, want validation", err)
		}
	})
}

func TestSessionConfigureUARTDesync(t *testing.T) {
	s, dev := detected(t, sim.HC06Modern, []sim.Option{sim.WithMuteAfterChange()})

	err := s.ConfigureUART(57600, atcmd.ParityOdd)
	if !IsLinkDesync(err) {
		t.Fatalf("ConfigureUART() error = %v, want link desync", err)
	}
	if s.State() != StateLinkInvalidated {
		t.Errorf("State() = %v, want LinkInvalidated", s.State())
	}
	if s.Config().Dialect != atcmd.DialectUnknown {
		t.Errorf("Dialect = %v, want Unknown", s.Config().Dialect)
	}
	if dev.Baud() != 57600 || dev.Parity() != atcmd.ParityOdd {
		t.Errorf("module at %d/%v, want 57600/Odd", dev.Baud(), dev.Parity())
	}

	dev.ResetHistory()
	if _, err := s.SetName("x"); !IsPreconditionError(err) {
		t.Errorf("SetName() after desync error = %v, want precondition", err)
	}
	if err := s.TestEcho(); !IsPreconditionError(err) {
		t.Errorf("TestEcho() after desync error = %v, want precondition", err)
	}
	if dev.BytesWritten() != 0 || dev.Opens() != 0 {
		t.Error("invalidated session touched the link")
	}

	// only detection recovers
	dev.Unmute()
	cfg, err := s.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if cfg.UART.BaudRate() != 57600 || cfg.UART.Parity != atcmd.ParityOdd {
		t.Errorf("Detect() = %s, want 57600 8O1", cfg.UART)
	}
	if s.State() != StateDetected {
		t.Errorf("State() = %v", s.State())
	}
}

func TestSessionConfigureUARTModern(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)

	if err := s.ConfigureUART(115200, atcmd.ParityEven); err != nil {
		t.Fatalf("ConfigureUART() error = %v", err)
	}
	var uartCmds int
	for _, c := range dev.Commands() {
		if strings.HasPrefix(c, "AT+UART=") {
			uartCmds++
		}
	}
	if uartCmds != 1 {
		t.Errorf("sent %d AT+UART commands, want 1", uartCmds)
	}
	if got := s.Config().UART.String(); got != "115200 8E1" {
		t.Errorf("UART = %s", got)
	}
	if rate, parity := s.LocalSettings(); rate != 115200 || parity != atcmd.ParityEven {
		t.Errorf("LocalSettings() = %d, %v", rate, parity)
	}
}

func TestSessionConfigureUARTValidation(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)

	for _, tc := range []struct {
		rate   int
		parity atcmd.Parity
	}{
		{2400, atcmd.ParityNone},
		{14400, atcmd.ParityNone},
		{9600, atcmd.Parity(5)},
	} {
		if err := s.ConfigureUART(tc.rate, tc.parity); !IsValidationError(err) {
			t.Errorf("ConfigureUART(%d, %v) error = %v, want validation", tc.rate, tc.parity, err)
		}
	}
	if dev.BytesWritten() != 0 {
		t.Error("rejected UART change reached the link")
	}
}

func TestSessionLegacyParity(t *testing.T) {
	t.Run("with power cycle hook", func(t *testing.T) {
		var dev *sim.Device
		cycles := 0
		s, d := detected(t, sim.HC06Legacy, nil, WithPowerCycle(func() error {
			cycles++
			dev.PowerCycle()
			return nil
		}))
		dev = d

		if err := s.SetParity(atcmd.ParityEven); err != nil {
			t.Fatalf("SetParity() error = %v", err)
		}
		if cycles != 1 {
			t.Errorf("power cycled %d times", cycles)
		}
		if dev.Parity() != atcmd.ParityEven {
			t.Errorf("module parity = %v", dev.Parity())
		}
		if got := dev.Commands(); got[0] != "AT+PE" || got[len(got)-1] != "AT" {
			t.Errorf("commands = %q", got)
		}
	})

	t.Run("without hook", func(t *testing.T) {
		s, dev := detected(t, sim.HC06Legacy, nil)

		if err := s.SetParity(atcmd.ParityOdd); err != nil {
			t.Fatalf("SetParity() error = %v", err)
		}
		if p, ok := dev.PendingParity(); !ok || p != atcmd.ParityOdd {
			t.Errorf("PendingParity() = %v, %v", p, ok)
		}
		if got := dev.Commands(); len(got) != 1 || got[0] != "AT+PO" {
			t.Errorf("commands = %q, want only AT+PO", got)
		}
		if s.State() != StateDetected || s.Config().UART.Parity != atcmd.ParityOdd {
			t.Errorf("State() = %v, parity %v", s.State(), s.Config().UART.Parity)
		}
	})

	t.Run("hook failure invalidates", func(t *testing.T) {
		s, _ := detected(t, sim.HC06Legacy, nil, WithPowerCycle(func() error {
			return errors.New("user cancelled")
		}))
		if err := s.SetParity(atcmd.ParityOdd); !IsLinkError(err) {
			t.Errorf("SetParity() error = %v, want link error", err)
		}
		if s.State() != StateLinkInvalidated {
			t.Errorf("State() = %v", s.State())
		}
	})
}

func TestSessionConfigureUARTLegacy(t *testing.T) {
	var dev *sim.Device
	s, d := detected(t, sim.HC06Legacy, nil, WithPowerCycle(func() error {
		dev.PowerCycle()
		return nil
	}))
	dev = d

	if err := s.ConfigureUART(38400, atcmd.ParityOdd); err != nil {
		t.Fatalf("ConfigureUART() error = %v", err)
	}
	want := []string{"AT+BAUD6", "AT", "AT+PO", "AT"}
	if got := dev.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %q, want %q", got, want)
	}
	if dev.Baud() != 38400 || dev.Parity() != atcmd.ParityOdd {
		t.Errorf("module at %d/%v", dev.Baud(), dev.Parity())
	}
}

func TestSessionTestEcho(t *testing.T) {
	s, dev := detected(t, sim.HC06Modern, nil)

	if err := s.TestEcho(); err != nil {
		t.Fatalf("TestEcho() error = %v", err)
	}

	dev.Mute()
	if err := s.TestEcho(); !IsNoResponse(err) {
		t.Fatalf("TestEcho() on a silent module error = %v, want no response", err)
	}
	if s.State() != StateLinkInvalidated {
		t.Errorf("State() = %v", s.State())
	}
}

func TestSessionLocalSettings(t *testing.T) {
	s, dev := detected(t, sim.HC06Modern, nil)

	if err := s.SetLocalBaud(5); err != nil {
		t.Fatalf("SetLocalBaud() error = %v", err)
	}
	if rate, _ := s.LocalSettings(); rate != 38400 {
		t.Errorf("LocalSettings() rate = %d", rate)
	}
	if s.Config().UART.BaudRate() != 9600 {
		t.Error("SetLocalBaud changed the tracked module config")
	}
	if dev.Baud() != 9600 {
		t.Error("SetLocalBaud reached the module")
	}

	// the mismatch is noticed and the session invalidated
	if err := s.TestEcho(); err == nil {
		t.Fatal("TestEcho() at a mismatched baud succeeded")
	}
	if s.State() != StateLinkInvalidated {
		t.Errorf("State() = %v", s.State())
	}
	if err := s.SetLocalParity(atcmd.ParityNone); !IsPreconditionError(err) {
		t.Errorf("SetLocalParity() error = %v, want precondition", err)
	}
}

func TestSessionQueries(t *testing.T) {
	s, _ := detected(t, sim.HC05, []sim.Option{sim.WithRole(atcmd.RoleSecondaryLoop)})

	if r, err := s.Role(); err != nil || r != atcmd.RoleSecondaryLoop {
		t.Errorf("Role() = %v, %v", r, err)
	}
	if v, err := s.Version(); err != nil || v != "3.0-20170601" {
		t.Errorf("Version() = %q, %v", v, err)
	}
	u, err := s.QueryUART()
	if err != nil {
		t.Fatalf("QueryUART() error = %v", err)
	}
	if u != s.Config().UART {
		t.Errorf("QueryUART() = %+v, tracked %+v", u, s.Config().UART)
	}

	resp, err := s.Raw("AT+ADDR?")
	if err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	if !strings.HasPrefix(string(resp), "+ADDR:") {
		t.Errorf("Raw() = %q", resp)
	}
	if _, err := s.Raw(""); !IsValidationError(err) {
		t.Errorf("Raw(\"\") error = %v, want validation", err)
	}
}

func TestSessionRoleWithoutReport(t *testing.T) {
	tests := []struct {
		name    string
		profile sim.Profile
		want    atcmd.Role
	}{
		{"legacy", sim.HC06Legacy, atcmd.RoleUnknown},
		{"modern bare reply", sim.HC06Modern, atcmd.RoleUnknown},
		{"modern secondary reply", sim.HC06ModernSecondary, atcmd.RoleSecondary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dev := detected(t, tt.profile, nil)
			if s.Config().Role != tt.want {
				t.Errorf("Config().Role = %v, want %v", s.Config().Role, tt.want)
			}
			r, err := s.Role()
			if err != nil || r != tt.want {
				t.Errorf("Role() = %v, %v, want %v", r, err, tt.want)
			}
			if dev.BytesWritten() != 0 {
				t.Error("Role() on an HC-06 reached the link")
			}
		})
	}
}

func TestSessionReturnsToDataMode(t *testing.T) {
	s, dev := newSim(t, sim.HC05, nil)
	if _, err := s.Detect(context.Background()); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if dev.Mode() != uart.ModeData {
		t.Fatalf("Mode() = %v after Detect, want data", dev.Mode())
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"SetName", func() error { _, err := s.SetName("desk"); return err }},
		{"SetPin", func() error { return s.SetPin("4321") }},
		{"Raw", func() error { _, err := s.Raw("AT+VERSION?"); return err }},
		{"SetRole", func() error { return s.SetRole(atcmd.RolePrimary) }},
		{"ConfigureUART", func() error { return s.ConfigureUART(57600, atcmd.ParityNone) }},
		{"TestEcho", s.TestEcho},
	}
	for _, st := range steps {
		if err := st.run(); err != nil {
			t.Fatalf("%s() error = %v", st.name, err)
		}
		if dev.Mode() != uart.ModeData {
			t.Errorf("Mode() = %v after %s, want data", dev.Mode(), st.name)
		}
	}
	if dev.Pin() != "4321" || dev.Role() != atcmd.RolePrimary || dev.Baud() != 57600 {
		t.Errorf("module = pin %q role %v baud %d", dev.Pin(), dev.Role(), dev.Baud())
	}
}

func TestSessionQueryUARTLegacy(t *testing.T) {
	s, dev := detected(t, sim.HC06Legacy, nil)
	if _, err := s.QueryUART(); !IsValidationError(err) {
		t.Errorf("QueryUART() error = %v, want validation", err)
	}
	if dev.BytesWritten() != 0 {
		t.Error("QueryUART on Legacy reached the link")
	}
}

func TestSessionRejectedCommand(t *testing.T) {
	s, _ := detected(t, sim.HC05, nil)

	resp, err := s.Raw("AT+BOGUS")
	if err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	if atcmd.ParseStatus(resp) {
		t.Errorf("Raw(AT+BOGUS) = %q, want an error reply", resp)
	}

	if code, ok := atcmd.ParseErrorCode(resp); !ok || code != 0 {
		t.Errorf("ParseErrorCode(%q) = %v, %v", resp, code, ok)
	}
	// a refused command is not a link failure
	if s.State() != StateDetected {
		t.Errorf("State() = %v", s.State())
	}
}

func TestSessionClose(t *testing.T) {
	s, dev := detected(t, sim.HC05, nil)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if dev.IsOpen() {
		t.Error("link still open")
	}
	if dev.Mode() != uart.ModeData {
		t.Errorf("mode = %v, want data", dev.Mode())
	}
	if s.State() != StateUndetected {
		t.Errorf("State() = %v", s.State())
	}
}

func TestSessionObserverStateChanges(t *testing.T) {
	var changes []Event
	s, _ := newSim(t, sim.HC06Modern, []sim.Option{sim.WithMuteAfterChange()}, WithObserver(func(e Event) {
		if e.Type == EventStateChange {
			changes = append(changes, e)
		}
	}))

	if _, err := s.Detect(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = s.SetBaud(7)

	if len(changes) != 2 {
		t.Fatalf("got %d state changes, want 2", len(changes))
	}
	if changes[0].To != StateDetected || changes[1].To != StateLinkInvalidated {
		t.Errorf("state changes = %v -> %v", changes[0].To, changes[1].To)
	}
}

func TestSessionObserversChain(t *testing.T) {
	var order []string
	first := func(e Event) {
		if e.Type == EventDetectDone {
			order = append(order, "first")
		}
	}
	second := func(e Event) {
		if e.Type == EventDetectDone {
			order = append(order, "second")
		}
	}
	s, _ := newSim(t, sim.HC05, nil, WithObserver(first), WithObserver(nil), WithObserver(second))
	if _, err := s.Detect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("observer order = %v", order)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
