package atcmd

import (
	"testing"
)

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name    string
		kind    CommandKind
		dialect Dialect
		payload string
		want    string
	}{
		{"legacy echo", Echo, DialectLegacy, "", "AT"},
		{"modern echo", Echo, DialectModern, "", "AT\r\n"},
		{"legacy version", VersionQuery, DialectLegacy, "", "AT+VERSION"},
		{"modern version", VersionQuery, DialectModern, "", "AT+VERSION?\r\n"},
		{"legacy name", NameSet, DialectLegacy, "HC06_desk", "AT+NAMEHC06_desk"},
		{"modern name", NameSet, DialectModern, "HC05_desk", "AT+NAME=HC05_desk\r\n"},
		{"legacy pin", PinSet, DialectLegacy, "1234", "AT+PIN1234"},
		{"modern pswd", PswdSet, DialectModern, `"0000"`, "AT+PSWD=\"0000\"\r\n"},
		{"legacy baud", BaudSet, DialectLegacy, "4", "AT+BAUD4"},
		{"modern uart", BaudSet, DialectModern, "57600,0,1", "AT+UART=57600,0,1\r\n"},
		{"legacy parity", ParitySet, DialectLegacy, "E", "AT+PE"},
		{"modern uart get", UartGet, DialectModern, "", "AT+UART?\r\n"},
		{"role get", RoleGet, DialectModern, "", "AT+ROLE?\r\n"},
		{"role set", RoleSet, DialectModern, "0", "AT+ROLE=0\r\n"},
		{"other", Other, DialectModern, "AT+ADDR?", "AT+ADDR?\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(BuildCommand(tt.kind, tt.dialect, tt.payload))
			if got != tt.want {
				t.Errorf("BuildCommand(%v, %v, %q) = %q, want %q", tt.kind, tt.dialect, tt.payload, got, tt.want)
			}
		})
	}
}

func TestEchoThenStatus(t *testing.T) {
	for _, d := range []Dialect{DialectLegacy, DialectModern} {
		for _, p := range Parities {
			for i := MinBaudIndex(d); i < len(BaudRates); i++ {
				cmd := BuildCommand(Echo, d, "")
				if len(cmd) == 0 {
					t.Fatalf("empty echo for %v/%v/%d", d, p, i)
				}
				for _, resp := range []string{"OK", "OK" + d.Terminator(), "OK\r\n"} {
					if !ParseStatus([]byte(resp)) {
						t.Errorf("ParseStatus(%q) = false for %v", resp, d)
					}
				}
			}
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		resp string
		want bool
	}{
		{"OK", true},
		{"OK\r\n", true},
		{"OKlinvorV1.8", true},
		{"OK9600", true},
		{"ok", false},
		{" OK", false},
		{"ERROR:(0)\r\n", false},
		{"+ROLE:0\r\nOK\r\n", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ParseStatus([]byte(tt.resp)); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.resp, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		resp string
		want Role
	}{
		{"+ROLE:0", RoleSecondary},
		{"+ROLE:1", RolePrimary},
		{"+ROLE:2", RoleSecondaryLoop},
		{"+ROLE:0\r\nOK\r\n", RoleSecondary},
		{"+ROLE:3", RoleUnknown},
		{"+ROLE: 1", RoleUnknown},
		{"+ROLE:", RoleUnknown},
		{"ERROR", RoleUnknown},
		{"", RoleUnknown},
	}

	for _, tt := range tests {
		if got := ParseRole([]byte(tt.resp)); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.resp, got, tt.want)
		}
	}
}

func TestParseVersionLine(t *testing.T) {
	tests := []struct {
		resp string
		want string
	}{
		{"3.0-20170601\r\nOK\r\n", "3.0-20170601"},
		{"+VERSION:2.0-20100601\nOK", "+VERSION:2.0-20100601"},
		{"linvorV1.8\r", "linvorV1.8"},
		{"OKlinvorV1.8", "OKlinvorV1.8"},
		{"abc\ndef\rghi", "abc"},
		{"abc\rdef\nghi", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ParseVersionLine([]byte(tt.resp)); got != tt.want {
			t.Errorf("ParseVersionLine(%q) = %q, want %q", tt.resp, got, tt.want)
		}
	}
}

func TestParseUART(t *testing.T) {
	baud, stop, parity, ok := ParseUART([]byte("+UART:38400,1,2\r\nOK\r\n"))
	if !ok {
		t.Fatal("ParseUART() ok = false")
	}
	if baud != 38400 || stop != StopBitsTwo || parity != ParityEven {
		t.Errorf("ParseUART() = %d,%v,%v", baud, stop, parity)
	}

	for _, bad := range []string{"OK", "+UART:9600,0", "+UART:a,b,c", ""} {
		if _, _, _, ok := ParseUART([]byte(bad)); ok {
			t.Errorf("ParseUART(%q) ok = true, want false", bad)
		}
	}
}

func TestParseErrorCode(t *testing.T) {
	tests := []struct {
		resp   string
		want   ErrorCode
		wantOK bool
	}{
		{"ERROR:(0)\r\n", 0x0, true},
		{"ERROR:(11)\r\n", 0x11, true},
		{"ERROR:(1C)", 0x1C, true},
		{"ERROR:()", 0, false},
		{"ERROR", 0, false},
		{"OK", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseErrorCode([]byte(tt.resp))
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseErrorCode(%q) = %v,%v want %v,%v", tt.resp, got, ok, tt.want, tt.wantOK)
		}
	}

	if s := ErrorCode(0x12).String(); s != "12 Invalid baud rate entered" {
		t.Errorf("ErrorCode(0x12).String() = %q", s)
	}
}

func TestPayloadHelpers(t *testing.T) {
	if got := UARTPayload(57600, StopBitsOne, ParityOdd); got != "57600,0,1" {
		t.Errorf("UARTPayload() = %q", got)
	}
	if got := LegacyBaudPayload(7); got != "8" {
		t.Errorf("LegacyBaudPayload(7) = %q, want 8", got)
	}
	if got := LegacyParityPayload(ParityOdd); got != "O" {
		t.Errorf("LegacyParityPayload(Odd) = %q", got)
	}
	if got := RolePayload(RoleSecondaryLoop); got != "2" {
		t.Errorf("RolePayload() = %q", got)
	}
	if got := QuotePasskey("abc"); got != `"abc"` {
		t.Errorf("QuotePasskey() = %q", got)
	}
}

func TestBaudIndex(t *testing.T) {
	if BaudIndex(9600) != DefaultBaudIndex {
		t.Errorf("BaudIndex(9600) = %d", BaudIndex(9600))
	}
	if BaudIndex(4800) != ModernMinBaudIndex {
		t.Errorf("BaudIndex(4800) = %d", BaudIndex(4800))
	}
	if BaudIndex(14400) != -1 {
		t.Error("BaudIndex(14400) should be -1")
	}
	if MinBaudIndex(DialectLegacy) != 0 || MinBaudIndex(DialectModern) != 2 {
		t.Error("MinBaudIndex() wrong")
	}
}

func TestParseParity(t *testing.T) {
	for in, want := range map[string]Parity{"none": ParityNone, "O": ParityOdd, "even": ParityEven, "2": ParityEven} {
		got, err := ParseParity(in)
		if err != nil || got != want {
			t.Errorf("ParseParity(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseParity("mark"); err == nil {
		t.Error("ParseParity(mark) should fail")
	}
}
