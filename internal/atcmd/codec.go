package atcmd

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind names each AT command variant. It selects the keyword, the
// Modern separator and the worst-case response size used for timing.
type CommandKind int

const (
	Echo CommandKind = iota
	VersionQuery
	NameSet
	PinSet
	PswdSet
	UartGet
	BaudSet
	ParitySet
	RoleGet
	RoleSet
	Other
)

// StatusOK is the success literal; only the prefix of a reply is inspected.
const StatusOK = "OK"

type separator int

const (
	sepNone separator = iota
	sepSet
	sepQuery
)

type commandSpec struct {
	name      string
	legacy    string // keyword for DialectLegacy
	modern    string // keyword for DialectModern
	sep       separator
	respChars int
}

// commands is indexed by CommandKind.
var commands = [...]commandSpec{
	Echo:         {"Echo", "AT", "AT", sepNone, 4},
	VersionQuery: {"VersionQuery", "AT+VERSION", "AT+VERSION", sepQuery, 26},
	NameSet:      {"NameSet", "AT+NAME", "AT+NAME", sepSet, 22},
	PinSet:       {"PinSet", "AT+PIN", "AT+PIN", sepSet, 6},
	PswdSet:      {"PswdSet", "AT+PSWD", "AT+PSWD", sepSet, 6},
	UartGet:      {"UartGet", "AT+UART", "AT+UART", sepQuery, 22},
	BaudSet:      {"BaudSet", "AT+BAUD", "AT+UART", sepSet, 8},
	ParitySet:    {"ParitySet", "AT+P", "AT+UART", sepSet, 8},
	RoleGet:      {"RoleGet", "AT+ROLE", "AT+ROLE", sepQuery, 4},
	RoleSet:      {"RoleSet", "AT+ROLE", "AT+ROLE", sepSet, 4},
	Other:        {"Other", "", "", sepNone, 40},
}

// String returns the kind name
func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commands) {
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
	return commands[k].name
}

// ResponseChars is the worst-case number of characters the module sends back
// for this kind of command.
func (k CommandKind) ResponseChars() int {
	if k < 0 || int(k) >= len(commands) {
		return commands[Other].respChars
	}
	return commands[k].respChars
}

// BuildCommand assembles the bytes for one AT command.
//
// For Modern dialect the keyword is followed by "=" (sets) or "?" (queries),
// then the payload, then CRLF. Legacy commands are the keyword immediately
// followed by the payload with no terminator. Other sends payload verbatim
// with the dialect terminator.
func BuildCommand(kind CommandKind, dialect Dialect, payload string) []byte {
	if kind < 0 || int(kind) >= len(commands) {
		kind = Other
	}
	spec := commands[kind]

	var b strings.Builder
	if dialect == DialectModern {
		b.WriteString(spec.modern)
		switch spec.sep {
		case sepSet:
			b.WriteByte('=')
		case sepQuery:
			b.WriteByte('?')
		}
	} else {
		b.WriteString(spec.legacy)
	}
	b.WriteString(payload)
	b.WriteString(dialect.Terminator())
	return []byte(b.String())
}

// ParseStatus reports whether the reply begins with "OK". Nothing after the
// prefix is inspected.
func ParseStatus(resp []byte) bool {
	return strings.HasPrefix(string(resp), StatusOK)
}

// ParseRole maps the character after the first ':' to a role.
// "+ROLE:0" is Secondary, "+ROLE:1" Primary, "+ROLE:2" Secondary-Loop;
// anything else, including a missing colon, is RoleUnknown.
func ParseRole(resp []byte) Role {
	i := strings.IndexByte(string(resp), ':')
	if i < 0 || i+1 >= len(resp) {
		return RoleUnknown
	}
	switch resp[i+1] {
	case '0':
		return RoleSecondary
	case '1':
		return RolePrimary
	case '2':
		return RoleSecondaryLoop
	default:
		return RoleUnknown
	}
}

// ParseVersionLine returns the reply up to the first '\n' or '\r',
// whichever comes first. Without either the whole reply is kept.
func ParseVersionLine(resp []byte) string {
	s := string(resp)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// ParseUART decodes a Modern "+UART:<baud>,<stop>,<parity>" reply.
func ParseUART(resp []byte) (baud int, stop StopBits, parity Parity, ok bool) {
	line := ParseVersionLine(resp)
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return 0, 0, 0, false
	}
	fields := strings.Split(line[i+1:], ",")
	if len(fields) != 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for n, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return 0, 0, 0, false
		}
		vals[n] = v
	}
	return vals[0], StopBits(vals[1]), Parity(vals[2]), true
}

// UARTPayload formats the Modern AT+UART payload. Stop bits and parity are
// sent as raw ordinals.
func UARTPayload(baudRate int, stop StopBits, parity Parity) string {
	return fmt.Sprintf("%d,%d,%d", baudRate, int(stop), int(parity))
}

// LegacyBaudPayload formats the Legacy AT+BAUD<n> digit, which is index+1.
func LegacyBaudPayload(baudIndex int) string {
	return strconv.Itoa(baudIndex + 1)
}

// LegacyParityPayload returns the letter used by AT+PN, AT+PO and AT+PE.
func LegacyParityPayload(p Parity) string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	default:
		return "N"
	}
}

// RolePayload formats the AT+ROLE=<n> ordinal.
func RolePayload(r Role) string {
	return strconv.Itoa(int(r))
}

// QuotePasskey wraps a Modern passkey in literal quotes. FW 3.x rejects
// unquoted values even though the datasheet does not mention it.
func QuotePasskey(pin string) string {
	return `"` + pin + `"`
}
