package atcmd

import "fmt"

// Dialect is the AT command framing spoken by the module firmware.
type Dialect int

const (
	// DialectUnknown means no successful echo has been seen yet
	DialectUnknown Dialect = iota
	// DialectLegacy is firmware 1.x (linvor HC-06): no terminator, slow replies
	DialectLegacy
	// DialectModern is firmware 2.x/3.x (HC-05 and newer HC-06): CRLF terminated
	DialectModern
)

// String returns a human-readable name for the dialect
func (d Dialect) String() string {
	switch d {
	case DialectLegacy:
		return "Legacy (FW 1.x)"
	case DialectModern:
		return "Modern (FW 2.x/3.x)"
	case DialectUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Terminator returns the line ending appended to every command.
func (d Dialect) Terminator() string {
	if d == DialectModern {
		return "\r\n"
	}
	return ""
}

// Role is the Bluetooth connection role of an HC-05 class module.
type Role int

const (
	RoleUnknown Role = iota - 1
	RoleSecondary
	RolePrimary
	RoleSecondaryLoop
)

// String returns a human-readable name for the role
func (r Role) String() string {
	switch r {
	case RoleSecondary:
		return "Secondary"
	case RolePrimary:
		return "Primary"
	case RoleSecondaryLoop:
		return "Secondary-Loop"
	case RoleUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Valid reports whether r is one of the three settable roles.
func (r Role) Valid() bool {
	return r >= RoleSecondary && r <= RoleSecondaryLoop
}

// Parity is the UART parity setting. The ordinal is the value sent in AT+UART.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// Parities lists the parity settings in search order.
var Parities = []Parity{ParityNone, ParityOdd, ParityEven}

// String returns a human-readable name for the parity
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "None"
	case ParityOdd:
		return "Odd"
	case ParityEven:
		return "Even"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// Valid reports whether p is None, Odd or Even.
func (p Parity) Valid() bool {
	return p >= ParityNone && p <= ParityEven
}

// ParseParity accepts "none", "odd", "even" or the single letters n/o/e.
func ParseParity(s string) (Parity, error) {
	switch s {
	case "none", "None", "NONE", "n", "N", "0":
		return ParityNone, nil
	case "odd", "Odd", "ODD", "o", "O", "1":
		return ParityOdd, nil
	case "even", "Even", "EVEN", "e", "E", "2":
		return ParityEven, nil
	}
	return ParityNone, fmt.Errorf("unknown parity %q (use none, odd or even)", s)
}

// StopBits is the UART stop-bit setting. The ordinal is the value sent in AT+UART.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// String returns a human-readable name for the stop bits
func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsTwo:
		return "2"
	default:
		return fmt.Sprintf("StopBits(%d)", int(s))
	}
}

// BaudRates is the shared, ascending baud table. Legacy AT+BAUD<n> uses index+1.
var BaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// ModernMinBaudIndex is the index of 4800, the lowest rate FW 2.x/3.x accepts.
const ModernMinBaudIndex = 2

// DefaultBaudIndex is 9600, the factory setting of both module families.
const DefaultBaudIndex = 3

// BaudIndex returns the table index of rate, or -1 when the rate is not listed.
func BaudIndex(rate int) int {
	for i, b := range BaudRates {
		if b == rate {
			return i
		}
	}
	return -1
}

// ValidBaudIndex reports whether i indexes the baud table.
func ValidBaudIndex(i int) bool {
	return i >= 0 && i < len(BaudRates)
}

// MinBaudIndex returns the lowest baud index the dialect supports.
func MinBaudIndex(d Dialect) int {
	if d == DialectModern {
		return ModernMinBaudIndex
	}
	return 0
}
