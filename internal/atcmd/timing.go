package atcmd

import "time"

const (
	// BitsPerChar is worst-case UART framing: start, 8 data, parity, 2 stop.
	BitsPerChar = 12

	// LegacyBaseDelay covers the slow command processing of FW 1.x.
	LegacyBaseDelay = 550 * time.Millisecond

	// ModernBaseDelay covers FW 2.x/3.x processing.
	ModernBaseDelay = 40 * time.Millisecond

	// ConfigSettle is the pause after opening or closing the local UART.
	ConfigSettle = 20 * time.Millisecond

	// ClearSettle is how long a Modern module gets to answer a bare CRLF
	// before the input buffer is drained.
	ClearSettle = ModernBaseDelay
)

// BaseDelay returns the fixed processing allowance for the dialect.
func BaseDelay(d Dialect) time.Duration {
	if d == DialectModern {
		return ModernBaseDelay
	}
	return LegacyBaseDelay
}

// ResponseDelay is how long to wait after flushing a command before checking
// for a reply:
//
//	ceil((sentChars + respChars[kind]) * 12 * 1000 / baudRate) ms + base[dialect]
//
// A shorter wait produces false negatives; the search relies on it being exact.
func ResponseDelay(kind CommandKind, dialect Dialect, sentChars int, baudRate int) time.Duration {
	if baudRate <= 0 {
		return BaseDelay(dialect)
	}
	bits := (sentChars + kind.ResponseChars()) * BitsPerChar * 1000
	ms := (bits + baudRate - 1) / baudRate
	return time.Duration(ms)*time.Millisecond + BaseDelay(dialect)
}
