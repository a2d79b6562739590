package atcmd

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrorCode is the hexadecimal code in an HC-05 "ERROR:(x)" reply.
type ErrorCode int

var errorCodeText = map[ErrorCode]string{
	0x00: "Command error/invalid command",
	0x01: "Results in default value",
	0x02: "PSKEY write error",
	0x03: "Device name is too long (>32 characters)",
	0x04: "No device name specified (0 length)",
	0x05: "Bluetooth address NAP is too long",
	0x06: "Bluetooth address UAP is too long",
	0x07: "Bluetooth address LAP is too long",
	0x08: "PIO map not specified (0 length)",
	0x09: "Invalid PIO port number entered",
	0x0A: "Device class not specified (0 length)",
	0x0B: "Device class too long",
	0x0C: "Inquire access code not specified (0 length)",
	0x0D: "Inquire access code too long",
	0x0E: "Invalid inquire access code entered",
	0x0F: "Pairing password not specified (0 length)",
	0x10: "Pairing password too long (>16 characters)",
	0x11: "Invalid role entered",
	0x12: "Invalid baud rate entered",
	0x13: "Invalid stop bit entered",
	0x14: "Invalid parity bit entered",
	0x15: "No device in the pairing list",
	0x16: "SPP not initialized",
	0x17: "SPP already initialized",
	0x18: "Invalid inquiry mode",
	0x19: "Inquiry timeout occurred",
	0x1A: "Invalid/zero length address entered",
	0x1B: "Invalid security mode entered",
	0x1C: "Invalid encryption mode entered",
}

// String returns the datasheet description of the code
func (c ErrorCode) String() string {
	if text, ok := errorCodeText[c]; ok {
		return fmt.Sprintf("%X %s", int(c), text)
	}
	return fmt.Sprintf("%X Unknown error", int(c))
}

// ParseErrorCode extracts the code from an "ERROR:(1D)" style reply.
func ParseErrorCode(resp []byte) (ErrorCode, bool) {
	s := string(resp)
	i := strings.Index(s, "ERROR:(")
	if i < 0 {
		return 0, false
	}
	rest := s[i+len("ERROR:("):]
	end := strings.IndexByte(rest, ')')
	if end <= 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(rest[:end], 16, 32)
	if err != nil {
		return 0, false
	}
	return ErrorCode(v), true
}
