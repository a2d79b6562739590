package sim

import (
	"time"

	"github.com/muurk/hcat/internal/atcmd"
)

// RoleReply selects how a Modern module answers AT+ROLE?.
type RoleReply int

const (
	// RoleReplyNumeric answers "+ROLE:<n>" like an HC-05.
	RoleReplyNumeric RoleReply = iota
	// RoleReplyBare answers a plain OK with no role, as many HC-06 2.x do.
	RoleReplyBare
	// RoleReplyLetter answers "+ROLE:S" or "+ROLE:M" (some HC-06 clones).
	RoleReplyLetter
)

// Profile captures the firmware behaviour of one module family.
type Profile struct {
	Name    string
	Dialect atcmd.Dialect
	Version string

	RoleReply    RoleReply
	RoleSettable bool

	// RequiresKey makes the module ignore AT commands unless the KEY pin
	// is in command mode (HC-05).
	RequiresKey bool

	// QuotedPasskey rejects AT+PSWD values without literal quotes (FW 3.x).
	QuotedPasskey bool

	// Latency is the processing time before the first reply byte.
	Latency time.Duration

	DefaultBaud int
	DefaultName string
	DefaultPin  string
}

// Known module families.
var (
	HC05 = Profile{
		Name:          "HC-05",
		Dialect:       atcmd.DialectModern,
		Version:       "3.0-20170601",
		RoleReply:     RoleReplyNumeric,
		RoleSettable:  true,
		RequiresKey:   true,
		QuotedPasskey: true,
		Latency:       5 * time.Millisecond,
		DefaultBaud:   38400,
		DefaultName:   "H-C-2010-06-01",
		DefaultPin:    "1234",
	}

	// HC06Modern is a 2.x HC-06 that answers AT+ROLE? without a role.
	HC06Modern = Profile{
		Name:        "HC-06",
		Dialect:     atcmd.DialectModern,
		Version:     "hc01.comV2.1",
		RoleReply:   RoleReplyBare,
		Latency:     8 * time.Millisecond,
		DefaultBaud: 9600,
		DefaultName: "HC-06",
		DefaultPin:  "1234",
	}

	// HC06ModernSecondary reports Secondary but refuses AT+ROLE=0.
	HC06ModernSecondary = Profile{
		Name:        "HC-06",
		Dialect:     atcmd.DialectModern,
		Version:     "3.0-20170609",
		RoleReply:   RoleReplyNumeric,
		Latency:     8 * time.Millisecond,
		DefaultBaud: 9600,
		DefaultName: "HC-06",
		DefaultPin:  "1234",
	}

	// HC06Legacy is the linvor 1.x firmware.
	HC06Legacy = Profile{
		Name:        "HC-06",
		Dialect:     atcmd.DialectLegacy,
		Version:     "linvorV1.8",
		Latency:     300 * time.Millisecond,
		DefaultBaud: 9600,
		DefaultName: "linvor",
		DefaultPin:  "1234",
	}
)

// ProfileByName maps the --sim flag values to profiles.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case "hc05", "hc-05":
		return HC05, true
	case "hc06", "hc-06", "hc06-modern":
		return HC06Modern, true
	case "hc06-secondary":
		return HC06ModernSecondary, true
	case "hc06-legacy", "linvor":
		return HC06Legacy, true
	}
	return Profile{}, false
}
