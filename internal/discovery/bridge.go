package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// TXT record keys published by a bridge.
const (
	TxtVersion = "version" // hcat build
	TxtPort    = "port"    // serial device the bridge owns
	TxtModel   = "model"   // last detected module model
	TxtPath    = "path"    // API prefix
)

// Bridge is an hcat-server instance found on the local network.
type Bridge struct {
	// Instance is the mDNS instance name (e.g. "hcat on raspberrypi")
	Instance string

	// Hostname is the mDNS hostname (e.g. "raspberrypi.local.")
	Hostname string

	// IP is the first usable address, IPv4 preferred
	IP string

	// Port is the HTTP port of the bridge API
	Port int

	// Metadata holds the TXT record
	Metadata map[string]string

	// DiscoveredAt is when the bridge answered
	DiscoveredAt time.Time
}

func (b *Bridge) String() string {
	model := b.GetMetadata(TxtModel)
	if model == "" {
		model = "no module"
	}
	return fmt.Sprintf("%s (%s) at %s [%s]", b.Instance, model, b.Addr(), b.GetMetadata(TxtPort))
}

// Addr returns host:port, bracketing IPv6 addresses.
func (b *Bridge) Addr() string {
	return net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// BaseURL returns the HTTP base URL of the bridge API.
func (b *Bridge) BaseURL() string {
	return "http://" + b.Addr()
}

// GetMetadata retrieves a TXT value by key, or "" if absent.
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
