package discovery

import (
	"fmt"
	"os"
	"sort"

	"github.com/grandcat/zeroconf"
)

// Announcement describes what a bridge publishes about itself.
type Announcement struct {
	Instance string            // defaults to "hcat on <hostname>"
	Port     int               // HTTP port
	Text     map[string]string // TXT record
}

// Advertiser keeps a bridge registered until Shutdown.
type Advertiser struct {
	server *zeroconf.Server
}

// DefaultInstance names a bridge after the host it runs on.
func DefaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return "hcat on " + host
}

// Advertise registers the bridge on all multicast interfaces.
func Advertise(a Announcement) (*Advertiser, error) {
	if a.Port <= 0 || a.Port > 65535 {
		return nil, fmt.Errorf("invalid advertise port %d", a.Port)
	}
	if a.Instance == "" {
		a.Instance = DefaultInstance()
	}
	srv, err := zeroconf.Register(a.Instance, ServiceType, ServiceDomain, a.Port, formatTXT(a.Text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: srv}, nil
}

// Update replaces the published TXT record, e.g. after a new detection.
func (a *Advertiser) Update(text map[string]string) {
	a.server.SetText(formatTXT(text))
}

// Shutdown withdraws the announcement.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
}

// formatTXT renders a sorted key=value record so announcements are stable.
func formatTXT(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+m[k])
	}
	return out
}
