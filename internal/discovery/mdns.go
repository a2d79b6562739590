package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type hcat bridges announce
	ServiceType = "_hcat._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse window
	DefaultScanTimeout = 3 * time.Second
)

// Scanner browses the local network for bridges.
type Scanner struct {
	Timeout time.Duration
}

// NewScanner creates a scanner with the default timeout.
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan collects every bridge that answers within the timeout, sorted by instance name.
func (s *Scanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		bridges = make(map[string]*Bridge)
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			if b := parseServiceEntry(entry); b != nil {
				mu.Lock()
				bridges[b.Instance] = b
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	<-ctx.Done()
	// zeroconf closes entries once the browse context ends
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	return sortBridges(bridges), nil
}

func sortBridges(m map[string]*Bridge) []*Bridge {
	out := make([]*Bridge, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

// parseServiceEntry converts a zeroconf entry to a Bridge. It returns nil
// for entries with no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	return &Bridge{
		Instance:     unescapeInstance(entry.Instance),
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     parseTXT(entry.Text),
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits key=value records. A bare key maps to "".
func parseTXT(txt []string) map[string]string {
	md := make(map[string]string, len(txt))
	for _, rec := range txt {
		k, v, _ := strings.Cut(rec, "=")
		md[k] = v
	}
	return md
}

// zeroconf hands back instance names with DNS escapes intact.
func unescapeInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}

// ScanBridges is a convenience wrapper with a custom timeout.
func ScanBridges(ctx context.Context, timeout time.Duration) ([]*Bridge, error) {
	s := NewScanner()
	s.Timeout = timeout
	return s.Scan(ctx)
}
