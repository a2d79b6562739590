package uart

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a local serial port.
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
	Chip         string `json:"chip,omitempty"`
}

// Likely reports whether the port is a USB-UART bridge of the kind usually
// wired to an HC-05/HC-06.
func (p PortInfo) Likely() bool {
	return p.Chip != ""
}

// knownBridges maps USB vendor IDs to the chip families found on cheap
// USB-TTL adapters.
var knownBridges = map[string]string{
	"10C4": "CP210x",
	"1A86": "CH340",
	"0403": "FTDI",
	"067B": "PL2303",
}

// Indirection for tests.
var (
	detailedPortsList = enumerator.GetDetailedPortsList
	plainPortsList    = serial.GetPortsList
)

// ListPorts enumerates serial ports. USB adapters with a known bridge chip
// sort first. When detailed enumeration is unavailable the plain port list is
// returned without USB metadata.
func ListPorts() ([]PortInfo, error) {
	details, err := detailedPortsList()
	if err != nil || len(details) == 0 {
		names, perr := plainPortsList()
		if perr != nil {
			if err != nil {
				return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
			}
			return nil, fmt.Errorf("failed to enumerate serial ports: %w", perr)
		}
		out := make([]PortInfo, 0, len(names))
		for _, n := range names {
			out = append(out, PortInfo{Name: n})
		}
		sortPorts(out)
		return out, nil
	}

	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, classify(d))
	}
	sortPorts(out)
	return out, nil
}

func classify(d *enumerator.PortDetails) PortInfo {
	info := PortInfo{
		Name:         d.Name,
		IsUSB:        d.IsUSB,
		VID:          strings.ToUpper(d.VID),
		PID:          strings.ToUpper(d.PID),
		SerialNumber: d.SerialNumber,
		Product:      d.Product,
	}
	if info.IsUSB {
		info.Chip = knownBridges[info.VID]
	}
	return info
}

func sortPorts(ports []PortInfo) {
	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].Likely() != ports[j].Likely() {
			return ports[i].Likely()
		}
		return ports[i].Name < ports[j].Name
	})
}
