// Package discovery finds and announces hcat bridges over mDNS.
//
// An hcat-server instance owns one USB-UART adapter and exposes the module
// behind it over HTTP. It registers itself as "_hcat._tcp" so that
// 'hcat-cfg bridges' can list every bridge on the local segment without
// knowing addresses in advance.
//
// # Usage Example
//
//	adv, err := discovery.Advertise(discovery.Announcement{
//	    Port: 8089,
//	    Text: map[string]string{discovery.TxtPort: "/dev/ttyUSB0"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adv.Shutdown()
//
//	bridges, err := discovery.ScanBridges(ctx, 3*time.Second)
//	for _, b := range bridges {
//	    fmt.Println(b)
//	}
//
// # Network Requirements
//
// Multicast must be allowed on the interface and UDP port 5353 open.
package discovery
