// Package server implements the hcat network bridge.
//
// A bridge owns one serial adapter and one module session and exposes it
// over HTTP so a module wired to a Raspberry Pi can be configured from
// another machine. Requests are serialised through a single mutex; a
// detection holds it for the whole search.
//
// # Routes
//
//	GET  /health        liveness, version, websocket client count
//	GET  /api/device    session state and everything known about the module
//	POST /api/detect    search all dialects, parities and baud rates
//	POST /api/echo      bare AT; failure invalidates the session
//	GET  /api/version   firmware version (cached after the first query)
//	GET  /api/role      role (cached after detection)
//	PUT  /api/role      {"role": 0|1|2}
//	PUT  /api/name      {"name": "..."}; the model tag is prepended
//	PUT  /api/pin       {"pin": "..."}
//	PUT  /api/uart      {"baud_rate": 9600, "parity": "even"}
//	GET  /api/ports     local serial ports, USB-UART bridges first
//	GET  /ws            JSON event stream
//
// # Errors
//
// Device errors map to statuses by type:
//
//	Validation          400
//	Precondition        409 (detect first)
//	NoResponse          502
//	MalformedResponse   502
//	LinkDesync          503 (detect again)
//	Link and others     500
//
// The body carries the short message, the error type and the
// troubleshooting hint.
//
// # Events
//
// Every probe cell, AT transaction and state change is pushed to websocket
// clients as an EventMessage. Publishing never blocks the session; a client
// that falls behind loses events.
//
// # TLS
//
// Setting CertPath and KeyPath serves HTTPS and WSS with TLS 1.2 or newer.
package server
