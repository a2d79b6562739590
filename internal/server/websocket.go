package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/hcdevice"
	"github.com/muurk/hcat/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything bigger is a misbehaving peer
	maxMessageSize = 512

	// Events queued per client before new ones are dropped
	sendBuffer = 256
)

// EventMessage is the JSON form of an hcdevice.Event. Only the fields for
// Type are set.
type EventMessage struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`

	Dialect  string `json:"dialect,omitempty"`
	BaudRate int    `json:"baud_rate,omitempty"`
	Parity   string `json:"parity,omitempty"`
	Cell     int    `json:"cell,omitempty"`
	Total    int    `json:"total,omitempty"`
	Matched  *bool  `json:"matched,omitempty"`

	Kind     string `json:"kind,omitempty"`
	Command  string `json:"command,omitempty"`
	Response string `json:"response,omitempty"`
	OK       *bool  `json:"ok,omitempty"`
	WaitMs   int64  `json:"wait_ms,omitempty"`

	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Reason string `json:"reason,omitempty"`

	Device *DeviceResponse `json:"device,omitempty"`
}

// NewEventMessage converts an event for the wire.
func NewEventMessage(e hcdevice.Event) EventMessage {
	m := EventMessage{Type: e.Type.String(), Time: e.Time}
	switch e.Type {
	case hcdevice.EventDetectStart:
		m.Total = e.Total
	case hcdevice.EventProbeCell:
		matched := e.Matched
		m.Dialect = e.Dialect.String()
		m.BaudRate = e.BaudRate
		m.Parity = e.Parity.String()
		m.Cell, m.Total, m.Matched = e.Cell, e.Total, &matched
	case hcdevice.EventTransaction:
		ok := e.OK
		m.Kind = e.Kind.String()
		m.Command = string(e.Command)
		m.Response = string(e.Response)
		m.OK = &ok
		m.WaitMs = e.Wait.Milliseconds()
		m.BaudRate = e.BaudRate
	case hcdevice.EventStateChange:
		m.From, m.To, m.Reason = e.From.String(), e.To.String(), e.Reason
	case hcdevice.EventDetectDone:
		matched := e.Matched
		m.Cell, m.Total, m.Matched = e.Cell, e.Total, &matched
		if e.Config != nil {
			d := newDeviceResponse(hcdevice.StateDetected, *e.Config, "")
			if !e.Matched {
				d.State = hcdevice.StateUndetected.String()
			}
			m.Device = &d
		}
	}
	return m
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// Hub fans session events out to websocket clients. Publish never blocks:
// it runs on the session's goroutine while the bridge mutex is held.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues e for every client. Slow clients lose events.
func (h *Hub) Publish(e hcdevice.Event) {
	data, err := json.Marshal(NewEventMessage(e))
	if err != nil {
		logging.Error("Failed to marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Debug("Dropping event for slow client",
				zap.String("remote_addr", c.remote),
				zap.String("type", e.Type.String()),
			)
		}
	}
}

// ServeWS upgrades the request and streams events until the peer leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer), remote: r.RemoteAddr}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	logging.LogConnection(c.remote, "websocket_connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		logging.LogConnection(c.remote, "websocket_closed")
	}
}

// readPump drains control frames so pongs are seen, and notices the close.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		logging.LogWebSocketMessage(c.remote, "received", data)
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			logging.LogWebSocketMessage(c.remote, "sent", msg)
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r)
}
