package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed on /api/events.
const (
	EventSnapshot = "snapshot"
	EventHand     = "hand"
)

const (
	clientBuffer = 32
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts session snapshots and detected hands to WebSocket clients.
// Slow clients drop messages rather than stall the tick loop.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
	initial func() any
}

// NewHub creates a Hub. initial, if set, supplies the snapshot sent to each
// client right after it connects.
func NewHub(initial func() any) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		initial: initial,
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends an event to every connected client.
func (h *Hub) Publish(eventType string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, ok := encodeEvent(eventType, data)
	if !ok {
		return
	}
	for c := range h.clients {
		c.queue(msg)
	}
}

func encodeEvent(eventType string, data any) ([]byte, bool) {
	msg, err := json.Marshal(event{Type: eventType, Timestamp: time.Now().UnixMilli(), Data: data})
	if err != nil {
		slog.Warn("failed to encode event", "type", eventType, "err", err)
		return nil, false
	}
	return msg, true
}

// queue drops msg when the client's buffer is full.
func (c *client) queue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	// The greeting goes to this client only, ahead of any broadcast.
	if h.initial != nil {
		if msg, ok := encodeEvent(EventSnapshot, h.initial()); ok {
			c.queue(msg)
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	<-done
}

func (h *Hub) writeLoop(c *client, done chan<- struct{}) {
	defer close(done)
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// Drain until the reader notices the broken connection.
			continue
		}
	}
}
