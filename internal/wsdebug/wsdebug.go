// Package wsdebug fans a published Snapshot out to any connected
// WebSocket clients. It is a debug/observability surface only: no
// inbound topic subscriptions are accepted, clients just watch
// whatever is broadcast.
package wsdebug

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// Message is the envelope broadcast to every connected client.
type Message struct {
	Type string             `json:"type"`
	Data *snapshot.Snapshot `json:"data"`
}

// client is one connected WebSocket subscriber. Outbound only: it has
// no read loop beyond detecting disconnect, since the hub never
// accepts inbound messages.
type client struct {
	conn   *websocket.Conn
	send   chan *Message
	mu     sync.Mutex
	closed bool
}

// Hub broadcasts published snapshots to connected debug clients.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewHub constructs a Hub. Call Run in its own goroutine before
// accepting connections via ServeHTTP.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan *Message),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.Named("ws-debug"),
	}
}

// Run drives the hub's register/unregister/broadcast loop for the
// process lifetime.
func (h *Hub) Run() {
	h.logger.Info("starting debug websocket hub")

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", logger.Int("client_count", count))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.mu.Lock()
				if !c.closed {
					c.closed = true
					close(c.send)
				}
				c.mu.Unlock()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client unregistered", logger.Int("client_count", count))

		case msg := <-h.broadcast:
			h.mu.RLock()
			var stale []*client
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					stale = append(stale, c)
				}
			}
			h.mu.RUnlock()

			if len(stale) > 0 {
				h.mu.Lock()
				for _, c := range stale {
					if _, ok := h.clients[c]; ok {
						delete(h.clients, c)
						c.mu.Lock()
						if !c.closed {
							c.closed = true
							close(c.send)
						}
						c.mu.Unlock()
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast publishes snap to every connected client as a "snapshot"
// message. Called once per pipeline cycle.
func (h *Hub) Broadcast(snap *snapshot.Snapshot) {
	h.broadcast <- &Message{Type: "snapshot", Data: snap}
}

// ServeHTTP upgrades the request to a WebSocket connection and
// registers it with the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection", logger.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan *Message, 16)}
	h.register <- c

	go c.writePump(h)
	go c.readPump(h)
}

// readPump exists only to detect client disconnect (pings, close
// frames) and trigger unregistration; it discards any inbound data.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(h *Hub) {
	defer c.conn.Close()

	for msg := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		if err := json.NewEncoder(w).Encode(msg); err != nil {
			h.logger.Error("failed to encode websocket message", logger.Error(err))
			w.Close()
			return
		}
		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
