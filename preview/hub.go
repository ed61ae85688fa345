// Package preview streams material updates to browsers over WebSocket and
// accepts update requests over HTTP.
package preview

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/compose"
	"github.com/gogpu/nameplate/material"
)

const (
	// DefaultSendQueue is the number of pending messages a client may have
	// before it is dropped.
	DefaultSendQueue = 4

	writeWait = 10 * time.Second
)

// Hub broadcasts material updates to connected clients. Hub implements
// material.Observer.
type Hub struct {
	upgrader  websocket.Upgrader
	queueSize int

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
	closed  bool

	// WithRoughness adds the CPU-evaluated roughness map to updates.
	WithRoughness bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a Hub whose clients may lag queueSize messages behind.
// A non-positive queueSize uses DefaultSendQueue.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultSendQueue
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 << 10,
		},
		queueSize: queueSize,
		clients:   make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// MaterialUpdated implements material.Observer.
func (h *Hub) MaterialUpdated(s *material.State, maps *compose.Maps) {
	u, err := NewUpdate(s, maps, h.WithRoughness)
	if err == nil {
		var msg []byte
		if msg, err = u.Marshal(); err == nil {
			h.Broadcast(msg)
			return
		}
	}
	nameplate.Logger().Warn("preview: update not broadcast", "generation", s.Generation, "err", err)
}

// Broadcast queues msg for every client. Clients whose queue is full are
// disconnected. msg is also kept for clients that connect later.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			nameplate.Logger().Warn("preview: dropping slow client", "queue", h.queueSize)
			delete(h.clients, c)
			c.close()
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and streams
// updates to it, starting with the latest one.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		nameplate.Logger().Debug("preview: upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.queueSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	nameplate.Logger().Info("preview: client connected", "remote", conn.RemoteAddr())

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages until the connection closes.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		nameplate.Logger().Info("preview: client disconnected", "remote", c.conn.RemoteAddr())
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	return nil
}
