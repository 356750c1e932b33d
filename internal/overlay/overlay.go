// Package overlay pushes error-page failures to connected browsers over a
// WebSocket so developers see them without reading server logs.
package overlay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/ssr"
)

// DefaultPath is where the overlay WebSocket is mounted.
const DefaultPath = "/_errpage/overlay"

// MessageType represents the type of overlay message.
type MessageType string

const (
	MessageError MessageType = "error"
	MessageClear MessageType = "clear"
)

// Message is sent to browsers via WebSocket.
type Message struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"`
	Message string      `json:"message,omitempty"`
	Stack   string      `json:"stack,omitempty"`
	Method  string      `json:"method,omitempty"`
	Path    string      `json:"path,omitempty"`
	Time    time.Time   `json:"time,omitempty"`
}

// writeWait bounds a single frame write to a browser.
const writeWait = 5 * time.Second

// client serializes writes to one connection; gorilla/websocket allows a
// single concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages overlay WebSocket connections.
type Hub struct {
	clients  map[*client]struct{}
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a new overlay hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // development only
			},
		},
		logger: logger.With("component", "overlay"),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Debug("overlay upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

// Handler returns an ssr.ErrorHandler that broadcasts each failure.
func (h *Hub) Handler() ssr.ErrorHandler {
	return func(err *errinfo.Structured, req *ssr.Request) {
		h.NotifyError(err, req)
	}
}

// NotifyError sends an error message to all clients.
func (h *Hub) NotifyError(err *errinfo.Structured, req *ssr.Request) {
	msg := Message{
		Type:    MessageError,
		ID:      uuid.NewString(),
		Message: err.Message,
		Stack:   err.Stack,
		Time:    time.Now().UTC(),
	}
	if req != nil {
		msg.Method = req.Method
		if req.URL != nil {
			msg.Path = req.URL.Path
		}
	}
	h.broadcast(msg)
}

// Clear clears the overlay on all clients.
func (h *Hub) Clear() {
	h.broadcast(Message{Type: MessageClear})
}

// broadcast sends a message to all connected clients.
func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.logger.Debug("overlay write failed", "error", err)
			h.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}
