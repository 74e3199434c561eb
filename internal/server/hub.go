package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/vlist/internal/logging"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 64
)

// client is one connected websocket peer. Slow peers whose send queue
// fills are dropped rather than backpressuring the broadcast path.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine events out to every connected websocket client and
// feeds inbound client commands to a single handler. Safe for
// concurrent use.
type Hub struct {
	logger         logging.Logger
	allowedOrigins []string
	onCommand      func([]byte)

	mu      sync.RWMutex
	clients map[*client]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub. onCommand receives every inbound client frame;
// nil disables command handling.
func NewHub(allowedOrigins []string, onCommand func([]byte), logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		logger:         logger.WithComponent("hub"),
		allowedOrigins: allowedOrigins,
		onCommand:      onCommand,
		clients:        make(map[*client]struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// IsAllowedOrigin validates a websocket Origin header. An empty allow
// list permits same-machine development origins only; "*" permits
// everything.
func (h *Hub) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		// Non-browser clients send no Origin header.
		return true
	}

	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		return u.Hostname() == "localhost" || u.Hostname() == "127.0.0.1"
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// HandleWebSocket upgrades the request and runs the client until it
// disconnects or the hub shuts down.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.IsAllowedOrigin(r.Header.Get("Origin")) {
		h.logger.Warn(r.Context(), nil, "websocket rejected: origin not allowed",
			"origin", r.Header.Get("Origin"),
			"remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)

		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin already validated against the configured allow list.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)

		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueueSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug(r.Context(), "websocket client connected",
		"remote", r.RemoteAddr,
		"clients", count)

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast marshals v and queues it to every connected client.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(h.ctx, err, "broadcast payload not marshalable")

		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Queue full: the write pump will notice on close.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Shutdown closes every client connection and stops the hub.
func (h *Hub) Shutdown() {
	h.cancel()

	h.mu.Lock()
	for c := range h.clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) writePump(c *client) {
	for {
		select {
		case data := <-c.send:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.remove(c)
				_ = c.conn.Close(websocket.StatusAbnormalClosure, "write failed")

				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(h.ctx)
		if err != nil {
			return
		}

		if h.onCommand != nil {
			h.onCommand(data)
		}
	}
}
