package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/homelearnhq/homelearn/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16 // 64 KiB

	defaultBufferSize = 64
)

// Event is a JSON payload pushed to connected chat clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// InboundMessage is what a connected client sends over the socket.
type InboundMessage struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

// InboundHandler processes a chat message sent by a connected user. Errors are
// reported back to the sender as an "error" event.
type InboundHandler func(ctx context.Context, senderID string, msg InboundMessage) error

// Hub tracks one connection set per user and fans chat events out to them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*connection]struct{}
	handler     InboundHandler
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

// NewHub constructs a chat hub. The inbound handler is wired after
// construction because the chat service and the hub reference each other.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]map[*connection]struct{}),
		log:         logger.WithModule("realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Allow same-origin requests and explicit localhost development.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				requestHost := hostWithoutPort(r.Host)
				return originHost == requestHost || isLoopback(originHost)
			},
		},
	}
}

// SetInboundHandler registers the callback invoked for client chat messages.
func (h *Hub) SetInboundHandler(handler InboundHandler) {
	h.handler = handler
}

// Serve upgrades the HTTP connection to a WebSocket and pumps messages until
// the peer disconnects.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newConnection(h, conn, userID)
	h.register(client)

	go client.writeLoop()
	client.readLoop(r.Context())
}

// SendToUser delivers an event to every open connection of the given user.
// Delivery is best effort; offline users simply miss the push and read the
// message from history instead.
func (h *Hub) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}

	h.mu.RLock()
	targets := make([]*connection, 0, len(h.connections[userID]))
	for client := range h.connections[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	// Enqueue outside the lock: closing a backpressured client unregisters
	// it, which needs the write lock.
	for _, client := range targets {
		select {
		case <-client.done:
		case client.send <- event:
		default:
			h.log.Warn("dropping backpressured client", zap.String("user_id", client.userID))
			client.close()
		}
	}
}

// IsOnline reports whether the user has at least one open connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}

func (h *Hub) register(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[client.userID] == nil {
		h.connections[client.userID] = make(map[*connection]struct{})
	}
	h.connections[client.userID][client] = struct{}{}
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.connections[client.userID]
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.connections, client.userID)
	}
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	userID string
	send   chan Event
	done   chan struct{}
	once   sync.Once
}

func newConnection(hub *Hub, conn *websocket.Conn, userID string) *connection {
	return &connection{
		hub:    hub,
		socket: conn,
		userID: userID,
		send:   make(chan Event, defaultBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *connection) readLoop(ctx context.Context) {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("unexpected close", zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}

		if len(payload) == 0 {
			continue
		}

		var msg InboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.hub.log.Warn("invalid chat payload", zap.String("user_id", c.userID), zap.Error(err))
			c.reply(Event{Type: "error", Data: map[string]string{"message": "invalid message payload"}})
			continue
		}

		if c.hub.handler == nil {
			continue
		}
		if err := c.hub.handler(ctx, c.userID, msg); err != nil {
			c.reply(Event{Type: "error", Data: map[string]string{"message": err.Error()}})
		}
	}
}

func (c *connection) reply(event Event) {
	select {
	case <-c.done:
	case c.send <- event:
	default:
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case event := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close unregisters the connection and signals both loops to stop. The send
// channel is never closed so a concurrent fan-out can still select against
// done without panicking.
func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.done)
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
