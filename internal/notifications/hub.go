package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per signed-in user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub fans invalidation events out to every connected page. Anonymous
// viewers register with userID 0 and are only bound by the global limit.
type Hub struct {
	mu         sync.RWMutex
	conns      map[*Client]struct{}
	perUser    map[uint]int
	totalConns int
	closed     bool
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "invalidation hub" }

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		conns:   make(map[*Client]struct{}),
		perUser: make(map[uint]int),
	}
}

// Register a connection. Returns the Client or an error if limits are exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	if userID != 0 && h.perUser[userID] >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.conns[client] = struct{}{}
	h.totalConns++
	if userID != 0 {
		h.perUser[userID]++
	}
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes client; it is safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client]; !ok {
		return
	}
	delete(h.conns, client)
	h.totalConns--
	if client.UserID != 0 {
		h.perUser[client.UserID]--
		if h.perUser[client.UserID] <= 0 {
			delete(h.perUser, client.UserID)
		}
	}
	close(client.Send)
	observability.WebSocketConnectionsTotal.Dec()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// BroadcastAll sends message to every connected websocket client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.conns {
		c.TrySend(data)
	}
}

// StartWiring subscribes the hub to invalidation events published through n.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartInvalidationSubscriber(ctx, h.BroadcastAll)
}

// Shutdown closes every connection and rejects new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for client := range h.conns {
		if client.Conn != nil {
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Debug("failed to write close message", slog.String("error", err.Error()))
			}
			_ = client.Conn.Close()
		}
		close(client.Send)
		observability.WebSocketConnectionsTotal.Dec()
	}
	h.conns = make(map[*Client]struct{})
	h.perUser = make(map[uint]int)
	h.totalConns = 0
	return nil
}
