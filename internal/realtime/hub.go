// internal/realtime/hub.go

package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// WSMessage is the envelope for every event pushed over the real-time channel
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub is the connection registry: it maps logical user identity to the
// single live connection for this process. Entries are ephemeral and never
// persisted; across processes the registry is not shared and the presence
// layer is consulted instead.
type Hub struct {
	// Registered clients, one connection per user (last connection wins)
	clients    map[int64]*Client
	clientsMux sync.RWMutex

	// Register/unregister clients
	register   chan *Client
	unregister chan *Client

	// Cross-instance presence, optional
	presence *Presence

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// WaitGroup for pending operations
	wg sync.WaitGroup
}

func NewHub(presence *Presence) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   presence,
		ctx:        ctx,
		cancel:     cancel,
	}

	if presence != nil {
		presence.BindLocalDelivery(h.deliverLocal)
	}

	return h
}

func (h *Hub) Run() {
	defer h.cleanup()

	if h.presence != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.presence.Listen(h.ctx)
		}()
	}

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			return
		}
	}
}

// registerClient binds the user to this connection, closing any previous
// connection for the same user (last connection wins).
func (h *Hub) registerClient(client *Client) {
	h.clientsMux.Lock()
	if old, exists := h.clients[client.userID]; exists {
		old.Close()
	}
	h.clients[client.userID] = client
	total := len(h.clients)
	h.clientsMux.Unlock()

	connectionsOpened.Inc()
	activeConnections.Set(float64(total))

	if h.presence != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.presence.Track(h.ctx, client.userID)
		}()
	}

	log.Printf("User %d connected (handle %s). Total clients: %d", client.userID, client.handle, total)
}

// unregisterClient removes the mapping only while it still points at the
// disconnecting connection, so a stale disconnect cannot clobber a newer
// connection for the same user.
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMux.Lock()
	current, exists := h.clients[client.userID]
	if !exists || current.handle != client.handle {
		h.clientsMux.Unlock()
		client.Close()
		return
	}

	client.Close()
	delete(h.clients, client.userID)
	total := len(h.clients)
	h.clientsMux.Unlock()

	activeConnections.Set(float64(total))

	if h.presence != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.presence.Untrack(h.ctx, client.userID)
		}()
	}

	log.Printf("User %d disconnected (handle %s). Total clients: %d", client.userID, client.handle, total)
}

// Notify pushes an event to the user's live connection. Returns false when
// the user is offline everywhere; the event is dropped, never queued.
func (h *Hub) Notify(userID int64, event string, data interface{}) bool {
	msg, err := buildMessage(event, data)
	if err != nil {
		log.Printf("Error marshalling %s event: %v", event, err)
		return false
	}

	if h.deliverLocal(userID, msg) {
		return true
	}

	// Not connected here; the presence layer may know another instance
	if h.presence != nil {
		return h.presence.Forward(h.ctx, userID, msg)
	}

	return false
}

func (h *Hub) deliverLocal(userID int64, msg WSMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}

	// A registered client's send channel is only closed under the write
	// lock, so holding the read lock across the non-blocking send keeps
	// the channel open for its duration.
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	client, exists := h.clients[userID]
	if !exists {
		return false
	}

	select {
	case client.send <- data:
		return true
	default:
		// Slow consumer, drop the connection
		go h.requestUnregister(client)
		return false
	}
}

// requestUnregister hands the client to the hub goroutine, or tears it down
// directly once the hub has shut down and no longer drains the channel. The
// direct path unmaps under the write lock before closing so an in-flight
// delivery cannot hit the closed channel.
func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		h.clientsMux.Lock()
		if current, exists := h.clients[client.userID]; exists && current.handle == client.handle {
			delete(h.clients, client.userID)
		}
		h.clientsMux.Unlock()
		client.Close()
	}
}

// IsUserOnline reports whether the user has a live connection on this process
func (h *Hub) IsUserOnline(userID int64) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// GetActiveConnections returns the local connection count
func (h *Hub) GetActiveConnections() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

func (h *Hub) Shutdown() {
	h.cancel()
	h.wg.Wait()
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[int64]*Client)
	h.clientsMux.Unlock()

	activeConnections.Set(0)
}

func buildMessage(event string, data interface{}) (WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return WSMessage{}, err
	}

	return WSMessage{
		Type:      event,
		Data:      raw,
		Timestamp: time.Now(),
	}, nil
}
