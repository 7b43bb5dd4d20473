package websocket

import (
	"context"
	"sync"

	"sentinal-social/internal/metrics"

	"github.com/google/uuid"
)

// Hub tracks the websocket connections of this instance by user. Events reach
// it already addressed to a user, so there are no channel subscriptions.
type Hub struct {
	mu sync.RWMutex

	// users maps user ID to that user's open connections
	users map[uuid.UUID]map[*Client]struct{}

	// ops carries registrations and unregistrations on one channel so a
	// connection's unregister is never applied before its register.
	ops chan hubOp
}

type hubOp struct {
	client *Client
	add    bool
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[uuid.UUID]map[*Client]struct{}),
		ops:   make(chan hubOp, 256),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case op := <-h.ops:
			if op.add {
				h.addClient(op.client)
			} else {
				h.removeClient(op.client)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.ops <- hubOp{client: client, add: true}
}

func (h *Hub) Unregister(client *Client) {
	h.ops <- hubOp{client: client}
}

// BroadcastToUser queues payload on every connection of userID. It never
// blocks on a slow client.
func (h *Hub) BroadcastToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.SendMessage(payload)
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.users {
		n += len(conns)
	}
	return n
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.users[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.users[client.UserID] = conns
	}
	conns[client] = struct{}{}
	metrics.OnlineConns.Inc()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.users, client.UserID)
	}
	metrics.OnlineConns.Dec()
	close(client.Send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.users {
		for c := range conns {
			metrics.OnlineConns.Dec()
			close(c.Send)
		}
		delete(h.users, userID)
	}
}
