package chatws

import (
	"sync"
)

// Hub is the connection registry: the per-user set of live connections
// and the room-to-connection fan-out index. It is the only mutable
// state shared across connection goroutines, so every method is safe
// for concurrent use. Nothing here is persisted; a restart loses the
// maps and reconnecting clients rebuild them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register adds the client to its user's connection set. Idempotent
// per client.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.user.ID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.user.ID] = set
	}
	set[client] = struct{}{}
}

// Unregister removes the client from the registry and from every room
// it joined, and closes its send channel. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// JoinRoom adds the client to a room. A client unregistered while the
// join races is not resurrected.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed {
		return
	}

	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[roomID] = set
	}
	set[client] = struct{}{}
	client.rooms[roomID] = struct{}{}
}

// Broadcast delivers payload to every connection currently in the
// room, the sender's own included. Delivery order across calls matches
// call order: the whole fan-out happens under one lock, so the layer
// introduces no reordering of its own.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(roomID, "", payload)
}

// BroadcastExcept delivers payload to every connection in the room
// except those belonging to excludeUserID. Used for typing indicators,
// which never echo back to the typist's own connections.
func (h *Hub) BroadcastExcept(roomID string, excludeUserID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(roomID, excludeUserID, payload)
}

// Send queues payload on a single client, evicting it if its buffer is
// full.
func (h *Hub) Send(client *Client, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.removeLocked(client)
	}
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// OnlineUsers returns a snapshot of all user ids with a live
// connection.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

func (h *Hub) deliverLocked(roomID string, excludeUserID string, payload []byte) {
	for client := range h.rooms[roomID] {
		if excludeUserID != "" && client.user.ID == excludeUserID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// A consumer that cannot keep up is dropped rather than
			// allowed to stall the room.
			h.removeLocked(client)
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	if client.closed {
		return
	}
	client.closed = true

	if set, ok := h.clients[client.user.ID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.clients, client.user.ID)
		}
	}

	for roomID := range client.rooms {
		if set, ok := h.rooms[roomID]; ok {
			delete(set, client)
			if len(set) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	close(client.send)
}
