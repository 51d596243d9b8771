// Package registry tracks which live connections belong to which chat room.
// Rooms are created implicitly on first join and removed when empty; nothing
// here is persisted.
package registry

import "sync"

// Conn is the registry's view of a live client connection: an identity plus
// a best-effort delivery method. Delivery must not block.
type Conn interface {
	ID() string
	Deliver(event string, payload any)
}

// Registry is the relay's only shared mutable state: a room-keyed set of
// connections.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		rooms: make(map[string]map[Conn]bool),
	}
}

// Join adds a connection to a room. Idempotent; the room is created on
// first join.
func (r *Registry) Join(c Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[Conn]bool)
		r.rooms[roomID] = members
	}
	members[c] = true
}

// Leave removes a connection from a room. No-op if the connection never
// joined. Empty rooms are garbage-collected.
func (r *Registry) Leave(c Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// Disconnect removes a connection from every room it was in.
func (r *Registry) Disconnect(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID, members := range r.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// Broadcast delivers an event to every current member of a room.
// Best-effort: no retry, and a connection that left or disconnected simply
// misses it.
func (r *Registry) Broadcast(roomID, event string, payload any) {
	for _, c := range r.members(roomID) {
		c.Deliver(event, payload)
	}
}

// BroadcastExcept delivers an event to every member of a room except one,
// typically the sender of the event being relayed.
func (r *Registry) BroadcastExcept(roomID string, except Conn, event string, payload any) {
	for _, c := range r.members(roomID) {
		if c == except {
			continue
		}
		c.Deliver(event, payload)
	}
}

// Members returns a snapshot of the room's current connections.
func (r *Registry) Members(roomID string) []Conn {
	return r.members(roomID)
}

func (r *Registry) members(roomID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	snapshot := make([]Conn, 0, len(members))
	for c := range members {
		snapshot = append(snapshot, c)
	}
	return snapshot
}
