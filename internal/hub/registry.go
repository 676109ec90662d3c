package hub

import "sync"

// PresenceRegistry maps actor IDs to their live connection and tracks ride
// topic membership. A rebind replaces the previous connection: the newest
// socket wins and the old one stops receiving directed events.
type PresenceRegistry struct {
	mu     sync.RWMutex
	actors map[string]*Client
	rooms  map[string]map[*Client]struct{}
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		actors: make(map[string]*Client),
		rooms:  make(map[string]map[*Client]struct{}),
	}
}

// Bind associates an actor ID with a connection, displacing any previous
// binding. Returns the displaced client, if any.
func (r *PresenceRegistry) Bind(actorID string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.actors[actorID]
	if prev == c {
		return nil
	}
	r.actors[actorID] = c
	return prev
}

// Unbind removes the actor binding, but only if it still points at c. A
// newer connection that displaced c is left untouched.
func (r *PresenceRegistry) Unbind(actorID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.actors[actorID] == c {
		delete(r.actors, actorID)
	}
}

// Resolve returns the connection currently bound to an actor, or nil.
func (r *PresenceRegistry) Resolve(actorID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actors[actorID]
}

// JoinRoom subscribes a connection to a ride topic.
func (r *PresenceRegistry) JoinRoom(rideID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[rideID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[rideID] = room
	}
	room[c] = struct{}{}
}

// RoomMembers returns the connections subscribed to a ride topic.
func (r *PresenceRegistry) RoomMembers(rideID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[rideID]
	members := make([]*Client, 0, len(room))
	for c := range room {
		members = append(members, c)
	}
	return members
}

// Drop removes a connection from every room and, if it is the bound
// connection for its actor, from the actor table.
func (r *PresenceRegistry) Drop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for rideID, room := range r.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, rideID)
		}
	}
	if c.actorID != "" && r.actors[c.actorID] == c {
		delete(r.actors, c.actorID)
	}
}
