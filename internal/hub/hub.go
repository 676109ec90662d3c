package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"rideshare/internal/domain"
	"rideshare/internal/redis"
)

// Inbound event names.
const (
	eventJoin            = "join"
	eventJoinRide        = "join-ride"
	eventCaptainLocation = "update-location-captain"
)

// Outbound event names owned by the hub itself.
const (
	eventLocationChanged = "captain-location-changed"
	eventLocationError   = "location-update-error"
)

// ErrNotConnected is returned when a directed event targets an actor with
// no bound connection. The event is dropped, never queued.
var ErrNotConnected = errors.New("actor has no active connection")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub owns every live websocket connection, the actor presence registry
// and ride topic membership. It also relays captain location updates into
// the geo index and out to listening riders.
type Hub struct {
	registry  *PresenceRegistry
	locations redis.LocationStoreInterface

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a new Hub. locations may be nil in tests; location
// updates are then broadcast without being persisted.
func NewHub(locations redis.LocationStoreInterface) *Hub {
	return &Hub{
		registry:  NewPresenceRegistry(),
		locations: locations,
		clients:   make(map[*Client]struct{}),
	}
}

// Registry exposes the presence registry, mainly for tests.
func (h *Hub) Registry() *PresenceRegistry {
	return h.registry
}

// ServeWS upgrades an HTTP request into a websocket connection and starts
// its pumps. The connection stays anonymous until a join event binds it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HUB] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

// UnbindActor clears the presence binding for an actor, so directed events
// stop reaching a session that logged out. The connection itself stays open
// and can rebind with a fresh join.
func (h *Hub) UnbindActor(actorID string) {
	if c := h.registry.Resolve(actorID); c != nil {
		h.registry.Unbind(actorID, c)
	}
}

// Push delivers an event to the connection bound to actorID, if any.
func (h *Hub) Push(actorID, event string, payload any) error {
	client := h.registry.Resolve(actorID)
	if client == nil {
		return ErrNotConnected
	}
	if !client.Send(event, payload) {
		return errors.New("client send buffer full")
	}
	return nil
}

// PushRide delivers an event to every connection subscribed to a ride topic.
func (h *Hub) PushRide(rideID, event string, payload any) {
	for _, client := range h.registry.RoomMembers(rideID) {
		client.Send(event, payload)
	}
}

// PushAll broadcasts an event to every connected client.
func (h *Hub) PushAll(event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.Send(event, payload)
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	h.registry.Drop(c)
}

type joinPayload struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

type joinRidePayload struct {
	RideID string `json:"rideId"`
}

type locationPayload struct {
	CaptainID string `json:"captainId"`
	Location  struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

func (h *Hub) handleMessage(c *Client, env Envelope) {
	switch env.Event {
	case eventJoin:
		h.handleJoin(c, env.Data)
	case eventJoinRide:
		h.handleJoinRide(c, env.Data)
	case eventCaptainLocation:
		h.handleCaptainLocation(c, env.Data)
	default:
		log.Printf("[HUB] unknown event %q ignored", env.Event)
	}
}

// handleJoin binds the connection to an actor. A later join for the same
// actor displaces this one.
func (h *Hub) handleJoin(c *Client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		return
	}

	c.actorID = p.UserID
	switch p.UserType {
	case "captain":
		c.role = domain.RoleCaptain
	default:
		c.role = domain.RoleUser
	}

	h.registry.Bind(p.UserID, c)
}

func (h *Hub) handleJoinRide(c *Client, data json.RawMessage) {
	var p joinRidePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RideID == "" {
		return
	}
	h.registry.JoinRoom(p.RideID, c)
}

// handleCaptainLocation validates and persists a captain position, then
// fans it out to everyone else. Bad coordinates bounce back to the sender
// only.
func (h *Hub) handleCaptainLocation(c *Client, data json.RawMessage) {
	var p locationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.Send(eventLocationError, map[string]string{"message": "Invalid location payload"})
		return
	}

	captainID := p.CaptainID
	if captainID == "" {
		captainID = c.actorID
	}
	if captainID == "" {
		c.Send(eventLocationError, map[string]string{"message": "Captain is not identified"})
		return
	}

	lat, lng := p.Location.Latitude, p.Location.Longitude
	if !validCoordinate(lat, -90, 90) || !validCoordinate(lng, -180, 180) {
		c.Send(eventLocationError, map[string]string{"message": "Invalid location coordinates"})
		return
	}

	if h.locations != nil {
		if err := h.locations.UpdateLocation(context.Background(), captainID, lat, lng); err != nil {
			log.Printf("[HUB] persisting location for captain %s: %v", captainID, err)
		}
	}

	payload := map[string]any{
		"captainId": captainID,
		"location": map[string]float64{
			"latitude":  lat,
			"longitude": lng,
		},
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client == c {
			continue
		}
		client.Send(eventLocationChanged, payload)
	}
}

func validCoordinate(v, min, max float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= min && v <= max
}
