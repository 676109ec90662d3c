package hub

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"rideshare/internal/domain"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Envelope is the wire frame for both directions: an event name plus a
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one websocket connection. A connection starts anonymous and
// binds to an actor via a join event.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	actorID string
	role    domain.ActorRole
}

// Send enqueues an event for delivery. Reports false when the client's
// buffer is full; the message is dropped rather than blocking the hub.
func (c *Client) Send(event string, payload any) bool {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		log.Printf("[HUB] encoding event %s: %v", event, err)
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func marshalFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event": event,
		"data":  payload,
	})
}

// readPump consumes inbound frames until the connection dies, dispatching
// each one to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[HUB] read error: %v", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("[HUB] malformed frame dropped: %v", err)
			continue
		}

		c.hub.handleMessage(c, env)
	}
}

// writePump drains the send buffer to the connection and keeps it alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
