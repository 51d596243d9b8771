package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dkwan/marketchat/internal/models"
)

// Client is one live connection: a socket, a buffered outbound queue
// drained by a single writer goroutine, and an opaque id.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	// mu guards closed and the send channel's lifecycle: Deliver may be
	// called from any goroutine holding a stale registry snapshot after
	// the connection is gone.
	mu     sync.Mutex
	closed bool

	// Buffered channel of outbound frames.
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.cfg.SendQueueSize),
	}
}

// ID returns the connection's opaque identifier.
func (c *Client) ID() string {
	return c.id
}

// Deliver queues an event for this connection. Best-effort: if the client's
// send queue is full the event is dropped rather than blocking the caller,
// and a client that already disconnected simply misses it.
func (c *Client) Deliver(event string, payload any) {
	frame, err := marshalEvent(event, payload)
	if err != nil {
		c.hub.logger.Error("marshal event", "event", event, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("send queue full, dropping event", "conn", c.id, "event", event)
	}
}

// close marks the client as disconnected and releases its write pump.
// Idempotent, and safe against concurrent Deliver calls: the send channel
// is only ever closed under the same lock Deliver sends under.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads events from the socket and dispatches them. It runs in a
// per-connection goroutine, so a handler suspended on a gateway call only
// delays this connection's next event.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("read error", "conn", c.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.hub.logger.Warn("malformed event envelope", "conn", c.id, "error", err)
			continue
		}
		c.dispatch(env)
	}
}

// dispatch routes one decoded event. Malformed payloads are logged and
// dropped, and a panicking handler is recovered and logged; a single
// event's failure never takes down the connection, other clients, or the
// relay process.
func (c *Client) dispatch(env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.hub.logger.Error("event handler panic", "conn", c.id, "event", env.Event, "panic", r)
		}
	}()

	switch env.Event {
	case EventJoinChat:
		var roomID string
		if err := json.Unmarshal(env.Payload, &roomID); err != nil || roomID == "" {
			c.hub.logger.Warn("malformed join-chat payload", "conn", c.id)
			return
		}
		c.hub.rooms.Join(c, roomID)
		c.hub.logger.Info("joined chat", "conn", c.id, "chat", roomID)

	case EventLeaveChat:
		var roomID string
		if err := json.Unmarshal(env.Payload, &roomID); err != nil || roomID == "" {
			c.hub.logger.Warn("malformed leave-chat payload", "conn", c.id)
			return
		}
		c.hub.rooms.Leave(c, roomID)
		c.hub.logger.Info("left chat", "conn", c.id, "chat", roomID)

	case EventTypingStart, EventTypingStop:
		var p TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ChatID == "" {
			c.hub.logger.Warn("malformed typing payload", "conn", c.id, "event", env.Event)
			return
		}
		relayed := EventUserTyping
		if env.Event == EventTypingStop {
			relayed = EventUserStoppedTyping
		}
		c.hub.rooms.BroadcastExcept(p.ChatID, c, relayed, TypingPayload{UserID: p.UserID})

	case EventSendMessage:
		var p models.SendMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ChatID == "" || p.Sender == "" {
			c.hub.logger.Warn("malformed send-message payload", "conn", c.id)
			c.Deliver(EventMessageError, ErrorPayload{Error: "Invalid message payload"})
			return
		}
		c.hub.handler.SendMessage(context.Background(), c, p)

	default:
		c.hub.logger.Warn("unknown event", "conn", c.id, "event", env.Event)
	}
}

// writePump drains the send queue to the socket and keeps the connection
// alive with pings. One writer goroutine per connection.
func (c *Client) writePump() {
	pingPeriod := c.hub.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
