package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/gotalk-core/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be less than pongWait

	// A send-message frame carries the text plus a handful of attachment URLs
	maxFrameSize = 16 << 10

	// Events queued per connection before the hub drops it as too slow
	sendBuffer = 256
)

// Client is one live WebSocket connection of a user. A user may hold several.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	ID     string
	UserID uuid.UUID
	Name   string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, name string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
	}
}

// Reply sends an event to this connection only
func (c *Client) Reply(event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling reply: %v", err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.hub.clients[c.UserID][c] {
		c.hub.enqueue(c, data)
	}
}

// MessageHandler processes one inbound event of a client
type MessageHandler func(client *Client, event model.WSEvent)

// ReadPump decodes inbound frames and hands them to handler. Frames that are
// not a JSON event get an error reply. It returns once the connection is
// closed and the client unregistered.
func (c *Client) ReadPump(handler MessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WS read error for %s: %v", c.UserID, err)
			}
			return
		}

		var event model.WSEvent
		if err := json.Unmarshal(frame, &event); err != nil || event.Type == "" {
			c.Reply(&model.WSEvent{
				Type: model.WSEventError,
				Payload: model.ErrorEvent{
					Code:    "INVALID_ARGUMENT",
					Message: "frame is not an event",
				},
			})
			continue
		}

		if handler != nil {
			handler(c, event)
		}
	}
}

// WritePump writes queued events, one event per text frame, and keeps the
// connection alive with pings. It exits when the hub closes the send channel.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
