package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// inboundEvent is the tagged envelope clients send. Events with unknown tags
// or missing fields are rejected with a typed error, never trusted.
type inboundEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn

	// send is written from both the hub loop and the connection's read
	// goroutine, so closing it is guarded by mu.
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 32),
	}
}

// ReadPump consumes inbound events until the socket errors, then runs the
// gateway's disconnect sequence. Must be called on the connection's
// goroutine, like the fiber websocket handler does.
func (c *Client) ReadPump(gateway *Gateway) {
	defer func() {
		gateway.HandleDisconnect(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.SendError("invalid event payload")
			continue
		}

		gateway.handleEvent(c, event)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// SendEvent queues a frame for this connection only. A full buffer drops the
// connection instead of blocking the caller.
func (c *Client) SendEvent(event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("realtime: encode %s event: %v", event, err)
		return
	}
	if !c.enqueue(frame) {
		c.hub.Unregister(c)
	}
}

func (c *Client) SendError(message string) {
	c.SendEvent(models.EventError, models.ErrorPayload{Message: message})
}

// enqueue reports false when the buffer is full or the connection already
// closed, without ever sending on a closed channel.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
