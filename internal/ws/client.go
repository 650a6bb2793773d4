package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"worklink/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 10240
)

var (
	ErrSendBufferFull = errors.New("client send buffer full")
	ErrConnClosed     = errors.New("connection closed")
)

// Client is one authenticated physical connection. Identity is fixed at
// handshake time and never changes for the connection's lifetime.
type Client struct {
	connID   string
	identity auth.Identity
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	closed   sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, identity auth.Identity) *Client {
	return &Client{
		connID:   uuid.NewString(),
		identity: identity,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
	}
}

func (c *Client) ConnID() string {
	return c.connID
}

func (c *Client) UserID() string {
	return c.identity.UserID
}

// Send queues an outbound event. It never blocks: a consumer that
// cannot keep up loses events rather than stalling the dispatcher.
// Sends racing a disconnect are dropped, not delivered.
func (c *Client) Send(event string, data any) error {
	frame, err := json.Marshal(outFrame{Event: event, Data: data})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.closed.Do(func() {
		close(c.done)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.Send(EventError, ErrorData{
				Code:    CodeValidationFailed,
				Message: "invalid JSON frame",
			})
			continue
		}

		c.hub.handleFrame(c, &frame)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
