package signaling

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for any
	// SDP offer/answer the browsers produce.
	maxMessageSize = 64 * 1024

	// Outbound queue per connection. When it fills up the hub drops the
	// envelope instead of stalling the routing loop.
	sendQueueSize = 256
)

// Client wraps a single websocket connection on the server side. Name and
// RoomID are owned by the hub goroutine and must not be touched elsewhere.
type Client struct {
	ID   string
	Hub  *Hub
	Conn *websocket.Conn

	// Name is set by a successful register, empty before that.
	Name string

	// RoomID is the room the client currently belongs to, at most one.
	RoomID string

	// Send is the buffered outbound queue drained by WritePump. The hub
	// closes it when the session is torn down.
	Send chan *Envelope

	limiter *rate.Limiter

	// gone is flipped by the hub on teardown so late routing work and a
	// racing unregister cannot touch a dead session twice.
	gone bool
}

// NewClient wires a freshly upgraded connection to the hub. The limiter
// bounds inbound message throughput per connection.
func NewClient(hub *Hub, conn *websocket.Conn, limit rate.Limit, burst int) *Client {
	return &Client{
		ID:      uuid.NewString(),
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan *Envelope, sendQueueSize),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// trySend queues an envelope without ever blocking the hub loop. A full
// queue means the consumer is too slow; the envelope is dropped and logged
// per the best-effort delivery contract.
func (c *Client) trySend(env *Envelope) {
	if c.gone {
		return
	}
	select {
	case c.Send <- env:
	default:
		slog.Warn("outbound queue full, dropping envelope",
			"client", c.Name, "type", env.Type)
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// It runs in a per-connection goroutine and is the only reader of the
// connection. A message that fails to parse is dropped and the connection
// stays open; only transport errors end the loop.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Detach(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("read error", "id", c.ID, "err", err)
			}
			return
		}

		if !c.limiter.Allow() {
			slog.Warn("rate limit exceeded, closing connection",
				"id", c.ID, "remote", c.Conn.RemoteAddr())
			c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded"),
				time.Now().Add(writeWait))
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("dropping malformed envelope", "id", c.ID, "err", err)
			continue
		}

		env.client = c
		c.Hub.inbound <- &env
	}
}

// WritePump pumps queued envelopes to the websocket connection and keeps the
// connection alive with periodic pings. It is the only writer of the
// connection and exits when the hub closes the Send channel.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub tore the session down.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(env); err != nil {
				slog.Debug("write error", "id", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
