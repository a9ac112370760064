package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Phuc-215/WEBRTC/internal/signaling"
)

const writeWait = 10 * time.Second

// ErrRetriesExhausted is delivered on Events.Closed after the last
// reconnect attempt fails.
var ErrRetriesExhausted = errors.New("client: reconnect attempts exhausted")

// Scheduler produces the delay between reconnect attempts. Tests inject a
// fake so the state machine can be exercised without real timers.
type Scheduler interface {
	After(d time.Duration) <-chan time.Time
}

type timeScheduler struct{}

func (timeScheduler) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Client maintains a websocket connection to the signaling server,
// dispatches inbound envelopes to typed event channels and transparently
// reconnects after unexpected closures (fixed delay, bounded attempts).
type Client struct {
	url    string
	dialer *websocket.Dialer
	sched  Scheduler
	events *Events

	mu   sync.Mutex
	fsm  fsm
	conn *websocket.Conn
	name string

	closeOnce sync.Once
	closed    chan struct{}
}

func New(url string) *Client {
	return newClient(url, timeScheduler{})
}

func newClient(url string, sched Scheduler) *Client {
	return &Client{
		url:    url,
		dialer: websocket.DefaultDialer,
		sched:  sched,
		events: newEvents(),
		closed: make(chan struct{}),
	}
}

// Events returns the inbound event channels.
func (c *Client) Events() *Events {
	return c.events
}

// State reports the current transport state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.state
}

// Connect dials the server and starts the read loop. A failure of this
// initial dial is returned directly and does not consume retry budget;
// automatic reconnection only covers closures after a successful open.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.fsm.connectRequested() != ActionDial {
		c.mu.Unlock()
		return errors.New("client: already started")
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.fsm.state = StateDisconnected
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.fsm.dialSucceeded()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close shuts the connection down for good. No reconnect will fire after
// an explicit close.
func (c *Client) Close() error {
	c.mu.Lock()
	c.fsm.closeRequested()
	conn := c.conn
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.closed)
		if conn != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		}
		c.pushClosed(nil)
	})
	return nil
}

// Register binds a display name on the server. The name is remembered as
// the sender identity for outgoing negotiation envelopes.
func (c *Client) Register(name string) error {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	return c.send(&signaling.Envelope{Type: signaling.KindRegister, Name: name})
}

// JoinRoom enters a room, leaving the previous one implicitly.
func (c *Client) JoinRoom(roomID string) error {
	return c.send(&signaling.Envelope{Type: signaling.KindJoinRoom, RoomID: roomID, Name: c.senderName()})
}

// LeaveRoom leaves the given room.
func (c *Client) LeaveRoom(roomID string) error {
	return c.send(&signaling.Envelope{Type: signaling.KindLeaveRoom, RoomID: roomID})
}

// SendOffer forwards an opaque SDP offer to target. roomID may be empty
// for direct (room-less) calls.
func (c *Client) SendOffer(roomID, target string, offer json.RawMessage) error {
	return c.send(&signaling.Envelope{
		Type: signaling.KindOffer, RoomID: roomID,
		Sender: c.senderName(), Target: target, Offer: offer,
	})
}

// SendAnswer forwards an opaque SDP answer to target.
func (c *Client) SendAnswer(roomID, target string, answer json.RawMessage) error {
	return c.send(&signaling.Envelope{
		Type: signaling.KindAnswer, RoomID: roomID,
		Sender: c.senderName(), Target: target, Answer: answer,
	})
}

// SendCandidate forwards an opaque ICE candidate to target.
func (c *Client) SendCandidate(roomID, target string, candidate json.RawMessage) error {
	return c.send(&signaling.Envelope{
		Type: signaling.KindCandidate, RoomID: roomID,
		Sender: c.senderName(), Target: target, Candidate: candidate,
	})
}

// EndCall tears down the client's direct call, if any.
func (c *Client) EndCall() error {
	return c.send(&signaling.Envelope{Type: signaling.KindEndCall, Sender: c.senderName()})
}

func (c *Client) senderName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) send(env *signaling.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.state != StateOpen || c.conn == nil {
		return errors.New("client: not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(env)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var env signaling.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("dropping malformed envelope from server", "err", err)
			continue
		}
		c.events.dispatch(&env)
	}

	conn.Close()
	c.reconnect()
}

// reconnect runs the retry loop after the read loop ends. An explicit
// Close has already moved the fsm to StateClosed, in which case this is a
// no-op.
func (c *Client) reconnect() {
	for {
		c.mu.Lock()
		action := c.fsm.closedUnexpectedly()
		attempt := c.fsm.attempts
		c.mu.Unlock()

		switch action {
		case ActionNone:
			return
		case ActionGiveUp:
			slog.Error("reconnect attempts exhausted", "attempts", attempt)
			c.pushClosed(ErrRetriesExhausted)
			return
		}

		slog.Warn("connection lost, reconnecting",
			"attempt", attempt, "max", MaxAttempts, "delay", RetryDelay)

		select {
		case <-c.sched.After(RetryDelay):
		case <-c.closed:
			return
		}

		conn, _, err := c.dialer.DialContext(context.Background(), c.url, nil)
		if err != nil {
			slog.Warn("reconnect dial failed", "attempt", attempt, "err", err)
			continue
		}

		c.mu.Lock()
		if c.fsm.state == StateClosed {
			// Close raced with the dial.
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.fsm.dialSucceeded()
		c.conn = conn
		c.mu.Unlock()

		slog.Info("reconnected", "url", c.url)
		go c.readLoop(conn)
		return
	}
}

func (c *Client) pushClosed(err error) {
	select {
	case c.events.Closed <- err:
	default:
	}
}
