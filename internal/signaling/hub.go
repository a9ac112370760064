package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/Phuc-215/WEBRTC/internal/metrics"
)

// ErrStopped is returned for requests arriving after the hub loop exited.
var ErrStopped = errors.New("signaling: hub stopped")

// Hub owns all shared signaling state: the name registry, the room
// directory and the 1:1 pairing table. A single goroutine (Run) processes
// one inbound envelope at a time, so every mutation below is atomic with
// respect to other connections and no locking is needed.
type Hub struct {
	// conns is every open connection, registered or not.
	conns map[*Client]struct{}

	// byName maps registered display names to their connection. Names are
	// unique; a colliding register evicts the previous session.
	byName map[string]*Client

	// rooms maps room IDs to live rooms. Entries exist only while the
	// room has members.
	rooms map[string]*Room

	pairings *PairingTable

	register   chan *Client
	unregister chan *Client
	inbound    chan *Envelope
	stats      chan chan Stats

	// done is closed when Run exits so pumps blocked on the channels
	// above are released instead of leaking.
	done chan struct{}
}

// Stats is the state snapshot served on the health endpoint.
type Stats struct {
	Connections int         `json:"connections"`
	Clients     int         `json:"clients"`
	Rooms       []RoomStats `json:"rooms"`
}

type RoomStats struct {
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
}

func NewHub() *Hub {
	return &Hub{
		conns:      make(map[*Client]struct{}),
		byName:     make(map[string]*Client),
		rooms:      make(map[string]*Room),
		pairings:   newPairingTable(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Envelope),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
	}
}

// Attach hands a freshly upgraded connection to the hub loop.
func (h *Hub) Attach(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Detach reports a dead connection to the hub loop. Called from the read
// pump, which may outlive the loop during shutdown.
func (h *Hub) Detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Snapshot asks the hub loop for its current state. It respects ctx so a
// health probe cannot hang if the hub is shutting down.
func (h *Hub) Snapshot(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Run is the hub's main processing loop. It exits when ctx is cancelled,
// after tearing down every open connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.conns[c] = struct{}{}
			metrics.ActiveConnections.Inc()
			slog.Info("connection opened", "id", c.ID, "remote", c.Conn.RemoteAddr())

		case c := <-h.unregister:
			// Close notifications can race with an in-flight
			// disconnect; handleDisconnect is idempotent.
			h.handleDisconnect(c)

		case env := <-h.inbound:
			h.handleEnvelope(env)

		case reply := <-h.stats:
			reply <- h.snapshot()

		case <-ctx.Done():
			for c := range h.conns {
				h.handleDisconnect(c)
				if c.Conn != nil {
					c.Conn.Close()
				}
			}
			return
		}
	}
}

// handleEnvelope dispatches one inbound envelope. Every failure mode here
// drops the envelope and keeps the connection open; nothing escalates to
// the transport layer.
func (h *Hub) handleEnvelope(env *Envelope) {
	c := env.client

	if env.Type != KindRegister && c.Name == "" {
		metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonUnregistered).Inc()
		slog.Warn("dropping envelope from unregistered sender", "type", env.Type)
		return
	}

	switch env.Type {
	case KindRegister:
		h.handleRegister(c, env)
	case KindJoinRoom:
		h.handleJoinRoom(c, env)
	case KindLeaveRoom:
		h.leaveCurrentRoom(c)
	case KindOffer, KindAnswer, KindCandidate:
		h.handleForward(c, env)
	case KindEndCall:
		h.handleEndCall(c, env)
	case KindRegistered, KindRoomMembers, KindMemberLeft, KindClientList, KindError:
		// Server-to-client kinds have no business arriving inbound.
		metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonUnknownType).Inc()
		slog.Warn("dropping server-only envelope kind from client", "type", env.Type, "client", c.Name)
	default:
		metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonUnknownType).Inc()
		slog.Warn("dropping envelope of unknown type", "type", env.Type, "client", c.Name)
	}
}

// handleRegister binds a display name to the connection. Last registrant
// wins: a name already held by another connection evicts that session
// before the new registration proceeds.
func (h *Hub) handleRegister(c *Client, env *Envelope) {
	name := strings.TrimSpace(env.Name)
	if name == "" {
		return
	}

	if c.Name != "" {
		c.trySend(errorEnvelope("already registered"))
		return
	}

	if old, ok := h.byName[name]; ok && old != c {
		slog.Warn("name collision, evicting previous session", "name", name, "evicted", old.ID)
		h.handleDisconnect(old)
		if old.Conn != nil {
			old.Conn.Close()
		}
	}

	c.Name = name
	h.byName[name] = c
	metrics.RegisteredClients.Inc()
	slog.Info("client registered", "name", name, "id", c.ID)

	c.trySend(&Envelope{Type: KindRegistered, Name: name, Success: true})
	h.broadcastClientList()
}

// handleJoinRoom moves the client into a room, creating it on first join.
// A client is never a member of two rooms: the previous room is left first,
// with the usual departure broadcasts.
func (h *Hub) handleJoinRoom(c *Client, env *Envelope) {
	roomID := strings.TrimSpace(env.RoomID)
	if roomID == "" {
		c.trySend(errorEnvelope("roomId is required"))
		return
	}

	h.leaveCurrentRoom(c)

	room, ok := h.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		h.rooms[roomID] = room
		metrics.ActiveRooms.Inc()
		slog.Info("room created", "room", roomID)
	}

	room.add(c)
	c.RoomID = roomID
	slog.Info("client joined room", "name", c.Name, "room", roomID)

	h.broadcastToRoom(room, &Envelope{Type: KindRoomMembers, RoomID: roomID, Members: room.names()})
}

// leaveCurrentRoom removes the client from its room, if any. Remaining
// members get a memberLeft notice followed by the updated member list; an
// emptied room is deleted outright.
func (h *Hub) leaveCurrentRoom(c *Client) {
	roomID := c.RoomID
	if roomID == "" {
		return
	}
	c.RoomID = ""

	room, ok := h.rooms[roomID]
	if !ok || !room.remove(c) {
		return
	}

	slog.Info("client left room", "name", c.Name, "room", roomID)

	if room.empty() {
		delete(h.rooms, roomID)
		metrics.ActiveRooms.Dec()
		slog.Info("room deleted", "room", roomID)
		return
	}

	h.broadcastToRoom(room, &Envelope{Type: KindMemberLeft, RoomID: roomID, Name: c.Name})
	h.broadcastToRoom(room, &Envelope{Type: KindRoomMembers, RoomID: roomID, Members: room.names()})
}

// handleForward relays an offer/answer/candidate envelope to its target,
// unmodified. With a roomId the target is resolved within that room; without
// one the lookup is global and an offer claims the target exclusively,
// pre-empting any call either side is already in.
func (h *Hub) handleForward(c *Client, env *Envelope) {
	sender := strings.TrimSpace(env.Sender)
	target := strings.TrimSpace(env.Target)
	if sender == "" || target == "" {
		return
	}

	if sender != c.Name {
		metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonSpoofed).Inc()
		slog.Warn("dropping envelope with spoofed sender",
			"claimed", sender, "registered", c.Name, "type", env.Type)
		return
	}

	var targetClient *Client
	if roomID := strings.TrimSpace(env.RoomID); roomID != "" {
		if room, ok := h.rooms[roomID]; ok {
			targetClient = room.find(target)
		}
	} else {
		if env.Type == KindOffer {
			h.preemptPairings(c.Name, target)
			h.pairings.Install(c.Name, target)
		}
		targetClient = h.byName[target]
	}

	if targetClient == nil || targetClient.gone {
		metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonUnknownTarget).Inc()
		slog.Warn("target not found or not connected", "target", target, "type", env.Type)
		return
	}

	targetClient.trySend(env)
	metrics.EnvelopesForwarded.Inc()
	slog.Debug("forwarded envelope", "type", env.Type, "from", sender, "to", target)
}

// preemptPairings notifies everyone whose existing call is about to be torn
// down by a new offer between a and b. The busy side gets an endCall too so
// its UI resets before the incoming offer arrives.
func (h *Hub) preemptPairings(a, b string) {
	if old, ok := h.pairings.Partner(b); ok && old != a {
		h.notifyEndCall(old)
		h.notifyEndCall(b)
	}
	if old, ok := h.pairings.Partner(a); ok && old != b {
		h.notifyEndCall(old)
	}
}

// handleEndCall tears down the sender's own pairing. Sender spoofing is
// rejected the same way as for negotiation envelopes.
func (h *Hub) handleEndCall(c *Client, env *Envelope) {
	if s := strings.TrimSpace(env.Sender); s != "" && s != c.Name {
		metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonSpoofed).Inc()
		slog.Warn("dropping endCall with spoofed sender", "claimed", s, "registered", c.Name)
		return
	}
	h.endPairing(c.Name)
}

// endPairing clears the pairing name is part of and notifies both ends.
// The notice also goes to name's own connection for UI-state sync.
func (h *Hub) endPairing(name string) {
	partner, ok := h.pairings.End(name)
	if !ok {
		return
	}
	slog.Info("call ended", "name", name, "partner", partner)
	h.notifyEndCall(partner)
	h.notifyEndCall(name)
}

func (h *Hub) notifyEndCall(name string) {
	if cl, ok := h.byName[name]; ok {
		cl.trySend(&Envelope{Type: KindEndCall})
	}
}

// handleDisconnect releases everything a session holds: room membership,
// pairing, registered name, outbound queue. Idempotent, because eviction
// and the read pump's unregister can both reach it for the same client.
func (h *Hub) handleDisconnect(c *Client) {
	if c.gone {
		return
	}
	c.gone = true
	delete(h.conns, c)
	metrics.ActiveConnections.Dec()

	h.leaveCurrentRoom(c)

	if c.Name != "" {
		h.endPairing(c.Name)
		delete(h.byName, c.Name)
		metrics.RegisteredClients.Dec()
		slog.Info("client disconnected", "name", c.Name)
		h.broadcastClientList()
	}

	close(c.Send)
}

// broadcastClientList pushes the sorted list of registered names to every
// registered client (flat-variant presence listing).
func (h *Hub) broadcastClientList() {
	names := make([]string, 0, len(h.byName))
	for name := range h.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, cl := range h.byName {
		cl.trySend(&Envelope{Type: KindClientList, Clients: names})
	}
}

// broadcastToRoom sends the envelope to every current member, in join
// order. Delivery is best effort per member.
func (h *Hub) broadcastToRoom(room *Room, env *Envelope) {
	for _, m := range room.members {
		m.trySend(env)
	}
}

func (h *Hub) snapshot() Stats {
	s := Stats{
		Connections: len(h.conns),
		Clients:     len(h.byName),
		Rooms:       make([]RoomStats, 0, len(h.rooms)),
	}
	for id, room := range h.rooms {
		s.Rooms = append(s.Rooms, RoomStats{RoomID: id, Members: room.names()})
	}
	sort.Slice(s.Rooms, func(i, j int) bool { return s.Rooms[i].RoomID < s.Rooms[j].RoomID })
	return s
}
