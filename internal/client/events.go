package client

import (
	"log/slog"

	"github.com/Phuc-215/WEBRTC/internal/signaling"
)

// MemberUpdate is a roomMembers broadcast.
type MemberUpdate struct {
	RoomID  string
	Members []string
}

// MemberLeft is a memberLeft broadcast.
type MemberLeft struct {
	RoomID string
	Name   string
}

// Events routes inbound envelopes to one channel per topic. The set is
// fixed: the presentation layer subscribes to the topics it cares about,
// there is no mutable handler table. Envelopes with no topic are logged
// and discarded.
type Events struct {
	Registered  chan string
	RoomMembers chan MemberUpdate
	MemberLeft  chan MemberLeft
	Signal      chan *signaling.Envelope
	EndCall     chan struct{}
	ClientList  chan []string
	ServerError chan string

	// Closed fires once when the transport gives up: nil after an
	// explicit Close, an error after exhausting reconnect attempts.
	Closed chan error
}

func newEvents() *Events {
	return &Events{
		Registered:  make(chan string, 1),
		RoomMembers: make(chan MemberUpdate, 4),
		MemberLeft:  make(chan MemberLeft, 4),
		Signal:      make(chan *signaling.Envelope, 32),
		EndCall:     make(chan struct{}, 1),
		ClientList:  make(chan []string, 4),
		ServerError: make(chan string, 1),
		Closed:      make(chan error, 1),
	}
}

// dispatch routes one envelope to its topic channel. Delivery is best
// effort, like the server's outbound queue: a subscriber that stopped
// draining a topic loses events on that topic instead of stalling the read
// loop and every other topic with it.
func (e *Events) dispatch(env *signaling.Envelope) {
	switch env.Type {
	case signaling.KindRegistered:
		push(e.Registered, env.Name, env.Type)
	case signaling.KindRoomMembers:
		push(e.RoomMembers, MemberUpdate{RoomID: env.RoomID, Members: env.Members}, env.Type)
	case signaling.KindMemberLeft:
		push(e.MemberLeft, MemberLeft{RoomID: env.RoomID, Name: env.Name}, env.Type)
	case signaling.KindOffer, signaling.KindAnswer, signaling.KindCandidate:
		push(e.Signal, env, env.Type)
	case signaling.KindEndCall:
		push(e.EndCall, struct{}{}, env.Type)
	case signaling.KindClientList:
		push(e.ClientList, env.Clients, env.Type)
	case signaling.KindError:
		push(e.ServerError, env.Message, env.Type)
	default:
		slog.Debug("no handler for envelope kind, discarding", "type", env.Type)
	}
}

func push[T any](ch chan T, v T, kind signaling.Kind) {
	select {
	case ch <- v:
	default:
		slog.Warn("topic channel full, dropping event", "type", kind)
	}
}
