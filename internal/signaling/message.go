package signaling

import "encoding/json"

// Kind identifies a signaling envelope on the wire. The set is closed:
// the hub dispatches with an exhaustive switch, unknown kinds are dropped.
type Kind string

const (
	// Client to server.
	KindRegister  Kind = "register"
	KindJoinRoom  Kind = "joinRoom"
	KindLeaveRoom Kind = "leaveRoom"
	KindOffer     Kind = "offer"
	KindAnswer    Kind = "answer"
	KindCandidate Kind = "candidate"
	KindEndCall   Kind = "endCall"

	// Server to client.
	KindRegistered  Kind = "registered"
	KindRoomMembers Kind = "roomMembers"
	KindMemberLeft  Kind = "memberLeft"
	KindClientList  Kind = "clientList"
	KindError       Kind = "error"
)

// Envelope is the JSON wire unit exchanged over the websocket.
// Offer, Answer and Candidate carry WebRTC negotiation data produced and
// consumed by the browser stack; the server forwards them without looking
// inside.
type Envelope struct {
	Type    Kind     `json:"type"`
	Name    string   `json:"name,omitempty"`
	Success bool     `json:"success,omitempty"`
	RoomID  string   `json:"roomId,omitempty"`
	Sender  string   `json:"sender,omitempty"`
	Target  string   `json:"target,omitempty"`
	Members []string `json:"members,omitempty"`
	Clients []string `json:"clients,omitempty"`
	Message string   `json:"message,omitempty"`

	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	// client is the connection the envelope arrived on. Set by the read
	// pump, used by the hub, never serialized.
	client *Client
}

// errorEnvelope builds the error reply sent back to a single client.
func errorEnvelope(message string) *Envelope {
	return &Envelope{Type: KindError, Message: message}
}
