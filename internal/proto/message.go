package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoinRoom  = "join-room"
	InboundTypeLeaveRoom = "leave-room"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventStoreConnectionID = "store-connection-id"
	EventPeerJoined        = "peer-joined"
	EventRoomFull          = "room-full"
	EventPeerLeft          = "peer-left"
	EventConnected         = "connected"
	EventDisconnected      = "disconnected"

	// Legacy names some clients still emit for the peer events.
	EventNewUserJoined = "new-user-joined"
	EventUserLeft      = "user-left"
)

// Participant is the wire form of a room participant.
type Participant struct {
	Name   string `json:"name" validate:"required,max=64"`
	Avatar string `json:"avatar,omitempty" validate:"omitempty,url"`
	RoomID string `json:"roomId,omitempty"`
}

// JoinRoomData requests admission to a room.
type JoinRoomData struct {
	Participant Participant `json:"participant"`
	RoomID      string      `json:"roomId" validate:"required,max=128"`
	Token       string      `json:"token,omitempty"`
	Protocol    int         `json:"protocol,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// StoreConnectionIDData hands the joiner its connection id and the
// members already in the room, in join order.
type StoreConnectionIDData struct {
	ConnectionID string     `json:"connectionId"`
	RoomID       string     `json:"roomId"`
	Peers        []PeerData `json:"peers,omitempty"`
}

// PeerData describes a member entering or leaving the room.
type PeerData struct {
	ConnectionID string      `json:"connectionId"`
	Participant  Participant `json:"participant"`
}

// RoomFullData explains an admission rejection.
type RoomFullData struct {
	RoomID   string `json:"roomId"`
	Capacity int    `json:"capacity"`
}

// PresenceData is the generic connected/disconnected notice.
type PresenceData struct {
	Name        string `json:"name"`
	IsConnected bool   `json:"isConnected"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewEvent builds an event envelope with data marshaled in place.
func NewEvent(name string, data any) (Outbound, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Outbound{}, err
	}
	return Outbound{Type: OutboundTypeEvent, Event: name, Data: raw}, nil
}

// NewInbound builds a client envelope with data marshaled in place.
func NewInbound(typ string, data any) (Inbound, error) {
	if data == nil {
		return Inbound{Type: typ}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Inbound{}, err
	}
	return Inbound{Type: typ, Data: raw}, nil
}
