package session

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/coderoom-server/internal/identity"
	"github.com/vovakirdan/coderoom-server/internal/proto"
)

// EventKind is one of the inbound capabilities the client reacts to.
type EventKind int

const (
	EventStoreConnectionID EventKind = iota
	EventPeerJoined
	EventRoomFull
	EventPeerLeft
	EventConnected
	EventDisconnected
	EventError
	// EventChannelClosed is synthesized when the transport closes.
	EventChannelClosed
)

func (k EventKind) String() string {
	switch k {
	case EventStoreConnectionID:
		return proto.EventStoreConnectionID
	case EventPeerJoined:
		return proto.EventPeerJoined
	case EventRoomFull:
		return proto.EventRoomFull
	case EventPeerLeft:
		return proto.EventPeerLeft
	case EventConnected:
		return proto.EventConnected
	case EventDisconnected:
		return proto.EventDisconnected
	case EventError:
		return "error"
	case EventChannelClosed:
		return "channel-closed"
	default:
		return "unknown"
	}
}

// Event is a coordinator push decoded for the session client.
type Event struct {
	Kind         EventKind
	ConnectionID string
	Participant  identity.Participant
	Capacity     int
	Err          *proto.Error
	// Peers lists the members already present when this client was admitted.
	Peers        []Peer
}

// DecodeOutbound maps a wire envelope onto an Event.
func DecodeOutbound(out proto.Outbound) (Event, error) {
	switch out.Type {
	case proto.OutboundTypeError:
		if out.Error == nil {
			return Event{Kind: EventError, Err: &proto.Error{Code: "unknown", Msg: "unknown error"}}, nil
		}
		return Event{Kind: EventError, Err: out.Error}, nil
	case proto.OutboundTypeEvent:
	default:
		return Event{}, fmt.Errorf("unknown outbound type %q", out.Type)
	}

	switch out.Event {
	case proto.EventStoreConnectionID:
		var data proto.StoreConnectionIDData
		if err := decodeData(out.Data, &data); err != nil {
			return Event{}, err
		}
		peers := make([]Peer, 0, len(data.Peers))
		for _, p := range data.Peers {
			peers = append(peers, Peer{ConnectionID: p.ConnectionID, Participant: fromWire(p.Participant)})
		}
		return Event{Kind: EventStoreConnectionID, ConnectionID: data.ConnectionID, Peers: peers}, nil
	case proto.EventPeerJoined, proto.EventNewUserJoined:
		return decodePeer(EventPeerJoined, out.Data)
	case proto.EventPeerLeft, proto.EventUserLeft:
		return decodePeer(EventPeerLeft, out.Data)
	case proto.EventRoomFull:
		var data proto.RoomFullData
		if err := decodeData(out.Data, &data); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventRoomFull, Capacity: data.Capacity}, nil
	case proto.EventConnected, proto.EventDisconnected:
		var data proto.PresenceData
		if err := decodeData(out.Data, &data); err != nil {
			return Event{}, err
		}
		kind := EventDisconnected
		if out.Event == proto.EventConnected {
			kind = EventConnected
		}
		return Event{Kind: kind, Participant: identity.Participant{Name: data.Name}}, nil
	default:
		return Event{}, fmt.Errorf("unknown event %q", out.Event)
	}
}

// decodePeer accepts both the wrapped form and a bare participant payload.
func decodePeer(kind EventKind, raw json.RawMessage) (Event, error) {
	var data proto.PeerData
	if err := decodeData(raw, &data); err != nil {
		return Event{}, err
	}
	if data.Participant.Name == "" {
		if err := decodeData(raw, &data.Participant); err != nil {
			return Event{}, err
		}
	}
	return Event{
		Kind:         kind,
		ConnectionID: data.ConnectionID,
		Participant:  fromWire(data.Participant),
	}, nil
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}
	return nil
}

func fromWire(p proto.Participant) identity.Participant {
	return identity.Participant{Name: p.Name, AvatarURL: p.Avatar, RoomID: p.RoomID}
}

func toWire(p identity.Participant) proto.Participant {
	return proto.Participant{Name: p.Name, Avatar: p.AvatarURL, RoomID: p.RoomID}
}
