package http

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/identity"
	"github.com/vovakirdan/coderoom-server/internal/proto"
)

func participantToWire(p identity.Participant) proto.Participant {
	return proto.Participant{Name: p.Name, Avatar: p.AvatarURL, RoomID: p.RoomID}
}

func participantFromWire(p proto.Participant, roomID string) identity.Participant {
	return identity.Participant{Name: p.Name, AvatarURL: p.Avatar, RoomID: roomID}
}

func outboundFromEvent(event *core.Event) (proto.Outbound, error) {
	switch event.Kind {
	case core.EventStoreConnectionID:
		return proto.NewEvent(proto.EventStoreConnectionID, proto.StoreConnectionIDData{
			ConnectionID: event.ConnectionID,
			RoomID:       event.Room,
			Peers: lo.Map(event.Peers, func(m core.MemberInfo, _ int) proto.PeerData {
				return proto.PeerData{ConnectionID: m.ConnectionID, Participant: participantToWire(m.Participant)}
			}),
		})
	case core.EventPeerJoined:
		return proto.NewEvent(proto.EventPeerJoined, proto.PeerData{
			ConnectionID: event.ConnectionID,
			Participant:  participantToWire(event.Participant),
		})
	case core.EventPeerLeft:
		return proto.NewEvent(proto.EventPeerLeft, proto.PeerData{
			ConnectionID: event.ConnectionID,
			Participant:  participantToWire(event.Participant),
		})
	case core.EventRoomFull:
		return proto.NewEvent(proto.EventRoomFull, proto.RoomFullData{
			RoomID:   event.Room,
			Capacity: event.Capacity,
		})
	case core.EventConnected:
		return proto.NewEvent(proto.EventConnected, proto.PresenceData{Name: event.Participant.Name, IsConnected: true})
	case core.EventDisconnected:
		return proto.NewEvent(proto.EventDisconnected, proto.PresenceData{Name: event.Participant.Name, IsConnected: false})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}, nil
		}
		return errorOutbound(event.Error.Code, event.Error.Message), nil
	default:
		return proto.Outbound{}, fmt.Errorf("unmapped event kind %v", event.Kind)
	}
}

func errorOutbound(code, msg string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: code, Msg: msg}}
}
