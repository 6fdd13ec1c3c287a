package core

import "github.com/vovakirdan/coderoom-server/internal/identity"

// EventKind is a notification the coordinator pushes to a connection.
type EventKind int

const (
	// EventStoreConnectionID hands the joiner its assigned connection id
	// together with the members already present.
	EventStoreConnectionID EventKind = iota
	// EventPeerJoined announces a member that entered the room.
	EventPeerJoined
	// EventRoomFull rejects an admission because the room is at capacity.
	EventRoomFull
	// EventPeerLeft announces a member that departed.
	EventPeerLeft
	// EventConnected is the presence-only arrival notice.
	EventConnected
	// EventDisconnected is the presence-only departure notice.
	EventDisconnected
	// EventError notifies a connection about a rejected request.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStoreConnectionID:
		return "store-connection-id"
	case EventPeerJoined:
		return "peer-joined"
	case EventRoomFull:
		return "room-full"
	case EventPeerLeft:
		return "peer-left"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in a room.
type Event struct {
	Kind         EventKind
	Room         string
	ConnectionID string
	Participant  identity.Participant
	Capacity     int          // For EventRoomFull
	Error        *CoreError   // For EventError
	Peers        []MemberInfo // For EventStoreConnectionID, in join order

}
