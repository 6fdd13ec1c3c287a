package core

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/identity"
)

// DefaultCapacity is the observed one-to-one pairing size.
const DefaultCapacity = 2

// Options configures a Coordinator.
type Options struct {
	// Capacity applies to every room except the lobby. Zero means unbounded.
	Capacity int
	// LobbyRoom, when set, names a presence-only room with no capacity.
	LobbyRoom string
	// EventBuffer is the per-connection event queue size.
	EventBuffer int
	Logger      *zerolog.Logger
}

// Admission is the result of a successful join.
type Admission struct {
	ConnectionID string
	RoomID       string
	// Peers are the members that were already present, in join order.
	Peers []MemberInfo
}

// Stats summarizes the registry.
type Stats struct {
	Connections int
	Rooms       int
	Members     int
}

// Coordinator is the authoritative room membership registry.
// Lock order is c.mu before Room.mu; broadcasts run under Room.mu only.
type Coordinator struct {
	opts Options
	log  *zerolog.Logger

	mu          sync.Mutex
	rooms       map[string]*Room
	memberships map[*Client]*Room
	clients     map[*Client]struct{}
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Coordinator{
		opts:        opts,
		log:         logger,
		rooms:       make(map[string]*Room),
		memberships: make(map[*Client]*Room),
		clients:     make(map[*Client]struct{}),
	}
}

func (c *Coordinator) policyFor(roomID string) Policy {
	if c.opts.LobbyRoom != "" && roomID == c.opts.LobbyRoom {
		return Policy{Presence: true}
	}
	return Policy{Capacity: c.opts.Capacity}
}

// Connect registers a new transport connection.
func (c *Coordinator) Connect() *Client {
	client := NewClient(uuid.NewString(), c.opts.EventBuffer)

	c.mu.Lock()
	c.clients[client] = struct{}{}
	c.mu.Unlock()

	c.log.Debug().Str("client_id", client.ID).Msg("client connected")
	return client
}

// Disconnect releases everything the connection holds. Safe to call twice.
func (c *Coordinator) Disconnect(client *Client) {
	c.Leave(client)

	c.mu.Lock()
	delete(c.clients, client)
	c.mu.Unlock()

	c.log.Debug().Str("client_id", client.ID).Msg("client disconnected")
}

// Admit runs the admission decision for client into roomID.
// Rejections are delivered to the requesting connection only.
func (c *Coordinator) Admit(client *Client, p identity.Participant, roomID string) (Admission, error) {
	if roomID == "" || strings.TrimSpace(p.Name) == "" {
		client.deliver(&Event{Kind: EventError, Room: roomID, Error: coreError(ErrCodeBadRequest, "participant name and room are required")})
		return Admission{}, ErrBadRequest
	}
	p.RoomID = roomID

	c.mu.Lock()
	if _, joined := c.memberships[client]; joined {
		c.mu.Unlock()
		c.log.Warn().Str("client_id", client.ID).Str("room_id", roomID).Msg("duplicate join rejected")
		client.deliver(&Event{Kind: EventError, Room: roomID, Error: coreError(ErrCodeAlreadyJoined, "connection already joined a room")})
		return Admission{}, ErrAlreadyJoined
	}

	room, ok := c.rooms[roomID]
	if !ok {
		room = NewRoom(roomID, c.policyFor(roomID))
		c.rooms[roomID] = room
	}

	room.mu.Lock()
	if room.Policy.Full(len(room.members)) {
		room.mu.Unlock()
		c.mu.Unlock()
		c.log.Info().Str("client_id", client.ID).Str("room_id", roomID).Int("capacity", room.Policy.Capacity).Msg("room full")
		client.deliver(&Event{Kind: EventRoomFull, Room: roomID, Capacity: room.Policy.Capacity})
		return Admission{}, ErrRoomFull
	}

	peers := room.info().Members
	joined := &member{client: client, connectionID: uuid.NewString(), participant: p}
	room.add(joined)
	c.memberships[client] = room
	c.mu.Unlock()

	// Existing members ride on the welcome event: one queue slot per admission.
	welcome := &Event{Kind: EventStoreConnectionID, Room: roomID, ConnectionID: joined.connectionID}
	announce := &Event{Kind: EventPeerJoined, Room: roomID, ConnectionID: joined.connectionID, Participant: p}
	if room.Policy.Presence {
		announce.Kind = EventConnected
	} else {
		welcome.Peers = peers
	}

	dropped := room.broadcast(announce, client)
	welcomed := client.deliver(welcome)
	if !welcomed {
		dropped = append(dropped, client)
	}
	room.mu.Unlock()

	c.log.Info().
		Str("client_id", client.ID).
		Str("room_id", roomID).
		Str("connection_id", joined.connectionID).
		Str("name", p.Name).
		Int("members", len(peers)+1).
		Msg("participant admitted")

	c.evict(dropped)
	if !welcomed {
		return Admission{}, ErrDropped
	}

	return Admission{ConnectionID: joined.connectionID, RoomID: roomID, Peers: peers}, nil
}

// Leave removes client from its room, disposing the room once empty.
// Leaving without a membership is a no-op; the return reports whether
// anything was released.
func (c *Coordinator) Leave(client *Client) bool {
	c.mu.Lock()
	room, ok := c.memberships[client]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.memberships, client)

	room.mu.Lock()
	left, _ := room.remove(client)
	empty := room.Empty()
	if empty && c.rooms[room.ID] == room {
		delete(c.rooms, room.ID)
	}
	c.mu.Unlock()

	var dropped []*Client
	if left != nil && !empty {
		ev := &Event{Kind: EventPeerLeft, Room: room.ID, ConnectionID: left.connectionID, Participant: left.participant}
		if room.Policy.Presence {
			ev.Kind = EventDisconnected
		}
		dropped = room.broadcast(ev, nil)
	}
	room.mu.Unlock()

	logEv := c.log.Info().Str("client_id", client.ID).Str("room_id", room.ID)
	if left != nil {
		logEv = logEv.Str("connection_id", left.connectionID)
	}
	logEv.Bool("disposed", empty).Msg("participant left")

	c.evict(dropped)
	return true
}

// evict releases the slots of clients that could not keep up.
func (c *Coordinator) evict(clients []*Client) {
	for _, client := range clients {
		c.log.Warn().Str("client_id", client.ID).Msg("slow consumer evicted")
		c.Leave(client)
	}
}

// Room returns a copy of the room state, if the room is active.
func (c *Coordinator) Room(id string) (RoomInfo, bool) {
	c.mu.Lock()
	room, ok := c.rooms[id]
	if !ok {
		c.mu.Unlock()
		return RoomInfo{}, false
	}
	room.mu.Lock()
	c.mu.Unlock()
	defer room.mu.Unlock()

	return room.info(), true
}

// Stats returns registry counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Connections: len(c.clients),
		Rooms:       len(c.rooms),
		Members:     len(c.memberships),
	}
}
