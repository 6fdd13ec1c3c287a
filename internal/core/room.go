package core

import (
	"sync"

	"github.com/samber/lo"

	"github.com/vovakirdan/coderoom-server/internal/identity"
)

// Policy controls admission and the notices a room emits.
type Policy struct {
	// Capacity bounds the member count; zero means unbounded.
	Capacity int
	// Presence rooms announce connected/disconnected instead of peer events.
	Presence bool
}

// Full reports whether a room with n members can admit nobody else.
func (p Policy) Full(n int) bool {
	return p.Capacity > 0 && n >= p.Capacity
}

type member struct {
	client       *Client
	connectionID string
	participant  identity.Participant
}

// MemberInfo is a read-only view of one room member.
type MemberInfo struct {
	ConnectionID string
	Participant  identity.Participant
}

// RoomInfo is a read-only copy of a room's state.
type RoomInfo struct {
	ID       string
	Capacity int
	Presence bool
	Members  []MemberInfo
}

// Room groups the admitted members of one collaboration session.
// Members are kept in join order.
type Room struct {
	ID     string
	Policy Policy

	mu      sync.Mutex
	members []*member
}

// NewRoom constructs a room with no members.
func NewRoom(id string, policy Policy) *Room {
	return &Room{ID: id, Policy: policy}
}

func (r *Room) add(m *member) {
	r.members = append(r.members, m)
}

func (r *Room) remove(c *Client) (*member, bool) {
	for i, m := range r.members {
		if m.client == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// broadcast sends ev to every member except the given client and returns
// the members that could not keep up.
func (r *Room) broadcast(ev *Event, except *Client) []*Client {
	var dropped []*Client
	for _, m := range r.members {
		if m.client == except {
			continue
		}
		if !m.client.deliver(ev) {
			dropped = append(dropped, m.client)
		}
	}
	return dropped
}

func (r *Room) info() RoomInfo {
	return RoomInfo{
		ID:       r.ID,
		Capacity: r.Policy.Capacity,
		Presence: r.Policy.Presence,
		Members:  lo.Map(r.members, func(m *member, _ int) MemberInfo { return m.info() }),
	}
}

func (m *member) info() MemberInfo {
	return MemberInfo{ConnectionID: m.connectionID, Participant: m.participant}
}

// Empty returns true if no members are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}
