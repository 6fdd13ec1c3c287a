package identity

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const roomSegment = "room"

// RoomIDFromPath extracts the room id from a route such as "/room/abc".
// A bare single segment ("abc") is accepted as the id itself.
func RoomIDFromPath(path string) (string, error) {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	switch {
	case len(parts) == 1 && parts[0] != roomSegment:
		return parts[0], nil
	case len(parts) >= 2:
		for i := 0; i < len(parts)-1; i++ {
			if parts[i] == roomSegment {
				return parts[i+1], nil
			}
		}
	}
	return "", ErrMissingRoomID
}

// GuestBook hands out guest names that stay stable per key.
type GuestBook struct {
	mu    sync.Mutex
	names map[string]string
}

// NewGuestBook creates an empty guest book.
func NewGuestBook() *GuestBook {
	return &GuestBook{names: make(map[string]string)}
}

// Name returns the guest name for key, generating it on first use.
func (g *GuestBook) Name(key string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name, ok := g.names[key]; ok {
		return name
	}
	name := "Guest-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	g.names[key] = name
	return name
}

// Resolver derives the local participant from routing and identity context.
type Resolver struct {
	guests *GuestBook
}

// NewResolver builds a resolver backed by the given guest book.
// A nil book gets a private one.
func NewResolver(guests *GuestBook) *Resolver {
	if guests == nil {
		guests = NewGuestBook()
	}
	return &Resolver{guests: guests}
}

// Resolve returns the participant for path under the given identity context.
func (r *Resolver) Resolve(path string, ctx Context) (Participant, error) {
	roomID, err := RoomIDFromPath(path)
	if err != nil {
		return Participant{}, err
	}

	if ctx.Profile != nil {
		name := strings.TrimSpace(ctx.Profile.Name)
		if name == "" {
			return Participant{}, ErrEmptyName
		}
		return Participant{Name: name, AvatarURL: ctx.Profile.AvatarURL, RoomID: roomID}, nil
	}

	return Participant{Name: r.guests.Name(ctx.GuestKey), RoomID: roomID}, nil
}
