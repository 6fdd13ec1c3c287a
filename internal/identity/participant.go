package identity

import "errors"

// ErrMissingRoomID is returned when the route carries no room segment.
var ErrMissingRoomID = errors.New("missing room id")

// ErrEmptyName is returned when no display name could be derived.
var ErrEmptyName = errors.New("empty display name")

// Participant is one user's identity for the duration of a session.
type Participant struct {
	Name      string
	AvatarURL string
	RoomID    string
}

// Profile is an authenticated user as seen by the resolver.
type Profile struct {
	Name      string
	AvatarURL string
}

// Context is the ambient identity passed in explicitly at session start.
// Profile wins over GuestKey when both are set.
type Context struct {
	Profile  *Profile
	GuestKey string
}
