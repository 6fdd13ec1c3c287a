// Package notice maps session transitions to user-facing notices.
package notice

import (
	"fmt"

	"github.com/vovakirdan/coderoom-server/internal/identity"
)

// Severity is the display style of a notice.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Kind is a session transition that may produce a notice.
type Kind int

const (
	// KindPeerJoined fires when a peer entered the room.
	KindPeerJoined Kind = iota
	// KindPeerLeft fires when a peer departed.
	KindPeerLeft
	// KindConnected is the generic presence notice for an arrival.
	KindConnected
	// KindDisconnected is the generic presence notice for a departure.
	KindDisconnected
)

// RedirectReason tells a redirect destination why the user was sent there.
type RedirectReason string

const (
	RedirectRoomFull RedirectReason = "room_full"
)

// Notice is a message for the UI notification sink.
type Notice struct {
	Message  string
	Severity Severity
}

// Dispatch returns the notice for kind. The bool is false for unknown kinds.
func Dispatch(kind Kind, p identity.Participant) (Notice, bool) {
	switch kind {
	case KindPeerJoined:
		return Notice{Message: fmt.Sprintf("%s joined the room", p.Name), Severity: SeveritySuccess}, true
	case KindPeerLeft:
		return Notice{Message: fmt.Sprintf("%s left the room", p.Name), Severity: SeverityError}, true
	case KindConnected:
		return Notice{Message: fmt.Sprintf("%s is connected", p.Name), Severity: SeveritySuccess}, true
	case KindDisconnected:
		return Notice{Message: fmt.Sprintf("%s is disconnected", p.Name), Severity: SeverityError}, true
	default:
		return Notice{}, false
	}
}

// RedirectNotice is what the redirect destination shows for reason.
func RedirectNotice(reason RedirectReason) (Notice, bool) {
	switch reason {
	case RedirectRoomFull:
		return Notice{Message: "room is full", Severity: SeverityError}, true
	default:
		return Notice{}, false
	}
}
