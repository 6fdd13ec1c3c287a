package core

import (
	"testing"
	"time"

	"github.com/vovakirdan/coderoom-server/internal/identity"
)

// nextEvent returns the next queued event, failing if none arrives in time.
func nextEvent(t *testing.T, c *Client) *Event {
	t.Helper()

	select {
	case ev := <-c.Events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s: no event received", c.ID)
		return nil
	}
}

// mustEvent returns the next event and checks its kind.
func mustEvent(t *testing.T, c *Client, kind EventKind) *Event {
	t.Helper()

	ev := nextEvent(t, c)
	if ev.Kind != kind {
		t.Fatalf("client %s: expected %v, got %v (%+v)", c.ID, kind, ev.Kind, ev)
	}
	return ev
}

func noEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case ev := <-c.Events:
		t.Fatalf("client %s: unexpected event %v (%+v)", c.ID, ev.Kind, ev)
	default:
	}
}

func participant(name string) identity.Participant {
	return identity.Participant{Name: name}
}
