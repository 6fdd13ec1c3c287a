package core

import "sync"

// DefaultEventBuffer is the per-connection queue size used when none is given.
const DefaultEventBuffer = 32

// Client is one transport connection as seen by the coordinator.
// Events is never closed by the coordinator; watch Dropped instead.
type Client struct {
	ID     string
	Events chan *Event

	dropOnce sync.Once
	dropped  chan struct{}
}

// NewClient constructs a client with an event queue of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Client{
		ID:      id,
		Events:  make(chan *Event, buffer),
		dropped: make(chan struct{}),
	}
}

// Dropped is closed once the client fell behind and lost an event.
// The transport must close the connection when it fires.
func (c *Client) Dropped() <-chan struct{} {
	return c.dropped
}

// deliver enqueues ev without blocking. A full queue drops the client
// for good so it never observes a gap in the event order.
func (c *Client) deliver(ev *Event) bool {
	select {
	case <-c.dropped:
		return false
	default:
	}

	select {
	case c.Events <- ev:
		return true
	default:
		c.dropOnce.Do(func() { close(c.dropped) })
		return false
	}
}
