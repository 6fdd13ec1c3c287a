// Package session implements the per-participant view of a room.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/identity"
	"github.com/vovakirdan/coderoom-server/internal/notice"
	"github.com/vovakirdan/coderoom-server/internal/proto"
)

// ErrAlreadyMounted is returned by a second Mount on the same client.
var ErrAlreadyMounted = errors.New("session already mounted")

// State is the session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateJoining
	StateActive
	StateFull
	StateLeft
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateFull:
		return "full"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Transport is the persistent ordered channel to the coordinator.
// Events must be closed when the underlying connection ends.
type Transport interface {
	Send(ctx context.Context, msg proto.Inbound) error
	Events() <-chan Event
	Close() error
}

// Sink receives user-facing notices.
type Sink interface {
	Notify(n notice.Notice)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n notice.Notice)

func (f SinkFunc) Notify(n notice.Notice) { f(n) }

// Navigator performs the navigation-away side effect.
type Navigator interface {
	Redirect(reason notice.RedirectReason)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(reason notice.RedirectReason)

func (f NavigatorFunc) Redirect(reason notice.RedirectReason) { f(reason) }

// Peer is another member as seen by this client.
type Peer struct {
	ConnectionID string
	Participant  identity.Participant
}

// Snapshot is the client-local derived view of the session.
type Snapshot struct {
	State            State
	Self             identity.Participant
	SelfConnectionID string
	// Peer is the earliest present peer, nil when alone.
	Peer      *identity.Participant
	Peers     []Peer
	RoomFull  bool
	LastError *proto.Error
}

// Options configures a Client.
type Options struct {
	Sink      Sink
	Navigator Navigator
	Logger    *zerolog.Logger
	// Token is forwarded with the join request for authenticated servers.
	Token string
}

// Client is the per-participant session state machine. A Client is
// mounted once; a fresh mount needs a fresh Client.
type Client struct {
	transport Transport
	sink      Sink
	nav       Navigator
	log       *zerolog.Logger
	token     string

	mu        sync.Mutex
	snap      Snapshot
	mounted   bool
	observers []func(Snapshot)
	done      chan struct{}
}

// New creates an idle client for self over transport.
func New(self identity.Participant, transport Transport, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sink := opts.Sink
	if sink == nil {
		sink = SinkFunc(func(notice.Notice) {})
	}
	nav := opts.Navigator
	if nav == nil {
		nav = NavigatorFunc(func(notice.RedirectReason) {})
	}
	return &Client{
		transport: transport,
		sink:      sink,
		nav:       nav,
		log:       logger,
		token:     opts.Token,
		snap:      Snapshot{State: StateIdle, Self: self},
		done:      make(chan struct{}),
	}
}

// OnChange registers an observer called after every applied event,
// in receipt order, from the event goroutine.
func (c *Client) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Snapshot returns a copy of the current session view.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.clone()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.State
}

// Done is closed once the event loop has stopped.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Mount sends the join request exactly once and starts the ordered event
// handler. The returned unmount releases the listener and closes the
// transport; it is safe to call more than once.
func (c *Client) Mount(ctx context.Context) (func(), error) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil, ErrAlreadyMounted
	}
	self := c.snap.Self
	if self.RoomID == "" {
		c.mu.Unlock()
		return nil, identity.ErrMissingRoomID
	}
	c.mounted = true
	c.snap.State = StateJoining
	c.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	go c.run(loopCtx)

	var once sync.Once
	unmount := func() {
		once.Do(func() {
			cancel()
			if err := c.transport.Close(); err != nil {
				c.log.Debug().Err(err).Msg("close transport")
			}
			<-c.done
		})
	}

	join, err := proto.NewInbound(proto.InboundTypeJoinRoom, proto.JoinRoomData{
		Participant: toWire(self),
		RoomID:      self.RoomID,
		Token:       c.token,
		Protocol:    proto.ProtocolVersion,
	})
	if err == nil {
		err = c.transport.Send(ctx, join)
	}
	if err != nil {
		unmount()
		return nil, fmt.Errorf("send join: %w", err)
	}

	c.log.Debug().Str("room_id", self.RoomID).Str("name", self.Name).Msg("join requested")
	return unmount, nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	events := c.transport.Events()
	for {
		select {
		case <-ctx.Done():
			c.Apply(Event{Kind: EventChannelClosed})
			return
		case ev, ok := <-events:
			if !ok {
				c.Apply(Event{Kind: EventChannelClosed})
				return
			}
			c.Apply(ev)
		}
	}
}

// Apply feeds one event through the state machine. Events must be
// applied in receipt order; the mount loop is the only caller in
// production.
func (c *Client) Apply(ev Event) {
	c.mu.Lock()
	var (
		notices  []notice.Notice
		redirect notice.RedirectReason
		changed  = true
	)

	s := &c.snap
	switch {
	case s.State == StateLeft:
		changed = false
	case s.State == StateFull:
		if ev.Kind == EventChannelClosed {
			s.State = StateLeft
		} else {
			changed = false
		}
	default:
		changed = c.handle(ev, &notices, &redirect)
	}

	var (
		observers []func(Snapshot)
		snap      Snapshot
	)
	if changed {
		observers = slices.Clone(c.observers)
		snap = s.clone()
	}
	c.mu.Unlock()

	for _, n := range notices {
		c.sink.Notify(n)
	}
	if redirect != "" {
		c.nav.Redirect(redirect)
	}
	for _, fn := range observers {
		fn(snap)
	}
}

// handle runs with c.mu held and reports whether the snapshot changed.
func (c *Client) handle(ev Event, notices *[]notice.Notice, redirect *notice.RedirectReason) bool {
	s := &c.snap
	switch ev.Kind {
	case EventStoreConnectionID:
		if s.State != StateJoining {
			c.log.Warn().Str("state", s.State.String()).Msg("unexpected connection id ignored")
			return false
		}
		s.SelfConnectionID = ev.ConnectionID
		for _, peer := range ev.Peers {
			s.Peers = append(s.Peers, peer)
			s.State = StateActive
			c.dispatch(notice.KindPeerJoined, peer.Participant, notices)
		}
	case EventPeerJoined:
		if ev.ConnectionID != "" && ev.ConnectionID == s.SelfConnectionID {
			return false
		}
		s.Peers = append(s.Peers, Peer{ConnectionID: ev.ConnectionID, Participant: ev.Participant})
		s.State = StateActive
		c.dispatch(notice.KindPeerJoined, ev.Participant, notices)
	case EventPeerLeft:
		idx := slices.IndexFunc(s.Peers, func(p Peer) bool {
			if ev.ConnectionID != "" {
				return p.ConnectionID == ev.ConnectionID
			}
			return p.Participant.Name == ev.Participant.Name
		})
		if idx < 0 {
			c.log.Debug().Str("connection_id", ev.ConnectionID).Msg("peer-left for unknown peer")
			return false
		}
		s.Peers = slices.Delete(s.Peers, idx, idx+1)
		c.dispatch(notice.KindPeerLeft, ev.Participant, notices)
	case EventRoomFull:
		if s.State != StateJoining {
			c.log.Warn().Str("state", s.State.String()).Msg("room-full outside joining ignored")
			return false
		}
		s.State = StateFull
		s.RoomFull = true
		*redirect = notice.RedirectRoomFull
	case EventConnected:
		c.dispatch(notice.KindConnected, ev.Participant, notices)
		return false
	case EventDisconnected:
		c.dispatch(notice.KindDisconnected, ev.Participant, notices)
		return false
	case EventError:
		s.LastError = ev.Err
		if ev.Err != nil {
			c.log.Warn().Str("code", ev.Err.Code).Str("msg", ev.Err.Msg).Msg("coordinator rejected request")
		}
	case EventChannelClosed:
		s.State = StateLeft
	default:
		return false
	}
	s.syncPeer()
	return true
}

func (c *Client) dispatch(kind notice.Kind, p identity.Participant, notices *[]notice.Notice) {
	if n, ok := notice.Dispatch(kind, p); ok {
		*notices = append(*notices, n)
	}
}

func (s *Snapshot) syncPeer() {
	if len(s.Peers) == 0 {
		s.Peer = nil
		return
	}
	p := s.Peers[0].Participant
	s.Peer = &p
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Peers = slices.Clone(s.Peers)
	if s.Peer != nil {
		p := *s.Peer
		out.Peer = &p
	}
	if s.LastError != nil {
		e := *s.LastError
		out.LastError = &e
	}
	return out
}
