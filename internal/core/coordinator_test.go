package core

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCoordinator() *Coordinator {
	return NewCoordinator(Options{Capacity: DefaultCapacity, LobbyRoom: "lobby"})
}

func TestAdmitPairAndRejectThird(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	a, b, c := coord.Connect(), coord.Connect(), coord.Connect()

	admA, err := coord.Admit(a, participant("alice"), "r")
	req.NoError(err)
	req.Empty(admA.Peers)
	ev := mustEvent(t, a, EventStoreConnectionID)
	req.Equal(admA.ConnectionID, ev.ConnectionID)
	req.Empty(ev.Peers)
	noEvent(t, a)

	admB, err := coord.Admit(b, participant("bob"), "r")
	req.NoError(err)
	req.NotEqual(admA.ConnectionID, admB.ConnectionID)

	joined := mustEvent(t, a, EventPeerJoined)
	req.Equal("bob", joined.Participant.Name)
	req.Equal("r", joined.Participant.RoomID)
	req.Equal(admB.ConnectionID, joined.ConnectionID)

	welcome := mustEvent(t, b, EventStoreConnectionID)
	req.Equal(admB.ConnectionID, welcome.ConnectionID)
	req.Len(welcome.Peers, 1)
	req.Equal("alice", welcome.Peers[0].Participant.Name)
	req.Equal(admA.ConnectionID, welcome.Peers[0].ConnectionID)
	noEvent(t, b)

	_, err = coord.Admit(c, participant("carol"), "r")
	req.ErrorIs(err, ErrRoomFull)
	full := mustEvent(t, c, EventRoomFull)
	req.Equal(DefaultCapacity, full.Capacity)
	noEvent(t, a)
	noEvent(t, b)

	info, ok := coord.Room("r")
	req.True(ok)
	req.Len(info.Members, 2)
	req.Equal("alice", info.Members[0].Participant.Name)
	req.Equal("bob", info.Members[1].Participant.Name)
}

func TestLeaveNotifiesRemainingAndFreesSlot(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	a, b, d := coord.Connect(), coord.Connect(), coord.Connect()
	admA, err := coord.Admit(a, participant("alice"), "r")
	req.NoError(err)
	_, err = coord.Admit(b, participant("bob"), "r")
	req.NoError(err)
	drain(b)

	coord.Disconnect(a)

	left := mustEvent(t, b, EventPeerLeft)
	req.Equal("alice", left.Participant.Name)
	req.Equal(admA.ConnectionID, left.ConnectionID)

	info, ok := coord.Room("r")
	req.True(ok)
	req.Len(info.Members, 1)

	_, err = coord.Admit(d, participant("dave"), "r")
	req.NoError(err)
	welcome := mustEvent(t, d, EventStoreConnectionID)
	req.Len(welcome.Peers, 1)
	req.Equal("bob", welcome.Peers[0].Participant.Name)
	req.Equal("dave", mustEvent(t, b, EventPeerJoined).Participant.Name)
}

func TestJoinDisconnectRejoinReusesSlot(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	for i := 0; i < 10; i++ {
		a, b := coord.Connect(), coord.Connect()
		_, err := coord.Admit(a, participant("alice"), "r")
		req.NoError(err)
		_, err = coord.Admit(b, participant("bob"), "r")
		req.NoError(err)
		coord.Disconnect(a)
		coord.Disconnect(b)
	}

	_, ok := coord.Room("r")
	req.False(ok, "empty room must be disposed")
	req.Equal(Stats{}, coord.Stats())
}

func TestDuplicateJoinRejected(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	a := coord.Connect()
	_, err := coord.Admit(a, participant("alice"), "r")
	req.NoError(err)
	mustEvent(t, a, EventStoreConnectionID)

	_, err = coord.Admit(a, participant("alice"), "r")
	req.ErrorIs(err, ErrAlreadyJoined)
	ev := mustEvent(t, a, EventError)
	req.Equal(ErrCodeAlreadyJoined, ev.Error.Code)

	_, err = coord.Admit(a, participant("alice"), "other")
	req.ErrorIs(err, ErrAlreadyJoined)

	info, _ := coord.Room("r")
	req.Len(info.Members, 1)
	_, ok := coord.Room("other")
	req.False(ok)
}

func TestAdmitBadRequest(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	a := coord.Connect()
	_, err := coord.Admit(a, participant(" "), "r")
	req.ErrorIs(err, ErrBadRequest)
	req.Equal(ErrCodeBadRequest, mustEvent(t, a, EventError).Error.Code)

	_, err = coord.Admit(a, participant("alice"), "")
	req.ErrorIs(err, ErrBadRequest)
}

func TestLeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	a, b := coord.Connect(), coord.Connect()
	_, err := coord.Admit(a, participant("alice"), "r")
	req.NoError(err)
	_, err = coord.Admit(b, participant("bob"), "r")
	req.NoError(err)
	drain(b)

	req.True(coord.Leave(a))
	req.False(coord.Leave(a))
	coord.Disconnect(a)

	mustEvent(t, b, EventPeerLeft)
	noEvent(t, b)
}

func TestExplicitLeaveAllowsJoiningAnotherRoom(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	a := coord.Connect()
	first, err := coord.Admit(a, participant("alice"), "r1")
	req.NoError(err)
	req.True(coord.Leave(a))

	second, err := coord.Admit(a, participant("alice"), "r2")
	req.NoError(err)
	req.NotEqual(first.ConnectionID, second.ConnectionID)
}

func TestConcurrentAdmitsForLastSlot(t *testing.T) {
	for round := 0; round < 50; round++ {
		coord := newTestCoordinator()
		a := coord.Connect()
		_, err := coord.Admit(a, participant("alice"), "r")
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			admitted int
			full     int
		)
		for _, name := range []string{"bob", "carol"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				_, err := coord.Admit(coord.Connect(), participant(name), "r")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					admitted++
				} else if err == ErrRoomFull {
					full++
				}
			}(name)
		}
		wg.Wait()

		require.Equal(t, 1, admitted)
		require.Equal(t, 1, full)
		info, _ := coord.Room("r")
		require.Len(t, info.Members, DefaultCapacity)
	}
}

func TestCapacityInvariantUnderChurn(t *testing.T) {
	coord := NewCoordinator(Options{Capacity: 3})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c := coord.Connect()
				_, _ = coord.Admit(c, participant("p"), "r")
				if info, ok := coord.Room("r"); ok && len(info.Members) > 3 {
					t.Errorf("capacity exceeded: %d members", len(info.Members))
				}
				coord.Disconnect(c)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, Stats{}, coord.Stats())
}

func TestBroadcastPreservesEmissionOrder(t *testing.T) {
	req := require.New(t)
	coord := NewCoordinator(Options{Capacity: 0, EventBuffer: 256})

	observer := coord.Connect()
	_, err := coord.Admit(observer, participant("observer"), "r")
	req.NoError(err)
	mustEvent(t, observer, EventStoreConnectionID)

	var expected []EventKind
	for i := 0; i < 40; i++ {
		c := coord.Connect()
		_, err := coord.Admit(c, participant("p"), "r")
		req.NoError(err)
		expected = append(expected, EventPeerJoined)
		if i%2 == 0 {
			coord.Disconnect(c)
			expected = append(expected, EventPeerLeft)
		}
	}

	for i, kind := range expected {
		ev := nextEvent(t, observer)
		req.Equal(kind, ev.Kind, "event %d", i)
	}
	noEvent(t, observer)
}

func TestEmissionOrderUnderJitter(t *testing.T) {
	type emitted struct {
		kind         EventKind
		connectionID string
	}

	req := require.New(t)
	coord := NewCoordinator(Options{Capacity: 0, EventBuffer: 256})

	observer := coord.Connect()
	_, err := coord.Admit(observer, participant("observer"), "r")
	req.NoError(err)
	mustEvent(t, observer, EventStoreConnectionID)

	var expected []emitted
	done := make(chan struct{})
	go func() {
		defer close(done)
		var present []*Client
		var ids []string
		for i := 0; i < 60; i++ {
			time.Sleep(time.Duration(rand.Int63n(int64(time.Millisecond))))
			if len(present) > 0 && rand.Intn(3) == 0 {
				k := rand.Intn(len(present))
				coord.Disconnect(present[k])
				expected = append(expected, emitted{EventPeerLeft, ids[k]})
				present = append(present[:k], present[k+1:]...)
				ids = append(ids[:k], ids[k+1:]...)
				continue
			}
			c := coord.Connect()
			adm, err := coord.Admit(c, participant("p"), "r")
			if err != nil {
				t.Errorf("admit: %v", err)
				return
			}
			expected = append(expected, emitted{EventPeerJoined, adm.ConnectionID})
			present = append(present, c)
			ids = append(ids, adm.ConnectionID)
		}
	}()

	var got []emitted
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-observer.Events:
			time.Sleep(time.Duration(rand.Int63n(int64(500 * time.Microsecond))))
			got = append(got, emitted{ev.Kind, ev.ConnectionID})
			continue
		case <-done:
		case <-timeout:
			t.Fatal("emitter did not finish")
		}
		break
	}
	for len(got) < len(expected) {
		ev := nextEvent(t, observer)
		got = append(got, emitted{ev.Kind, ev.ConnectionID})
	}

	req.Equal(expected, got)
	noEvent(t, observer)
}

func TestLobbyUsesPresenceNotices(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	clients := make([]*Client, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		c := coord.Connect()
		_, err := coord.Admit(c, participant(name), "lobby")
		req.NoError(err, "lobby has no capacity")
		clients = append(clients, c)
	}

	first := clients[0]
	mustEvent(t, first, EventStoreConnectionID)
	req.Empty(mustEvent(t, clients[1], EventStoreConnectionID).Peers, "presence rooms carry no roster")
	for _, name := range []string{"b", "c", "d", "e"} {
		ev := mustEvent(t, first, EventConnected)
		req.Equal(name, ev.Participant.Name)
	}

	coord.Disconnect(clients[4])
	ev := mustEvent(t, first, EventDisconnected)
	req.Equal("e", ev.Participant.Name)
}

func TestSlowConsumerIsEvicted(t *testing.T) {
	req := require.New(t)
	coord := NewCoordinator(Options{EventBuffer: 3})

	slow := coord.Connect()
	_, err := coord.Admit(slow, participant("slow"), "r")
	req.NoError(err)

	p1, p2 := coord.Connect(), coord.Connect()
	_, err = coord.Admit(p1, participant("p1"), "r")
	req.NoError(err)
	drain(p1)
	_, err = coord.Admit(p2, participant("p2"), "r")
	req.NoError(err)
	drain(p1)
	drain(p2)

	// slow now holds store-connection-id and two peer-joined events.
	req.True(coord.Leave(p1))

	select {
	case <-slow.Dropped():
	default:
		t.Fatal("expected slow client to be dropped")
	}

	req.Equal("p1", mustEvent(t, p2, EventPeerLeft).Participant.Name)
	req.Equal("slow", mustEvent(t, p2, EventPeerLeft).Participant.Name)

	info, ok := coord.Room("r")
	req.True(ok)
	req.Len(info.Members, 1)
	req.Equal("p2", info.Members[0].Participant.Name)
}

func TestJoinerAdmittedWhenRoomOutgrowsEventBuffer(t *testing.T) {
	req := require.New(t)
	coord := NewCoordinator(Options{Capacity: 10, EventBuffer: 4})

	members := make([]*Client, 0, 6)
	names := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, name := range names {
		c := coord.Connect()
		_, err := coord.Admit(c, participant(name), "big")
		req.NoError(err)
		members = append(members, c)
		for _, m := range members {
			drain(m)
		}
	}

	late := coord.Connect()
	adm, err := coord.Admit(late, participant("late"), "big")
	req.NoError(err)
	req.NotEmpty(adm.ConnectionID)

	select {
	case <-late.Dropped():
		t.Fatal("joiner must not be dropped by its own admission")
	default:
	}
	for _, m := range members {
		select {
		case <-m.Dropped():
			t.Fatalf("member %s dropped", m.ID)
		default:
		}
	}

	welcome := mustEvent(t, late, EventStoreConnectionID)
	req.Equal(adm.ConnectionID, welcome.ConnectionID)
	req.Len(welcome.Peers, len(names))
	for i, name := range names {
		req.Equal(name, welcome.Peers[i].Participant.Name)
	}

	info, ok := coord.Room("big")
	req.True(ok)
	req.Len(info.Members, 6)
}

func TestAdmitReportsDroppedJoiner(t *testing.T) {
	req := require.New(t)
	coord := NewCoordinator(Options{Capacity: 10, EventBuffer: 2})

	a, x, b := coord.Connect(), coord.Connect(), coord.Connect()
	_, err := coord.Admit(a, participant("alice"), "r1")
	req.NoError(err)
	_, err = coord.Admit(x, participant("xavier"), "r1")
	req.NoError(err)
	req.True(coord.Leave(a))

	// a never read its welcome or xavier's arrival, so its queue is full.
	_, err = coord.Admit(b, participant("bob"), "r2")
	req.NoError(err)
	drain(b)
	_, err = coord.Admit(a, participant("alice"), "r2")
	req.ErrorIs(err, ErrDropped)

	select {
	case <-a.Dropped():
	default:
		t.Fatal("joiner should be marked dropped")
	}

	// bob saw alice arrive and leave again, and stays in the room.
	mustEvent(t, b, EventPeerJoined)
	mustEvent(t, b, EventPeerLeft)

	info, ok := coord.Room("r2")
	req.True(ok)
	req.Len(info.Members, 1)
	req.Equal("bob", info.Members[0].Participant.Name)
}

func drain(c *Client) {
	for {
		select {
		case <-c.Events:
		default:
			return
		}
	}
}
