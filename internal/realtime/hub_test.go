package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/config"
)

// fakeSocket records written events and can be told to fail writes.
type fakeSocket struct {
	mu      sync.Mutex
	events  []Event
	failing bool
	closed  bool
}

func (f *fakeSocket) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("write failed")
	}
	f.events = append(f.events, v.(Event))
	return nil
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("closed") }
func (f *fakeSocket) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeSocket) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeSocket) SetPongHandler(func(string) error) {}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func newTestHub() *Hub {
	return NewHub(config.RealtimeConfig{
		HeartbeatTimeout: time.Minute,
		SweepInterval:    time.Minute,
		WriteTimeout:     time.Second,
	}, zap.NewNop().Sugar())
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "user-42", UserRoom(42))
	assert.Equal(t, "shop-7", ShopRoom(7))
	assert.Equal(t, "admin-reservations", AdminRoom)
	assert.Equal(t, "*", BroadcastRoom)
}

func TestPublishTargetsOnlyRoomMembers(t *testing.T) {
	hub := newTestHub()
	userSock := &fakeSocket{}
	shopSock := &fakeSocket{}
	hub.Register(userSock, 1, UserRoom(1))
	hub.Register(shopSock, 2, ShopRoom(9))

	n := hub.Publish(Event{ID: "e1", Type: EventSystemMessage, Room: UserRoom(1)})
	assert.Equal(t, 1, n)
	assert.Len(t, userSock.received(), 1)
	assert.Empty(t, shopSock.received())
}

func TestPublishEmptyRoomDropsEvent(t *testing.T) {
	hub := newTestHub()
	n := hub.Publish(Event{ID: "e1", Room: UserRoom(99)})
	assert.Equal(t, 0, n)
}

func TestPublishBroadcastReachesEveryConnection(t *testing.T) {
	hub := newTestHub()
	a := &fakeSocket{}
	b := &fakeSocket{}
	hub.Register(a, 1, UserRoom(1))
	hub.Register(b, 2, ShopRoom(5), AdminRoom)

	n := hub.Publish(Event{ID: "e1", Room: BroadcastRoom})
	assert.Equal(t, 2, n)
	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
}

func TestPublishDropsFailingConnection(t *testing.T) {
	hub := newTestHub()
	good := &fakeSocket{}
	bad := &fakeSocket{failing: true}
	hub.Register(good, 1, UserRoom(1))
	hub.Register(bad, 2, UserRoom(1))

	n := hub.Publish(Event{ID: "e1", Room: UserRoom(1)})
	assert.Equal(t, 1, n)

	conns, _ := hub.Counts()
	assert.Equal(t, 1, conns)
	assert.True(t, bad.closed)

	// The failed connection must not come back on the next publish.
	n = hub.Publish(Event{ID: "e2", Room: UserRoom(1)})
	assert.Equal(t, 1, n)
}

func TestSweepStaleRemovesOnlyStaleConnections(t *testing.T) {
	hub := newTestHub()
	fresh := &fakeSocket{}
	stale := &fakeSocket{}
	hub.Register(fresh, 1, UserRoom(1))
	staleConn := hub.Register(stale, 2, UserRoom(2))
	hub.markSeen(staleConn, time.Now().Add(-2*time.Minute))

	removed := hub.SweepStale()
	assert.Equal(t, 1, removed)
	assert.True(t, stale.closed)

	conns, rooms := hub.Counts()
	assert.Equal(t, 1, conns)
	assert.Equal(t, 1, rooms)

	// The survivor still receives events.
	assert.Equal(t, 1, hub.Publish(Event{ID: "e1", Room: UserRoom(1)}))
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	hub := newTestHub()
	sock := &fakeSocket{}
	conn := hub.Register(sock, 1, UserRoom(1), AdminRoom)

	hub.Unregister(conn)
	assert.True(t, sock.closed)

	conns, rooms := hub.Counts()
	assert.Equal(t, 0, conns)
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, hub.Publish(Event{Room: AdminRoom}))
}
