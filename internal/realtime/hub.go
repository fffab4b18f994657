// Package realtime implements the websocket fan-out layer: a registry of
// live connections grouped into named rooms.  The hub is an explicit
// object created at process start and injected into handlers; there is
// no ambient global state.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/config"
)

func roomName(kind string, id uint64) string { return fmt.Sprintf("%s-%d", kind, id) }

// Socket is the subset of *websocket.Conn the hub depends on.
type Socket interface {
	WriteJSON(v any) error
	ReadMessage() (int, []byte, error)
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

var _ Socket = (*websocket.Conn)(nil)

// Conn wraps one websocket connection with its room memberships and
// heartbeat bookkeeping.  Writes are serialized by wmu; the hub never
// writes to a connection from two goroutines at once.
type Conn struct {
	ws       Socket
	userID   uint64
	rooms    map[string]bool
	lastSeen time.Time
	wmu      sync.Mutex
}

// Hub is the connection registry.  Entries are added on connect, removed
// on disconnect or by the stale sweep.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]bool
	rooms map[string]map[*Conn]bool
	cfg   config.RealtimeConfig
	log   *zap.SugaredLogger
}

// NewHub creates an empty registry.
func NewHub(cfg config.RealtimeConfig, log *zap.SugaredLogger) *Hub {
	return &Hub{
		conns: make(map[*Conn]bool),
		rooms: make(map[string]map[*Conn]bool),
		cfg:   cfg,
		log:   log,
	}
}

// Register adds a websocket connection to the registry and joins it to
// the given rooms.
func (h *Hub) Register(ws Socket, userID uint64, rooms ...string) *Conn {
	conn := &Conn{
		ws:       ws,
		userID:   userID,
		rooms:    make(map[string]bool, len(rooms)),
		lastSeen: time.Now(),
	}
	h.mu.Lock()
	h.conns[conn] = true
	for _, room := range rooms {
		conn.rooms[room] = true
		h.joinLocked(conn, room)
	}
	h.mu.Unlock()
	return conn
}

func (h *Hub) joinLocked(conn *Conn, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]bool)
		h.rooms[room] = members
	}
	members[conn] = true
}

// Unregister removes a connection from the registry and all its rooms,
// closing the underlying websocket.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	h.removeLocked(conn)
	h.mu.Unlock()
	_ = conn.ws.Close()
}

func (h *Hub) removeLocked(conn *Conn) {
	delete(h.conns, conn)
	for room := range conn.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, conn)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// Publish delivers an event to every member of its room, or to every
// connection when the room is BroadcastRoom.  It returns the number of
// connections written to; zero means the event was dropped, which is
// acceptable under the at-most-once contract.  A failed write removes
// the connection.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	var targets []*Conn
	if ev.Room == BroadcastRoom {
		targets = make([]*Conn, 0, len(h.conns))
		for conn := range h.conns {
			targets = append(targets, conn)
		}
	} else {
		members := h.rooms[ev.Room]
		targets = make([]*Conn, 0, len(members))
		for conn := range members {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := h.write(conn, ev); err != nil {
			h.log.Warnw("realtime write failed, dropping connection",
				"room", ev.Room, "user_id", conn.userID, "err", err)
			h.Unregister(conn)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) write(conn *Conn, ev Event) error {
	conn.wmu.Lock()
	defer conn.wmu.Unlock()
	_ = conn.ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	return conn.ws.WriteJSON(ev)
}

// SweepStale drops connections whose last heartbeat is older than the
// configured timeout and returns how many were removed.  This is
// housekeeping, not a correctness protocol: a stale entry only wastes a
// registry slot until the next sweep.
func (h *Hub) SweepStale() int {
	cutoff := time.Now().Add(-h.cfg.HeartbeatTimeout)
	h.mu.Lock()
	var stale []*Conn
	for conn := range h.conns {
		if conn.lastSeen.Before(cutoff) {
			stale = append(stale, conn)
			h.removeLocked(conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range stale {
		_ = conn.ws.Close()
	}
	if len(stale) > 0 {
		h.log.Infow("swept stale realtime connections", "count", len(stale))
	}
	return len(stale)
}

// Counts returns the number of live connections and rooms, for the admin
// surface.
func (h *Hub) Counts() (conns, rooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns), len(h.rooms)
}

// Run sweeps periodically until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SweepStale()
		}
	}
}

// ServeConn reads from the connection until it closes, treating every
// inbound frame and pong as a heartbeat.  Clients are not expected to
// send payloads; inbound data is discarded.
func (h *Hub) ServeConn(conn *Conn) {
	defer h.Unregister(conn)
	conn.ws.SetPongHandler(func(string) error {
		h.touch(conn)
		return nil
	})
	for {
		_ = conn.ws.SetReadDeadline(time.Now().Add(h.cfg.HeartbeatTimeout))
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
		h.touch(conn)
	}
}

func (h *Hub) touch(conn *Conn) {
	h.mu.Lock()
	conn.lastSeen = time.Now()
	h.mu.Unlock()
}

// markSeen backdates a connection's heartbeat; test hook for the sweep.
func (h *Hub) markSeen(conn *Conn, t time.Time) {
	h.mu.Lock()
	conn.lastSeen = t
	h.mu.Unlock()
}
