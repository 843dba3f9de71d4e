// Package ws implements the process-local session registry for the real-time
// channel. A Hub maps user ids to live websocket connections so the
// notification fan-out can address a user directly; the registry is volatile
// and rebuilt from client reconnects after a restart.
//
// Responsibilities:
//
//   - Hub: mutex-guarded bidirectional registry (user id <-> connection) with
//     last-registration-wins semantics per user.
//   - Handler: Gin endpoint performing the websocket upgrade, the register
//     handshake, and the ping/pong keepalive loop.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// session wraps a live connection with its own write lock, so that writes
// are serialized per connection (as gorilla/websocket requires) without
// funneling every user's delivery through one registry-wide lock.
type session struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Hub is the in-memory registry of live real-time connections. All methods
// are safe for concurrent use. Membership is volatile: nothing is persisted
// and a process restart empties the registry.
type Hub struct {
	mu sync.Mutex
	// byUser maps a user id to its single live session.
	byUser map[string]*session
	// owner maps a connection back to the user it is registered for.
	owner map[*websocket.Conn]string

	// writeTimeout bounds each outbound write so a stalled peer cannot
	// block the caller.
	writeTimeout time.Duration
}

// NewHub returns an empty registry. writeTimeout <= 0 falls back to 5s.
func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		byUser:       make(map[string]*session),
		owner:        make(map[*websocket.Conn]string),
		writeTimeout: writeTimeout,
	}
}

// Register binds conn as userID's live connection. A previous connection for
// the same user is evicted and closed: the newest registration wins, which
// covers reconnects where the old TCP session has not timed out yet.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	var evicted *websocket.Conn

	h.mu.Lock()
	if prev, ok := h.byUser[userID]; ok && prev.conn != conn {
		delete(h.owner, prev.conn)
		evicted = prev.conn
	}
	// The connection may have been registered under another user id before
	// (client re-registered); move its session so lookups cannot alias and
	// in-flight writes keep serializing on the same lock.
	sess := &session{conn: conn}
	if old, ok := h.owner[conn]; ok {
		if s, ok := h.byUser[old]; ok && s.conn == conn {
			sess = s
			if old != userID {
				delete(h.byUser, old)
			}
		}
	}
	h.byUser[userID] = sess
	h.owner[conn] = userID
	h.mu.Unlock()

	if evicted != nil {
		_ = evicted.Close()
		log.Debug().Str("user_id", userID).Msg("evicted stale realtime session")
	}
}

// Unregister removes conn from the registry. It is a no-op when conn was
// already evicted by a newer registration, so a late deferred cleanup cannot
// tear down the replacement session.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID, ok := h.owner[conn]
	if !ok {
		return
	}
	delete(h.owner, conn)
	if sess, ok := h.byUser[userID]; ok && sess.conn == conn {
		delete(h.byUser, userID)
	}
}

// Lookup reports whether userID currently has a live connection.
func (h *Hub) Lookup(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.byUser[userID]
	return ok
}

// Count returns the number of registered sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byUser)
}

// Send delivers v as a JSON message to userID's live connection, if any, and
// reports whether a delivery was attempted successfully. A write error drops
// the connection from the registry; the client is expected to reconnect.
// Only the session's own write lock is held across the network write, so a
// stalled peer delays its own deliveries but never other users' sends or
// registry operations.
func (h *Hub) Send(userID string, v any) bool {
	h.mu.Lock()
	sess, ok := h.byUser[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}

	sess.wmu.Lock()
	_ = sess.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	err := sess.conn.WriteJSON(v)
	sess.wmu.Unlock()
	if err == nil {
		return true
	}

	h.mu.Lock()
	if cur, ok := h.byUser[userID]; ok && cur == sess {
		delete(h.byUser, userID)
		delete(h.owner, sess.conn)
	}
	h.mu.Unlock()
	_ = sess.conn.Close()
	log.Debug().Err(err).Str("user_id", userID).Msg("realtime write failed, session dropped")
	return false
}
