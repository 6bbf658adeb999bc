package relay

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ajayjoseph-creator/vibex-relay/internal/presence"
)

// Conn is the write side of one live client connection. transport.Connection
// satisfies it; tests inject recording fakes.
type Conn interface {
	ID() uuid.UUID
	Send(msg []byte)
	Close(err error)
}

// Registry maps each user to their single live connection and owns presence
// broadcasts. A later join for the same user overwrites the earlier mapping.
// Every mutation and the broadcast it triggers happen under one lock, so all
// observers see broadcasts consistent with a serialization of joins and leaves.
type Registry struct {
	mu       sync.Mutex
	byUser   map[string]Conn
	byConn   map[uuid.UUID]string // reverse index, keeps disconnect O(1)
	attached map[uuid.UUID]Conn   // every live connection, joined or not

	mirror presence.Mirror
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger, mirror presence.Mirror) *Registry {
	if mirror == nil {
		mirror = presence.Noop{}
	}
	return &Registry{
		byUser:   make(map[string]Conn),
		byConn:   make(map[uuid.UUID]string),
		attached: make(map[uuid.UUID]Conn),
		mirror:   mirror,
		logger:   logger.With(slog.String("component", "registry")),
	}
}

// Attach records a live connection before it has joined as any user.
// Presence broadcasts reach attached connections too.
func (r *Registry) Attach(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached[c.ID()] = c
}

// Detach removes a terminated connection and, if it had joined, removes the
// user mapping and broadcasts the updated online set. A connection that
// closed before ever joining detaches silently.
func (r *Registry) Detach(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.attached, connID)

	userID, joined := r.byConn[connID]
	if !joined {
		return
	}
	delete(r.byConn, connID)
	// A newer connection may have overwritten the mapping already; only the
	// current owner's disconnect evicts the user.
	if cur, ok := r.byUser[userID]; ok && cur.ID() == connID {
		delete(r.byUser, userID)
	}
	r.logger.Debug("User went offline", slog.String("userID", userID), slog.String("connID", connID.String()))
	r.broadcastLocked()
}

// Join maps userID to conn, overwriting any earlier mapping, then broadcasts
// the full online set. An empty userID is ignored.
func (r *Registry) Join(userID string, c Conn) {
	if userID == "" {
		r.logger.Warn("Ignoring join with empty userID", slog.String("connID", c.ID().String()))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Drop a stale mapping if this connection previously joined as someone
	// else; a ConnectionId belongs to at most one user at a time.
	if prevUser, ok := r.byConn[c.ID()]; ok && prevUser != userID {
		if cur, exists := r.byUser[prevUser]; exists && cur.ID() == c.ID() {
			delete(r.byUser, prevUser)
		}
	}
	// The overwritten connection no longer owns this user.
	if prev, ok := r.byUser[userID]; ok && prev.ID() != c.ID() {
		delete(r.byConn, prev.ID())
	}

	r.byUser[userID] = c
	r.byConn[c.ID()] = userID
	r.attached[c.ID()] = c

	r.logger.Debug("User online", slog.String("userID", userID), slog.String("connID", c.ID().String()))
	r.broadcastLocked()
}

// Lookup returns the live connection for a user, if any. Pure read.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Online returns a sorted snapshot of currently-online user ids.
func (r *Registry) Online() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

// ConnCount reports the number of live connections, joined or not.
func (r *Registry) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attached)
}

// Conns returns every live connection; used by the server's shutdown walk.
func (r *Registry) Conns() []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := make([]Conn, 0, len(r.attached))
	for _, c := range r.attached {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) onlineLocked() []string {
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

func (r *Registry) broadcastLocked() {
	online := r.onlineLocked()
	msg, err := marshalEvent(EventOnlineUsers, online)
	if err != nil {
		r.logger.Error("Failed to marshal online_users broadcast", slog.Any("error", err))
		return
	}
	for _, c := range r.attached {
		c.Send(msg)
	}
	r.mirror.Publish(online)
}
