package realtime

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var ErrAlreadyBound = errors.New("realtime: connection already bound to a user")

// Registry maps user ids to their live connection. It keeps one active
// connection per user: binding a new one evicts and closes the previous.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]*Connection
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int64]*Connection)}
}

// Bind makes conn addressable as userID for the rest of its lifetime.
func (r *Registry) Bind(conn *Connection, userID int64) error {
	if userID <= 0 {
		return errors.New("realtime: invalid user id")
	}

	r.mu.Lock()
	select {
	case <-conn.Done():
		r.mu.Unlock()
		return ErrConnectionClosed
	default:
	}
	if !conn.bind(userID) {
		r.mu.Unlock()
		return ErrAlreadyBound
	}
	previous := r.byUser[userID]
	r.byUser[userID] = conn
	r.mu.Unlock()

	if previous != nil && previous != conn {
		previous.Close(CloseSessionReplaced, "session replaced")
	}
	return nil
}

// Unbind removes conn if it is still the current binding for its user.
// It reports whether a binding was removed.
func (r *Registry) Unbind(conn *Connection) bool {
	userID := conn.UserID()
	if userID == 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.byUser[userID]; ok && current == conn {
		delete(r.byUser, userID)
		return true
	}
	return false
}

func (r *Registry) Lookup(userID int64) (*Connection, bool) {
	r.mu.RLock()
	conn, ok := r.byUser[userID]
	r.mu.RUnlock()
	return conn, ok
}

// Deliver pushes payload to the user's connection. It reports false when the
// user is offline or the connection refused the frame.
func (r *Registry) Deliver(userID int64, payload []byte) bool {
	conn, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	return conn.Send(payload) == nil
}

func (r *Registry) Online(userID int64) bool {
	_, ok := r.Lookup(userID)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Close terminates every bound connection and clears the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.byUser))
	for _, conn := range r.byUser {
		conns = append(conns, conn)
	}
	r.byUser = make(map[int64]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}
