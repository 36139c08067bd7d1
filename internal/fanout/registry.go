package fanout

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Registry is the authoritative set of live connections. An identity may
// hold several concurrent connections (multiple tabs or devices); every
// per-user delivery fans out to all of them. Admins are tracked in a
// dedicated index so admin broadcast never depends on room membership.
//
// All sends happen under the read lock and the Send channel is closed
// only under the write lock, so a push can never race a close.
type Registry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections       map[string]*Connection
	connectionsByUser map[string]map[string]*Connection
	admins            map[string]*Connection
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:            logger,
		connections:       make(map[string]*Connection),
		connectionsByUser: make(map[string]map[string]*Connection),
		admins:            make(map[string]*Connection),
	}
}

func (r *Registry) Register(conn *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[conn.ID]; ok {
		return errors.New("connection already registered")
	}

	r.connections[conn.ID] = conn

	if _, ok := r.connectionsByUser[conn.UserID]; !ok {
		r.connectionsByUser[conn.UserID] = make(map[string]*Connection)
	}
	r.connectionsByUser[conn.UserID][conn.ID] = conn

	if conn.IsAdmin {
		r.admins[conn.ID] = conn
	}

	return nil
}

// Remove drops a connection from every index and closes its send
// channel. It is idempotent; the second call for the same id is a no-op.
// remaining reports how many connections the owning identity still has,
// so the caller can purge room membership when the last one goes.
func (r *Registry) Remove(connID string) (userID string, remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, found := r.connections[connID]
	if !found {
		return "", 0, false
	}

	delete(r.connections, connID)
	delete(r.admins, connID)

	userConnections := r.connectionsByUser[conn.UserID]
	delete(userConnections, connID)
	if len(userConnections) == 0 {
		delete(r.connectionsByUser, conn.UserID)
	}

	close(conn.Send)

	return conn.UserID, len(userConnections), true
}

func (r *Registry) Connection(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connID]

	return conn, ok
}

// User returns a snapshot of the identity's live connections.
func (r *Registry) User(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userConnections := r.connectionsByUser[userID]
	connections := make([]*Connection, 0, len(userConnections))
	for _, conn := range userConnections {
		connections = append(connections, conn)
	}

	return connections
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}

// deliverLocked attempts a non-blocking send to one connection. The
// caller must hold at least the read lock. A full buffer marks the
// connection stale; it is up to the caller to tear it down.
func (r *Registry) deliverLocked(conn *Connection, envelope Envelope) (stale bool) {
	select {
	case conn.Send <- envelope:
		return false
	default:
		r.logger.Warn("connection send buffer is full, marking stale",
			zap.String("connectionId", conn.ID),
			zap.String("userId", conn.UserID))

		return true
	}
}

func (r *Registry) PushConn(connID string, envelope Envelope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connID]
	if !ok {
		return nil
	}

	if r.deliverLocked(conn, envelope) {
		return []string{conn.ID}
	}

	return nil
}

func (r *Registry) PushUser(userID string, envelope Envelope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var staleConnectionIds []string

	for _, conn := range r.connectionsByUser[userID] {
		if r.deliverLocked(conn, envelope) {
			staleConnectionIds = append(staleConnectionIds, conn.ID)
		}
	}

	return staleConnectionIds
}

func (r *Registry) PushUsers(userIDs map[string]struct{}, envelope Envelope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var staleConnectionIds []string

	for userID := range userIDs {
		for _, conn := range r.connectionsByUser[userID] {
			if r.deliverLocked(conn, envelope) {
				staleConnectionIds = append(staleConnectionIds, conn.ID)
			}
		}
	}

	return staleConnectionIds
}

func (r *Registry) PushAll(envelope Envelope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var staleConnectionIds []string

	for _, conn := range r.connections {
		if r.deliverLocked(conn, envelope) {
			staleConnectionIds = append(staleConnectionIds, conn.ID)
		}
	}

	return staleConnectionIds
}

// PushAdmins fans out through the role index, never room membership.
func (r *Registry) PushAdmins(envelope Envelope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var staleConnectionIds []string

	for _, conn := range r.admins {
		if r.deliverLocked(conn, envelope) {
			staleConnectionIds = append(staleConnectionIds, conn.ID)
		}
	}

	return staleConnectionIds
}

func (r *Registry) PushNonAdmins(envelope Envelope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var staleConnectionIds []string

	for _, conn := range r.connections {
		if _, isAdmin := r.admins[conn.ID]; isAdmin {
			continue
		}

		if r.deliverLocked(conn, envelope) {
			staleConnectionIds = append(staleConnectionIds, conn.ID)
		}
	}

	return staleConnectionIds
}
