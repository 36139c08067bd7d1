package fanout

import (
	"context"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// sendBufferSize bounds how far a slow reader may fall behind before it
// is considered stale and torn down.
const sendBufferSize = 64

// Connection is one live socket. The registry owns it for its lifetime;
// the Send channel is the only write path and is closed exactly once
// when the connection is removed.
type Connection struct {
	ID          string
	UserID      string
	IsAdmin     bool
	ConnectedAt time.Time
	Send        chan Envelope

	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

func NewConnection(userID string, isAdmin bool) *Connection {
	return &Connection{
		ID:            gonanoid.Must(),
		UserID:        userID,
		IsAdmin:       isAdmin,
		ConnectedAt:   time.Now(),
		Send:          make(chan Envelope, sendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
}

// Subscribe records an advisory topic subscription. Subscriptions are
// per-connection and distinct from room membership.
func (c *Connection) Subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscriptions[topic] = struct{}{}
}

func (c *Connection) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subscriptions, topic)
}

func (c *Connection) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}

	return topics
}

type contextKey string

const connectionKey contextKey = "connection"

func WithConnection(ctx context.Context, conn *Connection) context.Context {
	return context.WithValue(ctx, connectionKey, conn)
}

func ConnectionFromContext(ctx context.Context) (*Connection, bool) {
	conn, ok := ctx.Value(connectionKey).(*Connection)

	return conn, ok
}
