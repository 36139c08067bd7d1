package fanout

import (
	"go.uber.org/zap"
)

// Dispatcher is the publish surface of the fan-out layer. Deliveries are
// best-effort and fire-and-forget: a failed delivery to one recipient
// never affects the others, and nothing is retried. A connection whose
// send buffer is full is treated as an implicit disconnect and torn down
// through the same path as a transport close.
type Dispatcher struct {
	logger   *zap.Logger
	registry *Registry
	rooms    *Rooms
}

func NewDispatcher(logger *zap.Logger, registry *Registry, rooms *Rooms) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		registry: registry,
		rooms:    rooms,
	}
}

func (d *Dispatcher) ConnectionCount() int {
	return d.registry.Count()
}

func (d *Dispatcher) RoomCount() int {
	return d.rooms.Count()
}

// Connect registers the connection and applies the default room policy:
// everyone joins general, admins additionally join admin.
func (d *Dispatcher) Connect(conn *Connection) error {
	if err := d.registry.Register(conn); err != nil {
		return err
	}

	d.rooms.Join(conn.UserID, RoomGeneral)
	if conn.IsAdmin {
		d.rooms.Join(conn.UserID, RoomAdmin)
	}

	d.logger.Info("connection registered",
		zap.String("connectionId", conn.ID),
		zap.String("userId", conn.UserID),
		zap.Bool("isAdmin", conn.IsAdmin),
		zap.Int("connections", d.registry.Count()))

	return nil
}

// Disconnect is the single cleanup path for close, error and stale
// teardown. Idempotent: the registry ignores unknown ids. Room
// membership is purged when the identity's last connection departs.
func (d *Dispatcher) Disconnect(connID string) {
	userID, remaining, ok := d.registry.Remove(connID)
	if !ok {
		return
	}

	if remaining == 0 {
		d.rooms.Purge(userID)
	}

	d.logger.Info("connection removed",
		zap.String("connectionId", connID),
		zap.String("userId", userID),
		zap.Int("userConnectionsRemaining", remaining),
		zap.Int("connections", d.registry.Count()))
}

func (d *Dispatcher) SendToConn(connID string, envelope Envelope) {
	d.reap(d.registry.PushConn(connID, envelope))
}

// SendToUser delivers to every live connection of the identity; if none
// exist the envelope is silently dropped.
func (d *Dispatcher) SendToUser(userID string, envelope Envelope) {
	d.reap(d.registry.PushUser(userID, envelope))
}

func (d *Dispatcher) SendToAll(envelope Envelope) {
	d.reap(d.registry.PushAll(envelope))
}

func (d *Dispatcher) SendToAdmins(envelope Envelope) {
	d.reap(d.registry.PushAdmins(envelope))
}

func (d *Dispatcher) SendToNonAdmins(envelope Envelope) {
	d.reap(d.registry.PushNonAdmins(envelope))
}

// SendToRoom delivers to the room's members minus the exclusion set.
func (d *Dispatcher) SendToRoom(room string, envelope Envelope, exclude ...string) {
	excluded := make(map[string]struct{}, len(exclude))
	for _, userID := range exclude {
		excluded[userID] = struct{}{}
	}

	recipients := make(map[string]struct{})
	for _, userID := range d.rooms.MembersOf(room) {
		if _, ok := excluded[userID]; ok {
			continue
		}
		recipients[userID] = struct{}{}
	}

	if len(recipients) == 0 {
		return
	}

	d.reap(d.registry.PushUsers(recipients, envelope))
}

func (d *Dispatcher) reap(staleConnectionIds []string) {
	for _, connID := range staleConnectionIds {
		d.Disconnect(connID)
	}
}
