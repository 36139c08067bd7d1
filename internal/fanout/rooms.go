package fanout

import (
	"sync"

	"go.uber.org/zap"
)

const (
	// RoomGeneral is joined by every authenticated connection.
	RoomGeneral = "general"
	// RoomAdmin is additionally joined by admin identities. It exists
	// for chat semantics only; admin broadcast uses the registry's
	// role index.
	RoomAdmin = "admin"
)

// Rooms is the bidirectional identity<->room index. Both sides are kept
// symmetric under one lock: an identity appears in a room's member set
// if and only if the room appears in the identity's joined set. Removal
// is defensively idempotent throughout.
type Rooms struct {
	logger *zap.Logger
	mu     sync.RWMutex

	membersByRoom map[string]map[string]struct{}
	roomsByMember map[string]map[string]struct{}
}

func NewRooms(logger *zap.Logger) *Rooms {
	return &Rooms{
		logger:        logger,
		membersByRoom: make(map[string]map[string]struct{}),
		roomsByMember: make(map[string]map[string]struct{}),
	}
}

func (r *Rooms) Join(userID string, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.membersByRoom[room]; !ok {
		r.membersByRoom[room] = make(map[string]struct{})
	}
	r.membersByRoom[room][userID] = struct{}{}

	if _, ok := r.roomsByMember[userID]; !ok {
		r.roomsByMember[userID] = make(map[string]struct{})
	}
	r.roomsByMember[userID][room] = struct{}{}
}

func (r *Rooms) Leave(userID string, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(userID, room)
}

func (r *Rooms) leaveLocked(userID string, room string) {
	members, ok := r.membersByRoom[room]
	if ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.membersByRoom, room)
		}
	}

	joined, ok := r.roomsByMember[userID]
	if ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.roomsByMember, userID)
		}
	}
}

// Purge removes the identity from every room it belongs to. Called when
// the identity's last connection disconnects.
func (r *Rooms) Purge(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.roomsByMember[userID] {
		r.leaveLocked(userID, room)
	}
}

func (r *Rooms) IsMember(userID string, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.membersByRoom[room][userID]

	return ok
}

func (r *Rooms) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.membersByRoom[room]))
	for userID := range r.membersByRoom[room] {
		members = append(members, userID)
	}

	return members
}

func (r *Rooms) RoomsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.roomsByMember[userID]))
	for room := range r.roomsByMember[userID] {
		rooms = append(rooms, room)
	}

	return rooms
}

func (r *Rooms) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.membersByRoom))
	for room := range r.membersByRoom {
		rooms = append(rooms, room)
	}

	return rooms
}

func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.membersByRoom)
}

// Sweep drops rooms with no members. Leave already prunes on empty, so
// this is a defensive pass for long-running processes, driven by a
// ticker in main. Returns the number of rooms removed.
func (r *Rooms) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	for room, members := range r.membersByRoom {
		if len(members) == 0 {
			delete(r.membersByRoom, room)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Info("swept empty rooms", zap.Int("removed", removed))
	}

	return removed
}
