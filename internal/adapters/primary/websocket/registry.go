package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// AdminRoom is the shared room every admin session joins.
const AdminRoom = "admins"

// UserRoom returns the room name for a user's personal room.
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Registry tracks which sessions belong to which rooms. Rooms are created on
// first join and removed when their last session leaves, so an absent room and
// an empty room are the same thing.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]bool
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Session]bool),
	}
}

// Join adds a session to a room. Joining a room twice is a no-op.
func (r *Registry) Join(room string, session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Session]bool)
	}
	r.rooms[room][session] = true
	session.addRoom(room)
}

// Leave removes a session from a room, dropping the room once it is empty.
// Leaving a room the session never joined is a no-op.
func (r *Registry) Leave(room string, session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[room]; ok {
		delete(members, session)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	session.removeRoom(room)
}

// LeaveAll removes a session from every room it joined.
func (r *Registry) LeaveAll(session *Session) {
	for _, room := range session.Rooms() {
		r.Leave(room, session)
	}
}

// SessionsOf returns a snapshot of the sessions currently in a room. The
// returned slice is a copy; callers may send to its members without holding
// any registry lock.
func (r *Registry) SessionsOf(room string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}

	sessions := make([]*Session, 0, len(members))
	for s := range members {
		sessions = append(sessions, s)
	}
	return sessions
}

// RoomCount returns the number of active rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// SessionCount returns the number of sessions in a room.
func (r *Registry) SessionCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}
