package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// pullTimeout bounds the store read behind a get-notifications request.
const pullTimeout = 10 * time.Second

// Hub maintains the set of active sessions and fans events out to them. A
// push is fire-and-forget: a miss (empty room, full buffer, dead connection)
// is logged and swallowed, never surfaced to the emitter.
type Hub struct {
	// sessions holds every connected session across all users.
	sessions map[*Session]bool

	// registry tracks room membership for targeted fan-out.
	registry *Registry

	// Register requests from sessions
	Register chan *Session

	// Unregister requests from sessions
	Unregister chan *Session

	// notifLister serves get-notifications pull requests.
	notifLister ports.NotificationLister

	// mu protects the sessions map
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the EventPublisher interface.
var _ ports.EventPublisher = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(notifLister ports.NotificationLister, logger *slog.Logger) *Hub {
	return &Hub{
		sessions:    make(map[*Session]bool),
		registry:    NewRegistry(),
		Register:    make(chan *Session),
		Unregister:  make(chan *Session),
		notifLister: notifLister,
		logger:      logger.With("component", "websocket_hub"),
	}
}

// SetNotificationLister wires the store read that answers get-notifications
// pulls. The hub publishes for the notification service and reads through it,
// so one side binds after construction. Must be called before Run.
func (h *Hub) SetNotificationLister(l ports.NotificationLister) {
	h.notifLister = l
}

// Run starts the hub's session lifecycle loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case session := <-h.Register:
			h.registerSession(session)

		case session := <-h.Unregister:
			h.unregisterSession(session)
		}
	}
}

// registerSession adds a session to the hub. The session joins no rooms yet;
// room membership is driven by the client's join control events.
func (h *Hub) registerSession(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[session] = true

	h.logger.Info("session registered",
		"user_id", session.UserID,
		"total_sessions", len(h.sessions),
	)
}

// unregisterSession removes a session from the hub and every room it joined.
func (h *Hub) unregisterSession(session *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[session]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, session)
	h.mu.Unlock()

	h.registry.LeaveAll(session)
	session.CloseSend()

	h.logger.Info("session unregistered", "user_id", session.UserID)
}

// EmitToUser pushes an event to every session in the user's room. A user with
// no joined sessions simply misses the push and reconciles via pull.
func (h *Hub) EmitToUser(userID uuid.UUID, event domain.Event) {
	h.deliver(h.registry.SessionsOf(UserRoom(userID)), event)
}

// EmitToAdmins pushes an event to every session in the admin room.
func (h *Hub) EmitToAdmins(event domain.Event) {
	h.deliver(h.registry.SessionsOf(AdminRoom), event)
}

// EmitToAll pushes an event to every connected session, joined or not.
func (h *Hub) EmitToAll(event domain.Event) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	h.deliver(sessions, event)
}

// deliver queues an event on each session without blocking. Sessions with a
// full buffer, or ones that disconnected after the snapshot was taken, are
// skipped; the event is not an acknowledged delivery.
func (h *Hub) deliver(sessions []*Session, event domain.Event) {
	if len(sessions) == 0 {
		h.logger.Debug("no sessions for event", "event", event.Name)
		return
	}

	for _, session := range sessions {
		session.trySend(event)
	}
}

// relayToSiblings pushes an event to the user's other sessions, skipping the
// one that originated it.
func (h *Hub) relayToSiblings(origin *Session, event domain.Event) {
	sessions := h.registry.SessionsOf(UserRoom(origin.UserID))

	siblings := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		if s != origin {
			siblings = append(siblings, s)
		}
	}

	h.deliver(siblings, event)
}

// sendSnapshot answers a get-notifications pull for one session. Admin
// sessions receive the broadcast feed; everyone else their own notifications.
func (h *Hub) sendSnapshot(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), pullTimeout)
	defer cancel()

	notifications, err := h.notifLister.List(ctx, ports.ListNotificationsParams{
		ViewerID:   session.UserID,
		ViewerRole: session.Role,
		Broadcast:  session.Role == domain.RoleAdmin,
	})
	if err != nil {
		h.logger.Error("failed to load notifications for pull",
			"user_id", session.UserID,
			"error", err,
		)
		return
	}

	session.trySend(domain.NewNotificationsSnapshotEvent(notifications))
}

// SessionCount returns the total number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

// IsUserJoined reports whether the user's room currently has any sessions.
func (h *Hub) IsUserJoined(userID uuid.UUID) bool {
	return h.registry.SessionCount(UserRoom(userID)) > 0
}
