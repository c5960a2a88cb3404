package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Control event names sent client -> server.
const (
	controlJoinUserRoom     = "join-user-room"
	controlJoinAdminRoom    = "join-admin-room"
	controlUpdateCart       = "update-cart"
	controlGetNotifications = "get-notifications"
)

// Session is a middleman between one websocket connection and the hub. A
// browser tab maps to exactly one session; a user with three tabs has three.
type Session struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound events.
	Send chan domain.Event

	// Identity from the verified handshake token.
	UserID uuid.UUID
	Role   domain.Role

	// rooms the session has joined.
	rooms map[string]bool

	// sendMu and sendClosed serialize queueing against CloseSend. Emitters
	// snapshot sessions before sending, so a disconnect can land in between;
	// the flag turns that send into a drop instead of a panic.
	sendMu     sync.RWMutex
	sendClosed bool

	// mu protects the rooms map
	mu sync.RWMutex

	// logger for this session
	logger *slog.Logger
}

// NewSession creates a session for an authenticated connection.
func NewSession(hub *Hub, conn *websocket.Conn, userID uuid.UUID, role domain.Role, logger *slog.Logger) *Session {
	return &Session{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan domain.Event, 256),
		UserID: userID,
		Role:   role,
		rooms:  make(map[string]bool),
		logger: logger.With("user_id", userID.String()),
	}
}

// CloseSend closes the Send channel exactly once. It takes the write half of
// sendMu so no trySend can be mid-queue when the channel closes.
func (s *Session) CloseSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return
	}
	s.sendClosed = true
	close(s.Send)
}

func (s *Session) addRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = true
}

func (s *Session) removeRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

// InRoom reports whether the session has joined the given room.
func (s *Session) InRoom(room string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[room]
}

// Rooms returns a copy of the rooms the session has joined.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (s *Session) ReadPump() {
	defer func() {
		s.Hub.Unregister <- s
		_ = s.Conn.Close()
	}()

	s.Conn.SetReadLimit(maxMessageSize)
	if err := s.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error("failed to set read deadline", "error", err)
		return
	}

	s.Conn.SetPongHandler(func(string) error {
		if err := s.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			s.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		s.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the hub to the websocket connection.
// This method runs in its own goroutine.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.Send:
			if err := s.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := s.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					s.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := s.writeJSON(event); err != nil {
				s.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := s.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (s *Session) writeJSON(event domain.Event) error {
	w, err := s.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for control events sent from the client. It
// shares the wire envelope with server-pushed events.
type ClientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// joinRoomPayload optionally names the user whose room to join. The verified
// token decides the target regardless; a mismatching id is rejected.
type joinRoomPayload struct {
	UserID string `json:"userId"`
}

// handleIncomingMessage processes control events received from the client
func (s *Session) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Event {
	case controlJoinUserRoom:
		s.handleJoinUserRoom(msg.Payload)

	case controlJoinAdminRoom:
		s.handleJoinAdminRoom()

	case controlUpdateCart:
		s.handleUpdateCart(msg.Payload)

	case controlGetNotifications:
		s.handleGetNotifications()

	default:
		s.logger.Debug("received unknown control event", "event", msg.Event)
	}
}

// handleJoinUserRoom joins the session to its own user room. The room is
// always the one named by the token claims; a client cannot join another
// user's room by naming it.
func (s *Session) handleJoinUserRoom(payload json.RawMessage) {
	if len(payload) > 0 {
		var p joinRoomPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			s.logger.Warn("failed to unmarshal join payload", "error", err)
			return
		}
		if p.UserID != "" && p.UserID != s.UserID.String() {
			s.logger.Warn("rejected join for foreign user room", "requested", p.UserID)
			return
		}
	}

	s.Hub.registry.Join(UserRoom(s.UserID), s)
	s.sendRoomsJoined()
}

// handleJoinAdminRoom joins the session to the shared admin room after a role
// check against the token claims.
func (s *Session) handleJoinAdminRoom() {
	if s.Role != domain.RoleAdmin {
		s.logger.Warn("rejected admin room join for non-admin")
		return
	}

	s.Hub.registry.Join(AdminRoom, s)
	s.sendRoomsJoined()
}

// handleUpdateCart relays a cart snapshot to the user's other sessions so
// every open tab converges on the same cart.
func (s *Session) handleUpdateCart(payload json.RawMessage) {
	var cart domain.CartPayload
	if err := json.Unmarshal(payload, &cart); err != nil {
		s.logger.Warn("failed to unmarshal cart payload", "error", err)
		return
	}

	s.Hub.relayToSiblings(s, domain.NewCartUpdatedEvent(cart))
}

// handleGetNotifications answers a pull request with a snapshot of the
// caller's notifications, sent only to the requesting session.
func (s *Session) handleGetNotifications() {
	s.Hub.sendSnapshot(s)
}

func (s *Session) sendRoomsJoined() {
	s.trySend(domain.Event{
		Name:    domain.EventRoomsJoined,
		Payload: domain.RoomsJoinedPayload{Rooms: s.Rooms()},
	})
}

// trySend queues an event without blocking. A full buffer or an already
// closed session drops the event; the client converges through its next pull.
func (s *Session) trySend(event domain.Event) {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	if s.sendClosed {
		s.logger.Debug("dropping event for closed session", "event", event.Name)
		return
	}

	select {
	case s.Send <- event:
	default:
		s.logger.Warn("session send buffer full, dropping event", "event", event.Name)
	}
}
