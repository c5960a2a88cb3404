package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventName identifies a real-time event pushed server -> client.
type EventName string

const (
	EventNewNotification       EventName = "new-notification"
	EventCartUpdated           EventName = "cart-updated"
	EventNewTrainerApplication EventName = "new-trainer-application"
	EventNotificationsSnapshot EventName = "notifications"
	EventRoomsJoined           EventName = "rooms-joined"
)

// Event is the envelope sent over the websocket. The wire format is a generic
// name+payload pair; each emitter produces a statically known payload shape.
type Event struct {
	Name    EventName   `json:"event"`
	Payload interface{} `json:"payload"`
}

// NotificationPayload is the push payload mirroring a persisted notification.
type NotificationPayload struct {
	ID             uuid.UUID      `json:"id"`
	RecipientID    *uuid.UUID     `json:"recipientId,omitempty"`
	AdminBroadcast bool           `json:"adminBroadcast"`
	Category       Category       `json:"category"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      string         `json:"createdAt"`
}

// TrainerApplicationPayload is pushed to the admin group when a member applies.
type TrainerApplicationPayload struct {
	ApplicationID uuid.UUID `json:"applicationId"`
	ApplicantID   uuid.UUID `json:"applicantId"`
	ApplicantName string    `json:"applicantName"`
}

// CartPayload is relayed between a user's own sessions on cart changes.
type CartPayload struct {
	Items []CartItem `json:"items"`
}

// CartItem is a single line in a cart payload.
type CartItem struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitCents int64     `json:"unitCents"`
}

// RoomsJoinedPayload acknowledges room membership after a join control event.
type RoomsJoinedPayload struct {
	Rooms []string `json:"rooms"`
}

// NewNotificationEvent wraps a persisted notification for pushing.
func NewNotificationEvent(n *Notification) Event {
	return Event{Name: EventNewNotification, Payload: toNotificationPayload(n)}
}

// NewTrainerApplicationEvent builds the admin-group push for a new application.
func NewTrainerApplicationEvent(applicationID, applicantID uuid.UUID, applicantName string) Event {
	return Event{
		Name: EventNewTrainerApplication,
		Payload: TrainerApplicationPayload{
			ApplicationID: applicationID,
			ApplicantID:   applicantID,
			ApplicantName: applicantName,
		},
	}
}

// NewCartUpdatedEvent wraps a cart snapshot for relaying to sibling sessions.
func NewCartUpdatedEvent(cart CartPayload) Event {
	return Event{Name: EventCartUpdated, Payload: cart}
}

// NewNotificationsSnapshotEvent wraps a list pull result for a single session.
func NewNotificationsSnapshotEvent(notifications []*Notification) Event {
	payloads := make([]NotificationPayload, 0, len(notifications))
	for _, n := range notifications {
		payloads = append(payloads, toNotificationPayload(n))
	}
	return Event{Name: EventNotificationsSnapshot, Payload: payloads}
}

func toNotificationPayload(n *Notification) NotificationPayload {
	return NotificationPayload{
		ID:             n.ID,
		RecipientID:    n.RecipientID,
		AdminBroadcast: n.AdminBroadcast,
		Category:       n.Category,
		Title:          n.Title,
		Body:           n.Body,
		Payload:        n.Payload,
		CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339),
	}
}
