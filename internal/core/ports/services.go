package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, fullName, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// CreateNotificationParams defines the input for persisting a notification.
type CreateNotificationParams struct {
	RecipientID    *uuid.UUID
	AdminBroadcast bool
	Category       domain.Category
	Title          string
	Body           string
	Payload        map[string]any
}

// ListNotificationsParams defines the input for listing notifications.
type ListNotificationsParams struct {
	ViewerID   uuid.UUID
	ViewerRole domain.Role
	// Broadcast selects the admin broadcast feed instead of the viewer's own.
	Broadcast  bool
	UnreadOnly bool
	Limit      int
}

// MarkReadParams defines the input for marking notifications read.
type MarkReadParams struct {
	ViewerID   uuid.UUID
	ViewerRole domain.Role
	IDs        []uuid.UUID
	Broadcast  bool
}

// SystemAlertParams defines the input for broadcasting a system alert.
type SystemAlertParams struct {
	ActorID   uuid.UUID
	ActorRole domain.Role
	Title     string
	Body      string
}

// NotificationService defines the core operations over the notification log.
type NotificationService interface {
	Create(ctx context.Context, params CreateNotificationParams) (*domain.Notification, error)
	List(ctx context.Context, params ListNotificationsParams) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, params MarkReadParams) (int64, error)
	MarkAllRead(ctx context.Context, viewerID uuid.UUID, viewerRole domain.Role, broadcast bool) (int64, error)
	Delete(ctx context.Context, actorRole domain.Role, id uuid.UUID) error
	BroadcastSystemAlert(ctx context.Context, params SystemAlertParams) (*domain.Notification, error)
}

// NotificationLister is the narrow read port the fan-out layer uses to answer
// an explicit pull from a connected session.
type NotificationLister interface {
	List(ctx context.Context, params ListNotificationsParams) ([]*domain.Notification, error)
}

// TrainerService defines the trainer application workflow.
type TrainerService interface {
	Apply(ctx context.Context, applicantID uuid.UUID) (*domain.TrainerApplication, error)
	Approve(ctx context.Context, actorRole domain.Role, applicationID uuid.UUID) (*domain.TrainerApplication, error)
	Remove(ctx context.Context, actorRole domain.Role, applicationID uuid.UUID) (*domain.TrainerApplication, error)
}

// PlaceOrderParams defines the input for placing an order or booking.
type PlaceOrderParams struct {
	UserID     uuid.UUID
	Kind       domain.OrderKind
	Item       string
	TotalCents int64
}

// OrderService defines order and booking operations.
type OrderService interface {
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*domain.Order, error)
	ConfirmBooking(ctx context.Context, actorRole domain.Role, orderID uuid.UUID) (*domain.Order, error)
}

// EventPublisher is the port emitters use to push real-time events. Pushes are
// best-effort: zero live sessions is a silent no-op and no method returns an
// error, so a failed push can never fail a business transaction.
type EventPublisher interface {
	EmitToUser(userID uuid.UUID, event domain.Event)
	EmitToAdmins(event domain.Event)
	EmitToAll(event domain.Event)
}

// EmailParams defines the input for sending an email notification.
type EmailParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
}

// Notifier defines the port for sending asynchronous email notifications.
type Notifier interface {
	Notify(ctx context.Context, params EmailParams)
}
