package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
)

const (
	MaxTitleLength = 255
	MaxBodyLength  = 4000
)

// Category is the closed set of notification categories. The UI uses it to
// pick an icon and format, and emitters use it to decide routing (user room
// vs admin group).
type Category string

const (
	CategoryTrainerApplication Category = "trainer_application"
	CategoryTrainerApproved    Category = "trainer_approved"
	CategoryTrainerRemoved     Category = "trainer_removed"
	CategoryOrderCreated       Category = "order_created"
	CategoryBookingConfirmed   Category = "booking_confirmed"
	CategorySystemAlert        Category = "system_alert"
)

// IsValid reports whether the category is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTrainerApplication, CategoryTrainerApproved, CategoryTrainerRemoved,
		CategoryOrderCreated, CategoryBookingConfirmed, CategorySystemAlert:
		return true
	}
	return false
}

// Notification is the persisted record of a delivered (or deliverable) event.
// Category and Payload are immutable after creation; only IsRead mutates.
type Notification struct {
	ID             uuid.UUID
	RecipientID    *uuid.UUID
	AdminBroadcast bool
	Category       Category
	Title          string
	Body           string
	Payload        map[string]any
	IsRead         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NotificationParams holds the input for creating a notification.
type NotificationParams struct {
	RecipientID    *uuid.UUID
	AdminBroadcast bool
	Category       Category
	Title          string
	Body           string
	Payload        map[string]any
}

// NewNotification is a factory function to create a valid new notification.
// A notification must address a concrete recipient or the admin group; it is
// never created unaddressed.
func NewNotification(params NotificationParams) (*Notification, error) {
	if params.RecipientID == nil && !params.AdminBroadcast {
		return nil, apperrors.ErrRecipientRequired
	}
	if !params.Category.IsValid() {
		return nil, apperrors.ErrInvalidCategory
	}
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(params.Body) > MaxBodyLength {
		return nil, apperrors.ErrBodyTooLong
	}

	now := time.Now().UTC()
	return &Notification{
		ID:             uuid.New(),
		RecipientID:    params.RecipientID,
		AdminBroadcast: params.AdminBroadcast,
		Category:       params.Category,
		Title:          params.Title,
		Body:           params.Body,
		Payload:        params.Payload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsOwnedBy reports whether the notification is addressed to the given user.
func (n *Notification) IsOwnedBy(userID uuid.UUID) bool {
	return n.RecipientID != nil && *n.RecipientID == userID
}

// MarkRead flips the read flag. Marking an already-read notification is a
// no-op rather than an error, so retries converge on the same end state.
func (n *Notification) MarkRead() bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.UpdatedAt = time.Now().UTC()
	return true
}
