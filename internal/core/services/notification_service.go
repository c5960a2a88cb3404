package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// NotificationService implements the durable notification log. It owns all
// reads and writes against the store; pushing to live sessions is the
// publisher's job and is always best-effort.
type NotificationService struct {
	notifRepo ports.NotificationRepository
	publisher ports.EventPublisher
	wg        sync.WaitGroup
}

var _ ports.NotificationService = (*NotificationService)(nil)

// NewNotificationService creates a new notification service
func NewNotificationService(
	notifRepo ports.NotificationRepository,
	publisher ports.EventPublisher,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		publisher: publisher,
	}
}

// Create validates and persists a notification record. No push happens here;
// emitters publish separately so a failed push can never lose the record.
func (s *NotificationService) Create(ctx context.Context, params ports.CreateNotificationParams) (*domain.Notification, error) {
	notification, err := domain.NewNotification(domain.NotificationParams{
		RecipientID:    params.RecipientID,
		AdminBroadcast: params.AdminBroadcast,
		Category:       params.Category,
		Title:          params.Title,
		Body:           params.Body,
		Payload:        params.Payload,
	})
	if err != nil {
		return nil, err
	}

	return s.notifRepo.Create(ctx, notification)
}

// List returns notifications newest first, scoped to the viewer. The broadcast
// feed is admin-only.
func (s *NotificationService) List(ctx context.Context, params ports.ListNotificationsParams) ([]*domain.Notification, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	filter := ports.NotificationFilter{
		UnreadOnly: params.UnreadOnly,
		Limit:      limit,
	}

	if params.Broadcast {
		if params.ViewerRole != domain.RoleAdmin {
			return nil, apperrors.ErrForbidden
		}
		filter.AdminBroadcast = true
	} else {
		viewerID := params.ViewerID
		filter.RecipientID = &viewerID
	}

	return s.notifRepo.List(ctx, filter)
}

// MarkRead marks the given notifications read for the viewer. Marking an
// already-read notification again is a no-op; the count reflects rows that
// actually changed.
func (s *NotificationService) MarkRead(ctx context.Context, params ports.MarkReadParams) (int64, error) {
	if len(params.IDs) == 0 {
		return 0, nil
	}

	if params.Broadcast {
		if params.ViewerRole != domain.RoleAdmin {
			return 0, apperrors.ErrForbidden
		}
		return s.notifRepo.MarkRead(ctx, params.IDs, nil)
	}

	viewerID := params.ViewerID
	return s.notifRepo.MarkRead(ctx, params.IDs, &viewerID)
}

// MarkAllRead marks every unread notification in the viewer's scope read.
func (s *NotificationService) MarkAllRead(ctx context.Context, viewerID uuid.UUID, viewerRole domain.Role, broadcast bool) (int64, error) {
	if broadcast {
		if viewerRole != domain.RoleAdmin {
			return 0, apperrors.ErrForbidden
		}
		return s.notifRepo.MarkAllRead(ctx, nil)
	}

	return s.notifRepo.MarkAllRead(ctx, &viewerID)
}

// Delete removes a notification record. Admin-only; a concurrent delete
// surfaces as not found, never corruption.
func (s *NotificationService) Delete(ctx context.Context, actorRole domain.Role, id uuid.UUID) error {
	if actorRole != domain.RoleAdmin {
		return apperrors.ErrForbidden
	}
	return s.notifRepo.Delete(ctx, id)
}

// BroadcastSystemAlert persists an admin-broadcast alert and pushes it to
// every connected session. The record is written before any push is attempted.
func (s *NotificationService) BroadcastSystemAlert(ctx context.Context, params ports.SystemAlertParams) (*domain.Notification, error) {
	if params.ActorRole != domain.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}

	notification, err := s.Create(ctx, ports.CreateNotificationParams{
		AdminBroadcast: true,
		Category:       domain.CategorySystemAlert,
		Title:          params.Title,
		Body:           params.Body,
		Payload:        map[string]any{"issuedBy": params.ActorID.String()},
	})
	if err != nil {
		return nil, err
	}

	s.publishAsync(func() {
		s.publisher.EmitToAll(domain.NewNotificationEvent(notification))
	})

	return notification, nil
}

// publishAsync runs a push in the background so slow or dead sockets never
// delay the caller's transaction.
func (s *NotificationService) publishAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Shutdown waits for in-flight pushes to drain.
func (s *NotificationService) Shutdown() {
	s.wg.Wait()
}
