package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
	"github.com/pulsefit/pulsefit-backend/internal/core/mocks"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
	"github.com/pulsefit/pulsefit-backend/internal/core/services"
)

func TestNotificationService_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success for a concrete recipient", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		mockPublisher := mocks.NewMockEventPublisher()

		svc := services.NewNotificationService(mockRepo, mockPublisher)

		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(&domain.Notification{
				ID:          uuid.New(),
				RecipientID: &userID,
				Category:    domain.CategoryBookingConfirmed,
				Title:       "Booking Confirmed",
			}, nil)

		notification, err := svc.Create(ctx, ports.CreateNotificationParams{
			RecipientID: &userID,
			Category:    domain.CategoryBookingConfirmed,
			Title:       "Booking Confirmed",
			Body:        "Your booking has been confirmed.",
		})

		require.NoError(t, err)
		assert.NotNil(t, notification)
		mockRepo.AssertExpectations(t)
		// Creating a record never pushes; emitters publish separately.
		mockPublisher.AssertNotCalled(t, "EmitToUser", mock.Anything, mock.Anything)
	})

	t.Run("rejected without recipient or broadcast flag", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		mockPublisher := mocks.NewMockEventPublisher()

		svc := services.NewNotificationService(mockRepo, mockPublisher)

		notification, err := svc.Create(ctx, ports.CreateNotificationParams{
			Category: domain.CategorySystemAlert,
			Title:    "Unaddressed",
		})

		assert.Nil(t, notification)
		assert.ErrorIs(t, err, apperrors.ErrRecipientRequired)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("rejected for unknown category", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		mockPublisher := mocks.NewMockEventPublisher()

		svc := services.NewNotificationService(mockRepo, mockPublisher)

		notification, err := svc.Create(ctx, ports.CreateNotificationParams{
			RecipientID: &userID,
			Category:    domain.Category("password_expired"),
			Title:       "Nope",
		})

		assert.Nil(t, notification)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestNotificationService_List(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("scopes to the viewer by default", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		expected := []*domain.Notification{{ID: uuid.New(), RecipientID: &userID}}
		mockRepo.On("List", ctx, mock.MatchedBy(func(f ports.NotificationFilter) bool {
			return f.RecipientID != nil && *f.RecipientID == userID && !f.AdminBroadcast
		})).Return(expected, nil)

		notifications, err := svc.List(ctx, ports.ListNotificationsParams{
			ViewerID:   userID,
			ViewerRole: domain.RoleMember,
		})

		require.NoError(t, err)
		assert.Len(t, notifications, 1)
	})

	t.Run("broadcast feed requires admin role", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		notifications, err := svc.List(ctx, ports.ListNotificationsParams{
			ViewerID:   userID,
			ViewerRole: domain.RoleMember,
			Broadcast:  true,
		})

		assert.Nil(t, notifications)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "List")
	})

	t.Run("admin reads the broadcast feed", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		mockRepo.On("List", ctx, mock.MatchedBy(func(f ports.NotificationFilter) bool {
			return f.AdminBroadcast && f.RecipientID == nil && f.UnreadOnly
		})).Return([]*domain.Notification{}, nil)

		_, err := svc.List(ctx, ports.ListNotificationsParams{
			ViewerID:   userID,
			ViewerRole: domain.RoleAdmin,
			Broadcast:  true,
			UnreadOnly: true,
		})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		mockRepo.On("List", ctx, mock.MatchedBy(func(f ports.NotificationFilter) bool {
			return f.Limit == 200
		})).Return([]*domain.Notification{}, nil)

		_, err := svc.List(ctx, ports.ListNotificationsParams{
			ViewerID:   userID,
			ViewerRole: domain.RoleMember,
			Limit:      5000,
		})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestNotificationService_MarkRead(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	t.Run("scopes to the viewer", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		mockRepo.On("MarkRead", ctx, ids, &userID).Return(int64(2), nil)

		count, err := svc.MarkRead(ctx, ports.MarkReadParams{
			ViewerID:   userID,
			ViewerRole: domain.RoleMember,
			IDs:        ids,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("empty id set is a no-op", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		count, err := svc.MarkRead(ctx, ports.MarkReadParams{
			ViewerID:   userID,
			ViewerRole: domain.RoleMember,
		})

		require.NoError(t, err)
		assert.Zero(t, count)
		mockRepo.AssertNotCalled(t, "MarkRead")
	})

	t.Run("broadcast marking requires admin", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		_, err := svc.MarkRead(ctx, ports.MarkReadParams{
			ViewerID:   userID,
			ViewerRole: domain.RoleMember,
			IDs:        ids,
			Broadcast:  true,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "MarkRead")
	})
}

func TestNotificationService_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("admin deletes", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		mockRepo.On("Delete", ctx, id).Return(nil)

		require.NoError(t, svc.Delete(ctx, domain.RoleAdmin, id))
		mockRepo.AssertExpectations(t)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		err := svc.Delete(ctx, domain.RoleMember, id)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Delete")
	})

	t.Run("missing record surfaces not found", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		mockRepo.On("Delete", ctx, id).Return(apperrors.ErrNotificationNotFound)

		err := svc.Delete(ctx, domain.RoleAdmin, id)

		assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
	})
}

func TestNotificationService_BroadcastSystemAlert(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("persists then pushes to everyone", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		mockPublisher := mocks.NewMockEventPublisher()

		svc := services.NewNotificationService(mockRepo, mockPublisher)

		stored := &domain.Notification{
			ID:             uuid.New(),
			AdminBroadcast: true,
			Category:       domain.CategorySystemAlert,
			Title:          "Maintenance Window",
		}
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(stored, nil)
		mockPublisher.On("EmitToAll", mock.Anything).Return()

		notification, err := svc.BroadcastSystemAlert(ctx, ports.SystemAlertParams{
			ActorID:   adminID,
			ActorRole: domain.RoleAdmin,
			Title:     "Maintenance Window",
			Body:      "The site will be down at midnight.",
		})

		require.NoError(t, err)
		assert.Equal(t, stored, notification)

		svc.Shutdown()
		mockPublisher.AssertCalled(t, "EmitToAll", mock.MatchedBy(func(e domain.Event) bool {
			return e.Name == domain.EventNewNotification
		}))
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		mockRepo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(mockRepo, mocks.NewMockEventPublisher())

		_, err := svc.BroadcastSystemAlert(ctx, ports.SystemAlertParams{
			ActorID:   adminID,
			ActorRole: domain.RoleTrainer,
			Title:     "Nope",
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Create")
	})
}
