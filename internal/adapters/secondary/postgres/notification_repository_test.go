package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// createTestUser inserts a user row and returns it.
func createTestUser(t *testing.T, email string) *domain.User {
	t.Helper()
	repo := NewUserRepository(testPool)

	user, err := domain.NewUser(domain.UserRegistrationParams{
		FullName: "Test User",
		Email:    email,
		Password: "Str0ngPass",
	}, domain.RoleMember)
	require.NoError(t, err)

	created, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	return created
}

func createTestNotification(t *testing.T, recipientID *uuid.UUID, broadcast bool, title string) *domain.Notification {
	t.Helper()
	repo := NewNotificationRepository(testPool)

	n, err := domain.NewNotification(domain.NotificationParams{
		RecipientID:    recipientID,
		AdminBroadcast: broadcast,
		Category:       domain.CategorySystemAlert,
		Title:          title,
		Body:           "body of " + title,
		Payload:        map[string]any{"source": "test"},
	})
	require.NoError(t, err)

	created, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	return created
}

func TestNotificationRepository_CreateAndGet(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)

	user := createTestUser(t, "recipient@example.com")
	created := createTestNotification(t, &user.ID, false, "Hello")

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.RecipientID)
	assert.Equal(t, user.ID, *got.RecipientID)
	assert.Equal(t, domain.CategorySystemAlert, got.Category)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, map[string]any{"source": "test"}, got.Payload)
	assert.False(t, got.IsRead)
}

func TestNotificationRepository_GetByID_NotFound(t *testing.T) {
	truncateAll(t)
	repo := NewNotificationRepository(testPool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
}

func TestNotificationRepository_List(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)

	alice := createTestUser(t, "alice@example.com")
	bob := createTestUser(t, "bob@example.com")

	// Stagger creation so ordering is deterministic.
	first := createTestNotification(t, &alice.ID, false, "first")
	time.Sleep(5 * time.Millisecond)
	second := createTestNotification(t, &alice.ID, false, "second")
	createTestNotification(t, &bob.ID, false, "bobs")
	broadcast := createTestNotification(t, nil, true, "for admins")

	t.Run("newest first, scoped to recipient", func(t *testing.T) {
		got, err := repo.List(ctx, ports.NotificationFilter{RecipientID: &alice.ID})
		require.NoError(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, second.ID, got[0].ID)
		assert.Equal(t, first.ID, got[1].ID)
	})

	t.Run("broadcast feed excludes per-user rows", func(t *testing.T) {
		got, err := repo.List(ctx, ports.NotificationFilter{AdminBroadcast: true})
		require.NoError(t, err)

		require.Len(t, got, 1)
		assert.Equal(t, broadcast.ID, got[0].ID)
	})

	t.Run("unread only", func(t *testing.T) {
		_, err := repo.MarkRead(ctx, []uuid.UUID{second.ID}, &alice.ID)
		require.NoError(t, err)

		got, err := repo.List(ctx, ports.NotificationFilter{RecipientID: &alice.ID, UnreadOnly: true})
		require.NoError(t, err)

		require.Len(t, got, 1)
		assert.Equal(t, first.ID, got[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := repo.List(ctx, ports.NotificationFilter{RecipientID: &alice.ID, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("unscoped filter matches nothing", func(t *testing.T) {
		got, err := repo.List(ctx, ports.NotificationFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)

	alice := createTestUser(t, "alice@example.com")
	bob := createTestUser(t, "bob@example.com")

	mine := createTestNotification(t, &alice.ID, false, "mine")
	theirs := createTestNotification(t, &bob.ID, false, "theirs")

	t.Run("only the recipient's rows transition", func(t *testing.T) {
		count, err := repo.MarkRead(ctx, []uuid.UUID{mine.ID, theirs.ID}, &alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := repo.GetByID(ctx, theirs.ID)
		require.NoError(t, err)
		assert.False(t, got.IsRead, "another user's row must not be touched")
	})

	t.Run("repeat marking counts zero", func(t *testing.T) {
		count, err := repo.MarkRead(ctx, []uuid.UUID{mine.ID}, &alice.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		got, err := repo.GetByID(ctx, mine.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead)
	})

	t.Run("nil recipient scopes to broadcasts", func(t *testing.T) {
		broadcast := createTestNotification(t, nil, true, "for admins")

		count, err := repo.MarkRead(ctx, []uuid.UUID{broadcast.ID, theirs.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)

	alice := createTestUser(t, "alice@example.com")
	createTestNotification(t, &alice.ID, false, "one")
	createTestNotification(t, &alice.ID, false, "two")

	count, err := repo.MarkAllRead(ctx, &alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.MarkAllRead(ctx, &alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationRepository_Delete(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)

	alice := createTestUser(t, "alice@example.com")
	n := createTestNotification(t, &alice.ID, false, "doomed")

	require.NoError(t, repo.Delete(ctx, n.ID))

	_, err := repo.GetByID(ctx, n.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)

	err = repo.Delete(ctx, n.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
}
