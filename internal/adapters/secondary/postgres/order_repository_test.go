package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
)

func TestOrderRepository_Lifecycle(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	buyer := createTestUser(t, "buyer@example.com")

	order, err := domain.NewOrder(domain.OrderParams{
		UserID:     buyer.ID,
		Kind:       domain.OrderBooking,
		Item:       "PT Session",
		TotalCents: 7500,
	})
	require.NoError(t, err)

	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPlaced, created.Status)

	require.NoError(t, created.ConfirmBooking())
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, updated.Status)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)
	assert.Equal(t, int64(7500), got.TotalCents)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	truncateAll(t)
	repo := NewOrderRepository(testPool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}
