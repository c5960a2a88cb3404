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

func TestTrainerApplicationRepository_Lifecycle(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewTrainerApplicationRepository(testPool)

	applicant := createTestUser(t, "applicant@example.com")

	created, err := repo.Create(ctx, domain.NewTrainerApplication(applicant.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, created.Status)
	assert.Nil(t, created.DecidedAt)

	pending, err := repo.GetPendingByApplicant(ctx, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, pending.ID)

	require.NoError(t, pending.Approve())
	updated, err := repo.Update(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, updated.Status)
	require.NotNil(t, updated.DecidedAt)

	// No pending application remains after the decision.
	_, err = repo.GetPendingByApplicant(ctx, applicant.ID)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
}

func TestTrainerApplicationRepository_PendingUniqueness(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewTrainerApplicationRepository(testPool)

	applicant := createTestUser(t, "eager@example.com")

	_, err := repo.Create(ctx, domain.NewTrainerApplication(applicant.ID))
	require.NoError(t, err)

	// The partial unique index backstops the service-level check.
	_, err = repo.Create(ctx, domain.NewTrainerApplication(applicant.ID))
	assert.Error(t, err)
}

func TestTrainerApplicationRepository_GetByID_NotFound(t *testing.T) {
	truncateAll(t)
	repo := NewTrainerApplicationRepository(testPool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
}
