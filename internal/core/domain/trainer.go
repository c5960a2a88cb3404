package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
)

// ApplicationStatus represents the state of a trainer application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRemoved  ApplicationStatus = "removed"
)

// TrainerApplication is a member's request to become a trainer.
type TrainerApplication struct {
	ID          uuid.UUID
	ApplicantID uuid.UUID
	Status      ApplicationStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time
}

// NewTrainerApplication creates a pending application for the given member.
func NewTrainerApplication(applicantID uuid.UUID) *TrainerApplication {
	return &TrainerApplication{
		ID:          uuid.New(),
		ApplicantID: applicantID,
		Status:      ApplicationPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Approve transitions a pending application to approved.
func (a *TrainerApplication) Approve() error {
	if a.Status != ApplicationPending {
		return apperrors.ErrApplicationDecided
	}
	a.Status = ApplicationApproved
	now := time.Now().UTC()
	a.DecidedAt = &now
	return nil
}

// Remove marks an approved application's trainer as removed. A pending
// application can also be removed outright (a rejection).
func (a *TrainerApplication) Remove() error {
	if a.Status == ApplicationRemoved {
		return apperrors.ErrApplicationDecided
	}
	a.Status = ApplicationRemoved
	now := time.Now().UTC()
	a.DecidedAt = &now
	return nil
}
