package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// TrainerService implements the trainer application workflow. Every state
// change persists a notification first and then publishes a best-effort push:
// the store write is the transaction, the push is only a hint to live clients.
type TrainerService struct {
	appRepo   ports.TrainerApplicationRepository
	userRepo  ports.UserRepository
	notifSvc  ports.NotificationService
	publisher ports.EventPublisher
	notifier  ports.Notifier
	wg        sync.WaitGroup
}

var _ ports.TrainerService = (*TrainerService)(nil)

// NewTrainerService creates a new trainer service
func NewTrainerService(
	appRepo ports.TrainerApplicationRepository,
	userRepo ports.UserRepository,
	notifSvc ports.NotificationService,
	publisher ports.EventPublisher,
	notifier ports.Notifier,
) *TrainerService {
	return &TrainerService{
		appRepo:   appRepo,
		userRepo:  userRepo,
		notifSvc:  notifSvc,
		publisher: publisher,
		notifier:  notifier,
	}
}

// Apply submits a trainer application for the given member and notifies the
// admin group.
func (s *TrainerService) Apply(ctx context.Context, applicantID uuid.UUID) (*domain.TrainerApplication, error) {
	applicant, err := s.userRepo.GetByID(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	// One pending application per member at a time.
	if _, err := s.appRepo.GetPendingByApplicant(ctx, applicantID); err == nil {
		return nil, apperrors.ErrApplicationPending
	} else if !errors.Is(err, apperrors.ErrApplicationNotFound) {
		return nil, err
	}

	application, err := s.appRepo.Create(ctx, domain.NewTrainerApplication(applicantID))
	if err != nil {
		return nil, err
	}

	notification, err := s.notifSvc.Create(ctx, ports.CreateNotificationParams{
		AdminBroadcast: true,
		Category:       domain.CategoryTrainerApplication,
		Title:          "New Trainer Application",
		Body:           fmt.Sprintf("%s has applied to become a trainer.", applicant.FullName),
		Payload: map[string]any{
			"applicationId": application.ID.String(),
			"applicantId":   applicant.ID.String(),
			"applicantName": applicant.FullName,
		},
	})
	if err != nil {
		return nil, err
	}

	s.publishAsync(func() {
		s.publisher.EmitToAdmins(domain.NewNotificationEvent(notification))
		s.publisher.EmitToAdmins(domain.NewTrainerApplicationEvent(application.ID, applicant.ID, applicant.FullName))
	})

	return application, nil
}

// Approve accepts a pending application, promotes the applicant to trainer,
// and notifies them.
func (s *TrainerService) Approve(ctx context.Context, actorRole domain.Role, applicationID uuid.UUID) (*domain.TrainerApplication, error) {
	if actorRole != domain.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}

	application, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := application.Approve(); err != nil {
		return nil, err
	}

	updated, err := s.appRepo.Update(ctx, application)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateRole(ctx, application.ApplicantID, domain.RoleTrainer); err != nil {
		return nil, err
	}

	s.notifyDecision(ctx, updated, domain.CategoryTrainerApproved,
		"Trainer Application Approved",
		"Congratulations! Your trainer application has been approved.")

	return updated, nil
}

// Remove rejects a pending application or revokes an approved trainer, and
// notifies the affected user.
func (s *TrainerService) Remove(ctx context.Context, actorRole domain.Role, applicationID uuid.UUID) (*domain.TrainerApplication, error) {
	if actorRole != domain.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}

	application, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	wasApproved := application.Status == domain.ApplicationApproved

	if err := application.Remove(); err != nil {
		return nil, err
	}

	updated, err := s.appRepo.Update(ctx, application)
	if err != nil {
		return nil, err
	}

	if wasApproved {
		if err := s.userRepo.UpdateRole(ctx, application.ApplicantID, domain.RoleMember); err != nil {
			return nil, err
		}
	}

	s.notifyDecision(ctx, updated, domain.CategoryTrainerRemoved,
		"Trainer Status Removed",
		"Your trainer status has been removed.")

	return updated, nil
}

// notifyDecision persists the per-user notification for a decision, then
// pushes and emails asynchronously. The push and the email are independent
// failure domains; neither affects the completed domain action.
func (s *TrainerService) notifyDecision(ctx context.Context, app *domain.TrainerApplication, category domain.Category, title, body string) {
	notification, err := s.notifSvc.Create(ctx, ports.CreateNotificationParams{
		RecipientID: &app.ApplicantID,
		Category:    category,
		Title:       title,
		Body:        body,
		Payload:     map[string]any{"applicationId": app.ID.String()},
	})
	if err != nil {
		// The domain action already succeeded; the recipient reconciles via pull.
		return
	}

	s.publishAsync(func() {
		s.publisher.EmitToUser(app.ApplicantID, domain.NewNotificationEvent(notification))
		s.notifier.Notify(context.Background(), ports.EmailParams{
			RecipientUserID: app.ApplicantID,
			Subject:         title,
			Message:         body,
		})
	})
}

func (s *TrainerService) publishAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Shutdown waits for in-flight pushes to drain.
func (s *TrainerService) Shutdown() {
	s.wg.Wait()
}
