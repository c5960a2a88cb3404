package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulsefit/pulsefit-backend/internal/adapters/primary/validation"
	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// TrainerHandler handles HTTP requests for the trainer application workflow
type TrainerHandler struct {
	trainerService ports.TrainerService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewTrainerHandler creates a new trainer handler
func NewTrainerHandler(
	trainerService ports.TrainerService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TrainerHandler {
	return &TrainerHandler{
		trainerService: trainerService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "trainer"),
	}
}

// Router sets up a new chi Router for all trainer application routes.
func (h *TrainerHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for the trainer application endpoints.
func (h *TrainerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/applications", h.HandleApply)
	r.Post("/applications/{applicationID}/approve", h.HandleApprove)
	r.Post("/applications/{applicationID}/remove", h.HandleRemove)
}

// --- Response DTOs ---

// TrainerApplicationDTO is the JSON representation of a trainer application
type TrainerApplicationDTO struct {
	ID          string  `json:"id"`
	ApplicantID string  `json:"applicantId"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	DecidedAt   *string `json:"decidedAt,omitempty"`
}

func toTrainerApplicationDTO(a *domain.TrainerApplication) TrainerApplicationDTO {
	dto := TrainerApplicationDTO{
		ID:          a.ID.String(),
		ApplicantID: a.ApplicantID.String(),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
	if a.DecidedAt != nil {
		decided := a.DecidedAt.Format(time.RFC3339)
		dto.DecidedAt = &decided
	}
	return dto
}

// --- Handlers ---

// HandleApply handles POST /trainers/applications
func (h *TrainerHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	application, err := h.trainerService.Apply(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("trainer application submitted",
		"application_id", application.ID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toTrainerApplicationDTO(application))
}

// HandleApprove handles POST /trainers/applications/{applicationID}/approve
func (h *TrainerHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	applicationID, err := h.parseApplicationID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	application, err := h.trainerService.Approve(r.Context(), claims.Role, applicationID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("trainer application approved",
		"application_id", application.ID,
		"admin_id", claims.UserID,
	)

	WriteSuccess(w, toTrainerApplicationDTO(application))
}

// HandleRemove handles POST /trainers/applications/{applicationID}/remove
func (h *TrainerHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	applicationID, err := h.parseApplicationID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	application, err := h.trainerService.Remove(r.Context(), claims.Role, applicationID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("trainer removed",
		"application_id", application.ID,
		"admin_id", claims.UserID,
	)

	WriteSuccess(w, toTrainerApplicationDTO(application))
}

// parseApplicationID extracts and validates the application ID from the URL
func (h *TrainerHandler) parseApplicationID(r *http.Request) (uuid.UUID, error) {
	applicationID, err := uuid.Parse(chi.URLParam(r, "applicationID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("applicationID", false, "Must be a valid UUID")
		return uuid.Nil, v.Errors()
	}
	return applicationID, nil
}
