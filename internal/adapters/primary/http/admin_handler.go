package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsefit/pulsefit-backend/internal/adapters/primary/validation"
	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// AdminHandler handles HTTP requests for admin-only operations
type AdminHandler struct {
	notifService ports.NotificationService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	notifService ports.NotificationService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		notifService: notifService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "admin"),
	}
}

// Router sets up a new chi Router for all admin routes.
func (h *AdminHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for the admin endpoints.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/alerts", h.HandleBroadcastAlert)
}

// --- Request DTOs ---

// BroadcastAlertRequest defines the expected JSON body for a system alert
type BroadcastAlertRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Validate validates the broadcast alert request
func (r *BroadcastAlertRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)

	v.MaxLength("body", r.Body, domain.MaxBodyLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleBroadcastAlert handles POST /admin/alerts
func (h *AdminHandler) HandleBroadcastAlert(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[BroadcastAlertRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	notification, err := h.notifService.BroadcastSystemAlert(r.Context(), ports.SystemAlertParams{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		Title:     req.Title,
		Body:      req.Body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("system alert broadcast",
		"notification_id", notification.ID,
		"admin_id", claims.UserID,
	)

	WriteCreated(w, toNotificationDTO(notification))
}
