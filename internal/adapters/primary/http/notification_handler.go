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

const (
	defaultNotificationsLimit = 50
	maxNotificationsLimit     = 200
)

// NotificationHandler handles HTTP requests for the notification feed
type NotificationHandler struct {
	notifService ports.NotificationService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(
	notifService ports.NotificationService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "notification"),
	}
}

// Router sets up a new chi Router for all notification routes.
func (h *NotificationHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all notification endpoints.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListNotifications)
	r.Post("/read", h.HandleMarkRead)
	r.Post("/read-all", h.HandleMarkAllRead)
	r.Delete("/{notificationID}", h.HandleDeleteNotification)
}

// --- Request/Response DTOs ---

// MarkReadRequest defines the expected JSON body for marking notifications read
type MarkReadRequest struct {
	IDs       []string `json:"ids"`
	Broadcast bool     `json:"broadcast"`
}

// Validate validates the mark read request
func (r *MarkReadRequest) Validate() error {
	v := validation.NewValidator()

	for _, id := range r.IDs {
		v.UUID("ids", id)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// NotificationDTO is the JSON representation of a notification
type NotificationDTO struct {
	ID             string         `json:"id"`
	RecipientID    *string        `json:"recipientId,omitempty"`
	AdminBroadcast bool           `json:"adminBroadcast"`
	Category       string         `json:"category"`
	Title          string         `json:"title"`
	Body           string         `json:"body,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	IsRead         bool           `json:"isRead"`
	CreatedAt      string         `json:"createdAt"`
}

// MarkReadResponse reports how many notifications actually transitioned
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

func toNotificationDTO(n *domain.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:             n.ID.String(),
		AdminBroadcast: n.AdminBroadcast,
		Category:       string(n.Category),
		Title:          n.Title,
		Body:           n.Body,
		Payload:        n.Payload,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
	if n.RecipientID != nil {
		id := n.RecipientID.String()
		dto.RecipientID = &id
	}
	return dto
}

func toNotificationDTOs(notifications []*domain.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = toNotificationDTO(n)
	}
	return dtos
}

// --- Handlers ---

// HandleListNotifications handles GET /notifications
func (h *NotificationHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	limit := validation.ParseIntQueryParam(r, "limit", defaultNotificationsLimit)
	unreadOnly := validation.ParseBoolQueryParam(r, "unreadOnly", false)
	broadcast := validation.ParseBoolQueryParam(r, "broadcast", false)

	params := ports.ListNotificationsParams{
		ViewerID:   claims.UserID,
		ViewerRole: claims.Role,
		Broadcast:  broadcast,
		UnreadOnly: unreadOnly,
		Limit:      limit,
	}

	notifications, err := h.notifService.List(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toNotificationDTOs(notifications))
}

// HandleMarkRead handles POST /notifications/read
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[MarkReadRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ids := make([]uuid.UUID, len(req.IDs))
	for i, raw := range req.IDs {
		ids[i] = uuid.MustParse(raw)
	}

	updated, err := h.notifService.MarkRead(r.Context(), ports.MarkReadParams{
		ViewerID:   claims.UserID,
		ViewerRole: claims.Role,
		IDs:        ids,
		Broadcast:  req.Broadcast,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, MarkReadResponse{Updated: updated})
}

// HandleMarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	broadcast := validation.ParseBoolQueryParam(r, "broadcast", false)

	updated, err := h.notifService.MarkAllRead(r.Context(), claims.UserID, claims.Role, broadcast)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, MarkReadResponse{Updated: updated})
}

// HandleDeleteNotification handles DELETE /notifications/{notificationID}
func (h *NotificationHandler) HandleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("notificationID", false, "Must be a valid UUID")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	if err := h.notifService.Delete(r.Context(), claims.Role, notificationID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("notification deleted",
		"notification_id", notificationID,
		"user_id", claims.UserID,
	)

	WriteNoContent(w)
}
