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

const maxItemLength = 255

// OrderHandler handles HTTP requests for orders and bookings
type OrderHandler struct {
	orderService ports.OrderService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	orderService ports.OrderService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "order"),
	}
}

// Router sets up a new chi Router for all order routes.
func (h *OrderHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for the order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandlePlaceOrder)
	r.Post("/{orderID}/confirm", h.HandleConfirmBooking)
}

// --- Request/Response DTOs ---

// PlaceOrderRequest defines the expected JSON body for placing an order
type PlaceOrderRequest struct {
	Kind       string `json:"kind"`
	Item       string `json:"item"`
	TotalCents int64  `json:"totalCents"`
}

// Validate validates the place order request
func (r *PlaceOrderRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("kind", r.Kind).
		OneOf("kind", r.Kind, []string{"purchase", "booking"})

	v.Required("item", r.Item).
		MaxLength("item", r.Item, maxItemLength)

	v.Custom("totalCents", r.TotalCents > 0, "Must be a positive amount")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// OrderDTO is the JSON representation of an order
type OrderDTO struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Kind       string `json:"kind"`
	Item       string `json:"item"`
	TotalCents int64  `json:"totalCents"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
}

func toOrderDTO(o *domain.Order) OrderDTO {
	return OrderDTO{
		ID:         o.ID.String(),
		UserID:     o.UserID.String(),
		Kind:       string(o.Kind),
		Item:       o.Item,
		TotalCents: o.TotalCents,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
	}
}

// --- Handlers ---

// HandlePlaceOrder handles POST /orders
func (h *OrderHandler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[PlaceOrderRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), ports.PlaceOrderParams{
		UserID:     claims.UserID,
		Kind:       domain.OrderKind(req.Kind),
		Item:       req.Item,
		TotalCents: req.TotalCents,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("order placed",
		"order_id", order.ID,
		"user_id", claims.UserID,
		"kind", order.Kind,
	)

	WriteCreated(w, toOrderDTO(order))
}

// HandleConfirmBooking handles POST /orders/{orderID}/confirm
func (h *OrderHandler) HandleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("orderID", false, "Must be a valid UUID")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	order, err := h.orderService.ConfirmBooking(r.Context(), claims.Role, orderID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("booking confirmed",
		"order_id", order.ID,
		"actor_id", claims.UserID,
	)

	WriteSuccess(w, toOrderDTO(order))
}
