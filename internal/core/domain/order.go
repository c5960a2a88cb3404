package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
)

// OrderKind distinguishes product purchases from session bookings.
type OrderKind string

const (
	OrderPurchase OrderKind = "purchase"
	OrderBooking  OrderKind = "booking"
)

// OrderStatus represents the state of an order.
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderConfirmed OrderStatus = "confirmed"
)

// Order is a placed purchase or booking.
type Order struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Kind       OrderKind
	Item       string
	TotalCents int64
	Status     OrderStatus
	CreatedAt  time.Time
}

// OrderParams holds the input for placing an order.
type OrderParams struct {
	UserID     uuid.UUID
	Kind       OrderKind
	Item       string
	TotalCents int64
}

// NewOrder is a factory function to create a valid new order.
func NewOrder(params OrderParams) (*Order, error) {
	if params.Kind != OrderPurchase && params.Kind != OrderBooking {
		return nil, apperrors.ErrInvalidOrderKind
	}
	if params.Item == "" {
		return nil, apperrors.ErrItemRequired
	}
	if params.TotalCents <= 0 {
		return nil, apperrors.ErrInvalidTotal
	}

	return &Order{
		ID:         uuid.New(),
		UserID:     params.UserID,
		Kind:       params.Kind,
		Item:       params.Item,
		TotalCents: params.TotalCents,
		Status:     OrderPlaced,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ConfirmBooking transitions a placed booking to confirmed.
func (o *Order) ConfirmBooking() error {
	if o.Kind != OrderBooking {
		return apperrors.ErrNotABooking
	}
	if o.Status == OrderConfirmed {
		return apperrors.ErrBookingConfirmed
	}
	o.Status = OrderConfirmed
	return nil
}
