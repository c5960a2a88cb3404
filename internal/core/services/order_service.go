package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// OrderService implements order and booking operations. Like the trainer
// workflow, the order row and its notification are persisted before any push.
type OrderService struct {
	orderRepo ports.OrderRepository
	userRepo  ports.UserRepository
	notifSvc  ports.NotificationService
	publisher ports.EventPublisher
	wg        sync.WaitGroup
}

var _ ports.OrderService = (*OrderService)(nil)

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo ports.OrderRepository,
	userRepo ports.UserRepository,
	notifSvc ports.NotificationService,
	publisher ports.EventPublisher,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		notifSvc:  notifSvc,
		publisher: publisher,
	}
}

// PlaceOrder persists a new order or booking and notifies the admin group.
func (s *OrderService) PlaceOrder(ctx context.Context, params ports.PlaceOrderParams) (*domain.Order, error) {
	buyer, err := s.userRepo.GetByID(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewOrder(domain.OrderParams{
		UserID:     params.UserID,
		Kind:       params.Kind,
		Item:       params.Item,
		TotalCents: params.TotalCents,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	notification, err := s.notifSvc.Create(ctx, ports.CreateNotificationParams{
		AdminBroadcast: true,
		Category:       domain.CategoryOrderCreated,
		Title:          "New Order",
		Body:           fmt.Sprintf("%s placed an order for %s.", buyer.FullName, created.Item),
		Payload: map[string]any{
			"orderId":    created.ID.String(),
			"userId":     buyer.ID.String(),
			"item":       created.Item,
			"totalCents": created.TotalCents,
		},
	})
	if err != nil {
		// The order exists regardless; admins converge on it via pull.
		return created, nil
	}

	s.publishAsync(func() {
		s.publisher.EmitToAdmins(domain.NewNotificationEvent(notification))
	})

	return created, nil
}

// ConfirmBooking confirms a placed booking and notifies the booking user.
func (s *OrderService) ConfirmBooking(ctx context.Context, actorRole domain.Role, orderID uuid.UUID) (*domain.Order, error) {
	if actorRole != domain.RoleAdmin && actorRole != domain.RoleTrainer {
		return nil, apperrors.ErrForbidden
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.ConfirmBooking(); err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.Update(ctx, order)
	if err != nil {
		return nil, err
	}

	notification, err := s.notifSvc.Create(ctx, ports.CreateNotificationParams{
		RecipientID: &updated.UserID,
		Category:    domain.CategoryBookingConfirmed,
		Title:       "Booking Confirmed",
		Body:        fmt.Sprintf("Your booking for %s has been confirmed.", updated.Item),
		Payload:     map[string]any{"orderId": updated.ID.String(), "item": updated.Item},
	})
	if err != nil {
		return updated, nil
	}

	s.publishAsync(func() {
		s.publisher.EmitToUser(updated.UserID, domain.NewNotificationEvent(notification))
	})

	return updated, nil
}

func (s *OrderService) publishAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Shutdown waits for in-flight pushes to drain.
func (s *OrderService) Shutdown() {
	s.wg.Wait()
}
