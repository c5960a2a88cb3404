package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
)

// NotificationFilter narrows a notification list query. A nil RecipientID with
// AdminBroadcast false matches nothing by design; callers always scope reads.
type NotificationFilter struct {
	RecipientID    *uuid.UUID
	AdminBroadcast bool
	UnreadOnly     bool
	Limit          int
}

// NotificationRepository is the durable store of notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	// List returns notifications newest first.
	List(ctx context.Context, filter NotificationFilter) ([]*domain.Notification, error)
	// MarkRead flips is_read for the given ids scoped to the recipient (or to
	// admin broadcasts when recipientID is nil). Already-read rows are skipped;
	// the returned count is the number of rows actually updated.
	MarkRead(ctx context.Context, ids []uuid.UUID, recipientID *uuid.UUID) (int64, error)
	// MarkAllRead flips is_read for every unread notification in scope.
	MarkAllRead(ctx context.Context, recipientID *uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error
}

type TrainerApplicationRepository interface {
	Create(ctx context.Context, app *domain.TrainerApplication) (*domain.TrainerApplication, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainerApplication, error)
	GetPendingByApplicant(ctx context.Context, applicantID uuid.UUID) (*domain.TrainerApplication, error)
	Update(ctx context.Context, app *domain.TrainerApplication) (*domain.TrainerApplication, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
