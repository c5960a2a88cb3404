package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// OrderRepository handles persistence for orders and bookings.
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new order repository.
func NewOrderRepository(pool *pgxpool.Pool) ports.OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, user_id, kind, item, total_cents, status, created_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&o.ID, &o.UserID, &o.Kind, &o.Item, &o.TotalCents, &o.Status, &createdAt); err != nil {
		return nil, err
	}
	o.CreatedAt = createdAt.Time

	return &o, nil
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, kind, item, total_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+orderColumns,
		order.ID, order.UserID, order.Kind, order.Item, order.TotalCents, order.Status, order.CreatedAt,
	)

	return scanOrder(row)
}

// GetByID retrieves a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// Update persists a status change.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2
		RETURNING `+orderColumns,
		order.Status, order.ID,
	)

	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return updated, nil
}
