package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	apperrors "github.com/pulsefit/pulsefit-backend/internal/core/errors"
	"github.com/pulsefit/pulsefit-backend/internal/core/ports"
)

// NotificationRepository handles persistence for notification records.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(pool *pgxpool.Pool) ports.NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `id, recipient_id, admin_broadcast, category, title, body, payload, is_read, created_at, updated_at`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n         domain.Notification
		recipient pgtype.UUID
		payload   []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(&n.ID, &recipient, &n.AdminBroadcast, &n.Category, &n.Title, &n.Body,
		&payload, &n.IsRead, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if recipient.Valid {
		id := uuid.UUID(recipient.Bytes)
		n.RecipientID = &id
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode notification payload: %w", err)
		}
	}
	n.CreatedAt = createdAt.Time
	n.UpdatedAt = updatedAt.Time

	return &n, nil
}

// Create persists a new notification.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)

	var payload []byte
	if n.Payload != nil {
		var err error
		payload, err = json.Marshal(n.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification payload: %w", err)
		}
	}

	var recipient pgtype.UUID
	if n.RecipientID != nil {
		recipient = pgtype.UUID{Bytes: *n.RecipientID, Valid: true}
	}

	row := q.QueryRow(ctx, `
		INSERT INTO notifications (id, recipient_id, admin_broadcast, category, title, body, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+notificationColumns,
		n.ID, recipient, n.AdminBroadcast, n.Category, n.Title, n.Body, payload, n.CreatedAt, n.UpdatedAt,
	)

	return scanNotification(row)
}

// GetByID retrieves a single notification.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// List returns notifications newest first, scoped by the filter.
func (r *NotificationRepository) List(ctx context.Context, filter ports.NotificationFilter) ([]*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE `
	args := []interface{}{}

	switch {
	case filter.AdminBroadcast:
		query += `admin_broadcast`
	case filter.RecipientID != nil:
		args = append(args, *filter.RecipientID)
		query += fmt.Sprintf(`recipient_id = $%d`, len(args))
	default:
		// Unscoped reads are not a thing; match nothing.
		return []*domain.Notification{}, nil
	}

	if filter.UnreadOnly {
		query += ` AND NOT is_read`
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkRead flips is_read for the given ids within the caller's scope. Rows
// that are already read are left untouched so the returned count reflects
// actual transitions.
func (r *NotificationRepository) MarkRead(ctx context.Context, ids []uuid.UUID, recipientID *uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := GetDBTX(ctx, r.pool)

	var (
		tagQuery string
		args     []interface{}
	)
	if recipientID != nil {
		tagQuery = `
			UPDATE notifications SET is_read = TRUE, updated_at = now()
			WHERE id = ANY($1) AND recipient_id = $2 AND NOT is_read`
		args = []interface{}{ids, *recipientID}
	} else {
		tagQuery = `
			UPDATE notifications SET is_read = TRUE, updated_at = now()
			WHERE id = ANY($1) AND admin_broadcast AND NOT is_read`
		args = []interface{}{ids}
	}

	tag, err := q.Exec(ctx, tagQuery, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkAllRead flips is_read for every unread notification in scope.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID *uuid.UUID) (int64, error) {
	q := GetDBTX(ctx, r.pool)

	var (
		tagQuery string
		args     []interface{}
	)
	if recipientID != nil {
		tagQuery = `
			UPDATE notifications SET is_read = TRUE, updated_at = now()
			WHERE recipient_id = $1 AND NOT is_read`
		args = []interface{}{*recipientID}
	} else {
		tagQuery = `
			UPDATE notifications SET is_read = TRUE, updated_at = now()
			WHERE admin_broadcast AND NOT is_read`
	}

	tag, err := q.Exec(ctx, tagQuery, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a notification permanently.
func (r *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := GetDBTX(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}
