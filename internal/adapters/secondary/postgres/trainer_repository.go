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

// TrainerApplicationRepository handles persistence for trainer applications.
type TrainerApplicationRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TrainerApplicationRepository = (*TrainerApplicationRepository)(nil)

// NewTrainerApplicationRepository creates a new trainer application repository.
func NewTrainerApplicationRepository(pool *pgxpool.Pool) ports.TrainerApplicationRepository {
	return &TrainerApplicationRepository{pool: pool}
}

const applicationColumns = `id, applicant_id, status, created_at, decided_at`

func scanApplication(row pgx.Row) (*domain.TrainerApplication, error) {
	var (
		app       domain.TrainerApplication
		createdAt pgtype.Timestamptz
		decidedAt pgtype.Timestamptz
	)

	if err := row.Scan(&app.ID, &app.ApplicantID, &app.Status, &createdAt, &decidedAt); err != nil {
		return nil, err
	}
	app.CreatedAt = createdAt.Time
	if decidedAt.Valid {
		t := decidedAt.Time
		app.DecidedAt = &t
	}

	return &app, nil
}

// Create persists a new application.
func (r *TrainerApplicationRepository) Create(ctx context.Context, app *domain.TrainerApplication) (*domain.TrainerApplication, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO trainer_applications (id, applicant_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+applicationColumns,
		app.ID, app.ApplicantID, app.Status, app.CreatedAt,
	)

	return scanApplication(row)
}

// GetByID retrieves a single application.
func (r *TrainerApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainerApplication, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+applicationColumns+` FROM trainer_applications WHERE id = $1`, id)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

// GetPendingByApplicant retrieves the applicant's pending application, if any.
func (r *TrainerApplicationRepository) GetPendingByApplicant(ctx context.Context, applicantID uuid.UUID) (*domain.TrainerApplication, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM trainer_applications
		WHERE applicant_id = $1 AND status = $2`,
		applicantID, domain.ApplicationPending,
	)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

// Update persists a decided application.
func (r *TrainerApplicationRepository) Update(ctx context.Context, app *domain.TrainerApplication) (*domain.TrainerApplication, error) {
	q := GetDBTX(ctx, r.pool)

	var decidedAt pgtype.Timestamptz
	if app.DecidedAt != nil {
		decidedAt = pgtype.Timestamptz{Time: *app.DecidedAt, Valid: true}
	}

	row := q.QueryRow(ctx, `
		UPDATE trainer_applications SET status = $1, decided_at = $2
		WHERE id = $3
		RETURNING `+applicationColumns,
		app.Status, decidedAt, app.ID,
	)

	updated, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, err
	}
	return updated, nil
}
