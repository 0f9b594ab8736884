package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/identity-service/internal/domain"
)

// AdministratorRepository defines persistence access for the administrator
// store. Rows are only ever created by the bootstrap flow and never deleted
// by this subsystem.
type AdministratorRepository interface {
	Create(ctx context.Context, admin *domain.Administrator) error
	GetByID(ctx context.Context, id string) (*domain.Administrator, error)
	GetByEmail(ctx context.Context, email string) (*domain.Administrator, error)
	Count(ctx context.Context) (int64, error)
}

type administratorRepository struct {
	pool *pgxpool.Pool
}

// NewAdministratorRepository returns a Postgres-backed implementation.
func NewAdministratorRepository(pool *pgxpool.Pool) AdministratorRepository {
	return &administratorRepository{pool: pool}
}

func (r *administratorRepository) Create(ctx context.Context, admin *domain.Administrator) error {
	const query = `
        INSERT INTO administrators (email, password_hash, display_name)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		admin.Email,
		admin.PasswordHash,
		admin.DisplayName,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
}

func (r *administratorRepository) GetByID(ctx context.Context, id string) (*domain.Administrator, error) {
	const query = `
        SELECT id, email, password_hash, display_name, created_at, updated_at
        FROM administrators WHERE id=$1`

	var admin domain.Administrator
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.DisplayName,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *administratorRepository) GetByEmail(ctx context.Context, email string) (*domain.Administrator, error) {
	const query = `
        SELECT id, email, password_hash, display_name, created_at, updated_at
        FROM administrators WHERE email=$1`

	var admin domain.Administrator
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.DisplayName,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *administratorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM administrators`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
