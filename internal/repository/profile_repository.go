package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/identity-service/internal/domain"
)

// ProfileRepository defines persistence access for regular accounts.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	// Upsert inserts the profile or, on an email conflict, returns the row
	// that already exists. Concurrent first-time provisioning attempts for
	// the same email converge on one row; the store's conflict resolution
	// is the only coordination.
	Upsert(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileColumns = `id, email, password_hash, display_name, avatar_url, role, plan_id, has_seen_welcome, created_at, updated_at`

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (email, password_hash, display_name, avatar_url, role, plan_id, has_seen_welcome)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.Email,
		profile.PasswordHash,
		profile.DisplayName,
		profile.AvatarURL,
		profile.Role,
		profile.PlanID,
		profile.HasSeenWelcome,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	// The no-op DO UPDATE makes RETURNING yield the surviving row on
	// conflict, so the caller always sees the canonical profile.
	const query = `
        INSERT INTO profiles (email, password_hash, display_name, avatar_url, role, plan_id, has_seen_welcome)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
        RETURNING ` + profileColumns

	var result domain.Profile
	if err := r.pool.QueryRow(ctx, query,
		profile.Email,
		profile.PasswordHash,
		profile.DisplayName,
		profile.AvatarURL,
		profile.Role,
		profile.PlanID,
		profile.HasSeenWelcome,
	).Scan(
		&result.ID,
		&result.Email,
		&result.PasswordHash,
		&result.DisplayName,
		&result.AvatarURL,
		&result.Role,
		&result.PlanID,
		&result.HasSeenWelcome,
		&result.CreatedAt,
		&result.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles
        SET email=$1, password_hash=$2, display_name=$3, avatar_url=$4, role=$5, plan_id=$6, has_seen_welcome=$7, updated_at=NOW()
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		profile.Email,
		profile.PasswordHash,
		profile.DisplayName,
		profile.AvatarURL,
		profile.Role,
		profile.PlanID,
		profile.HasSeenWelcome,
		profile.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *profileRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE email=$1`, email).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *profileRepository) scanOne(row pgx.Row) (*domain.Profile, error) {
	var profile domain.Profile
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.PasswordHash,
		&profile.DisplayName,
		&profile.AvatarURL,
		&profile.Role,
		&profile.PlanID,
		&profile.HasSeenWelcome,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
