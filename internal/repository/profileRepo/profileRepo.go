package profileRepo

import (
	"context"
	"errors"
	"fmt"

	"patrimonio-service/internal/model/profile"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Create(ctx context.Context, fullName, email, passwordHash string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, full_name, email, password_hash) VALUES ($1, $2, $3, $4)`,
		id, fullName, email, passwordHash)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	return id, nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	var p profile.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByEmail resolves a human-entered email to an identity. Exact match
// only; (nil, nil) when no profile carries the address.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	var p profile.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM profiles WHERE email = $1`, email).
		Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) List(ctx context.Context) ([]*profile.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM profiles ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*profile.Profile
	for rows.Next() {
		var p profile.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepo) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	_, err := r.pool.Exec(ctx, `UPDATE profiles SET email = $1 WHERE id = $2`, email, id)
	return err
}

func (r *ProfileRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE profiles SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	return err
}
