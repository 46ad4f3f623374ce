package grantRepo

import (
	"context"

	"patrimonio-service/internal/model/patrimonio"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GrantRepo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *GrantRepo {
	return &GrantRepo{pool: pool}
}

// ListForUser returns every grant where the user is the grantee, both
// specific rows and wildcard rows (patrimonio_id NULL).
func (r *GrantRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*patrimonio.Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, patrimonio_id, owner_id FROM permissoes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*patrimonio.Grant
	for rows.Next() {
		var g patrimonio.Grant
		if err := rows.Scan(&g.ID, &g.UserID, &g.PatrimonioID, &g.OwnerID); err != nil {
			return nil, err
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}

// ListEditors returns the grantee ids holding a specific grant on one
// patrimônio.
func (r *GrantRepo) ListEditors(ctx context.Context, patrimonioID int64) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM permissoes WHERE patrimonio_id = $1`, patrimonioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetEditors replaces the specific grant rows of one patrimônio in a single
// transaction: the server-side equivalent of the batched permission-update
// procedure the permissions screen calls.
func (r *GrantRepo) SetEditors(ctx context.Context, patrimonioID int64, ownerID uuid.UUID, userIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM permissoes WHERE patrimonio_id = $1`, patrimonioID)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if userID == ownerID {
			// the owner never needs a grant on their own record
			continue
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO permissoes (user_id, patrimonio_id, owner_id) VALUES ($1, $2, $3)`,
			userID, patrimonioID, ownerID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GrantWildcard gives userID edit rights over everything ownerID owns.
func (r *GrantRepo) GrantWildcard(ctx context.Context, userID, ownerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO permissoes (user_id, patrimonio_id, owner_id)
		 VALUES ($1, NULL, $2)
		 ON CONFLICT DO NOTHING`,
		userID, ownerID)
	return err
}

func (r *GrantRepo) RevokeWildcard(ctx context.Context, userID, ownerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM permissoes WHERE user_id = $1 AND owner_id = $2 AND patrimonio_id IS NULL`,
		userID, ownerID)
	return err
}
