package patrimonioRepo

import (
	"context"
	"errors"

	"patrimonio-service/internal/model/patrimonio"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, pat_num, atm_num, descricao, valor, sala, conservacao,
	image_file_name, image_width, image_height, owner_id, last_edited_by, last_edited_at`

type PatrimonioRepo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *PatrimonioRepo {
	return &PatrimonioRepo{pool: pool}
}

func scanOne(row pgx.Row) (*patrimonio.Patrimonio, error) {
	var p patrimonio.Patrimonio
	err := row.Scan(&p.ID, &p.PatNum, &p.AtmNum, &p.Descricao, &p.Valor, &p.Sala,
		&p.Conservacao, &p.Image.FileName, &p.Image.Width, &p.Image.Height,
		&p.OwnerID, &p.LastEditedBy, &p.LastEditedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PatrimonioRepo) collect(ctx context.Context, query string, args ...any) ([]*patrimonio.Patrimonio, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*patrimonio.Patrimonio
	for rows.Next() {
		var p patrimonio.Patrimonio
		if err := rows.Scan(&p.ID, &p.PatNum, &p.AtmNum, &p.Descricao, &p.Valor, &p.Sala,
			&p.Conservacao, &p.Image.FileName, &p.Image.Width, &p.Image.Height,
			&p.OwnerID, &p.LastEditedBy, &p.LastEditedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *PatrimonioRepo) Create(ctx context.Context, p *patrimonio.Patrimonio) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO patrimonios (pat_num, atm_num, descricao, valor, sala, conservacao,
			image_file_name, image_width, image_height, owner_id, last_edited_by, last_edited_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		p.PatNum, p.AtmNum, p.Descricao, p.Valor, p.Sala, p.Conservacao,
		p.Image.FileName, p.Image.Width, p.Image.Height, p.OwnerID, p.LastEditedBy, p.LastEditedAt).
		Scan(&id)
	return id, err
}

func (r *PatrimonioRepo) GetByID(ctx context.Context, id int64) (*patrimonio.Patrimonio, error) {
	return scanOne(r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM patrimonios WHERE id = $1`, id))
}

func (r *PatrimonioRepo) Update(ctx context.Context, p *patrimonio.Patrimonio) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE patrimonios
		 SET pat_num = $1, atm_num = $2, descricao = $3, valor = $4, sala = $5,
			 conservacao = $6, image_file_name = $7, image_width = $8, image_height = $9,
			 owner_id = $10, last_edited_by = $11, last_edited_at = $12
		 WHERE id = $13`,
		p.PatNum, p.AtmNum, p.Descricao, p.Valor, p.Sala, p.Conservacao,
		p.Image.FileName, p.Image.Width, p.Image.Height, p.OwnerID,
		p.LastEditedBy, p.LastEditedAt, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PatrimonioRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patrimonios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// FindByTags fetches every record matching either normalized tag, for the
// add-mode collision check. Empty tags never match because stored empty
// tags are excluded explicitly.
func (r *PatrimonioRepo) FindByTags(ctx context.Context, patNum, atmNum string) ([]*patrimonio.Patrimonio, error) {
	return r.collect(ctx,
		`SELECT `+columns+` FROM patrimonios
		 WHERE (pat_num = $1 AND pat_num <> '') OR (atm_num = $2 AND atm_num <> '')`,
		patNum, atmNum)
}

func (r *PatrimonioRepo) GetByPatNum(ctx context.Context, patNum string) (*patrimonio.Patrimonio, error) {
	return scanOne(r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM patrimonios WHERE pat_num = $1 AND pat_num <> ''`, patNum))
}

func (r *PatrimonioRepo) GetByAtmNum(ctx context.Context, atmNum string) (*patrimonio.Patrimonio, error) {
	return scanOne(r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM patrimonios WHERE atm_num = $1 AND atm_num <> ''`, atmNum))
}

func (r *PatrimonioRepo) ListBySala(ctx context.Context, sala string) ([]*patrimonio.Patrimonio, error) {
	return r.collect(ctx,
		`SELECT `+columns+` FROM patrimonios WHERE sala = $1 ORDER BY id`, sala)
}
