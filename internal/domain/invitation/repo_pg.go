package invitation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, email, role, token, invited_by, expires_at, used_at, created_at`

func scanInvitation(row pgx.Row) (*Invitation, error) {
	var i Invitation
	err := row.Scan(&i.ID, &i.Email, &i.Role, &i.Token, &i.InvitedBy, &i.ExpiresAt, &i.UsedAt, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *repoPG) Create(ctx context.Context, i *Invitation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invitation (id, email, role, token, invited_by, expires_at, used_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		i.ID, i.Email, i.Role, i.Token, i.InvitedBy, i.ExpiresAt, i.UsedAt, i.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	i, err := scanInvitation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM invitation WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("invitation")
	}
	return i, err
}

func (r *repoPG) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	i, err := scanInvitation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM invitation WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("invitation")
	}
	return i, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Invitation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM invitation`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM invitation ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invs []*Invitation
	for rows.Next() {
		i, err := scanInvitation(rows)
		if err != nil {
			return nil, 0, err
		}
		invs = append(invs, i)
	}
	return invs, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, i *Invitation) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invitation SET used_at = $2, expires_at = $3 WHERE id = $1`,
		i.ID, i.UsedAt, i.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("invitation")
	}
	return nil
}
