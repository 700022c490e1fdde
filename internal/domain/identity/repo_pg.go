package identity

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

const cols = `id, email, first_name, last_name, role, password_hash, enabled,
	is_active, deleted_at, deleted_by, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.PasswordHash, &u.Enabled,
		&u.IsActive, &u.DeletedAt, &u.DeletedBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (id, email, first_name, last_name, role, password_hash, enabled,
			is_active, deleted_at, deleted_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.PasswordHash, u.Enabled,
		u.IsActive, u.DeletedAt, u.DeletedBy, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("email_taken", "a user with this email already exists")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM app_user WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user")
	}
	return u, err
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM app_user WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user")
	}
	return u, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM app_user WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM app_user WHERE is_active
		 ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE app_user
		SET email = $2, first_name = $3, last_name = $4, role = $5, password_hash = $6,
			enabled = $7, is_active = $8, deleted_at = $9, deleted_by = $10, updated_at = $11
		WHERE id = $1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.PasswordHash,
		u.Enabled, u.IsActive, u.DeletedAt, u.DeletedBy, u.UpdatedAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("email_taken", "a user with this email already exists")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
