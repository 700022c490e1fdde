package room

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

const cols = `id, number, name, is_active, deleted_at, deleted_by, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.Number, &rm.Name,
		&rm.IsActive, &rm.DeletedAt, &rm.DeletedBy, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *repoPG) Create(ctx context.Context, rm *Room) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room (id, number, name, is_active, deleted_at, deleted_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rm.ID, rm.Number, rm.Name, rm.IsActive, rm.DeletedAt, rm.DeletedBy, rm.CreatedAt, rm.UpdatedAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("room_number_taken", "a room with this number already exists")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM room WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("room")
	}
	return rm, err
}

func (r *repoPG) GetByNumber(ctx context.Context, number int) (*Room, error) {
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM room WHERE number = $1 AND is_active`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("room")
	}
	return rm, err
}

func (r *repoPG) List(ctx context.Context) ([]*Room, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM room WHERE is_active ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, rm *Room) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE room
		SET number = $2, name = $3, is_active = $4, deleted_at = $5, deleted_by = $6, updated_at = $7
		WHERE id = $1`,
		rm.ID, rm.Number, rm.Name, rm.IsActive, rm.DeletedAt, rm.DeletedBy, rm.UpdatedAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("room_number_taken", "a room with this number already exists")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("room")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
