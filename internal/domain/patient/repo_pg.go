package patient

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
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

const cols = `id, first_name, last_name, dni, birth_date, phone, email, address, insurance,
	is_active, deleted_at, deleted_by, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DNI, &p.BirthDate,
		&p.Phone, &p.Email, &p.Address, &p.Insurance,
		&p.IsActive, &p.DeletedAt, &p.DeletedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, first_name, last_name, dni, birth_date, phone, email, address, insurance,
			is_active, deleted_at, deleted_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.FirstName, p.LastName, p.DNI, p.BirthDate, p.Phone, p.Email, p.Address, p.Insurance,
		p.IsActive, p.DeletedAt, p.DeletedBy, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("dni_taken", "a patient with this DNI already exists")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("patient")
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	base := sq.Select().From("patient").
		Where(sq.Eq{"is_active": true}).
		PlaceholderFormat(sq.Dollar)
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		base = base.Where(sq.Or{
			sq.ILike{"first_name": pattern},
			sq.ILike{"last_name": pattern},
			sq.ILike{"dni": pattern},
		})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := base.Columns(cols).
		OrderBy("last_name", "first_name").
		Limit(uint64(limit)).Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient
		SET first_name = $2, last_name = $3, dni = $4, birth_date = $5, phone = $6,
			email = $7, address = $8, insurance = $9,
			is_active = $10, deleted_at = $11, deleted_by = $12, updated_at = $13
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DNI, p.BirthDate, p.Phone,
		p.Email, p.Address, p.Insurance,
		p.IsActive, p.DeletedAt, p.DeletedBy, p.UpdatedAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("dni_taken", "a patient with this DNI already exists")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("patient")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
