package scheduling

import (
	"context"
	"errors"
	"time"

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

const cols = `id, patient_id, professional_id, room_id, start_at, end_at, status, reason,
	is_active, deleted_at, deleted_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProfessionalID, &a.RoomID,
		&a.StartAt, &a.EndAt, &a.Status, &a.Reason,
		&a.IsActive, &a.DeletedAt, &a.DeletedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, patient_id, professional_id, room_id, start_at, end_at, status, reason,
			is_active, deleted_at, deleted_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		a.ID, a.PatientID, a.ProfessionalID, a.RoomID, a.StartAt, a.EndAt, a.Status, a.Reason,
		a.IsActive, a.DeletedAt, a.DeletedBy, a.CreatedAt, a.UpdatedAt)
	return mapWriteErr(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("appointment")
	}
	return a, err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	base := sq.Select().From("appointment").
		Where(sq.Eq{"is_active": true}).
		PlaceholderFormat(sq.Dollar)
	if f.PatientID != nil {
		base = base.Where(sq.Eq{"patient_id": *f.PatientID})
	}
	if f.ProfessionalID != nil {
		base = base.Where(sq.Eq{"professional_id": *f.ProfessionalID})
	}
	if f.RoomID != nil {
		base = base.Where(sq.Eq{"room_id": *f.RoomID})
	}
	if f.RoomNumber != nil {
		base = base.Where(sq.Expr("room_id IN (SELECT id FROM room WHERE number = ?)", *f.RoomNumber))
	}
	if f.Status != "" {
		base = base.Where(sq.Eq{"status": f.Status})
	}
	if f.From != nil {
		base = base.Where(sq.Gt{"end_at": *f.From})
	}
	if f.To != nil {
		base = base.Where(sq.Lt{"start_at": *f.To})
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
		OrderBy("start_at").
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

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment
		SET patient_id = $2, professional_id = $3, room_id = $4, start_at = $5, end_at = $6,
			status = $7, reason = $8, is_active = $9, deleted_at = $10, deleted_by = $11, updated_at = $12
		WHERE id = $1`,
		a.ID, a.PatientID, a.ProfessionalID, a.RoomID, a.StartAt, a.EndAt,
		a.Status, a.Reason, a.IsActive, a.DeletedAt, a.DeletedBy, a.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("appointment")
	}
	return nil
}

func (r *repoPG) ExistsOverlap(ctx context.Context, roomID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	q := `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE room_id = $1
			  AND is_active
			  AND status <> $2
			  AND start_at < $3
			  AND end_at > $4
			  AND ($5::uuid IS NULL OR id <> $5)
		)`
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, q, roomID, StatusCancelled, end, start, excludeID).Scan(&exists)
	return exists, err
}

// mapWriteErr translates constraint violations into domain errors. The
// exclusion constraint on (room_id, tstzrange) is the storage-level
// backstop for the overlap rule; a violation means two writers raced
// past the application check.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23P01":
		return apperror.Conflict("room_occupied", "the room is already booked for this time")
	case "23503":
		v := apperror.NewValidation()
		v.Add("", "referenced patient, professional or room does not exist")
		return v.Err()
	}
	return err
}
