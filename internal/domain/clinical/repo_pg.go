package clinical

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository { return &noteRepoPG{pool: pool} }

const noteCols = `id, patient_id, author_id, content,
	is_active, deleted_at, deleted_by, created_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.PatientID, &n.AuthorID, &n.Content,
		&n.IsActive, &n.DeletedAt, &n.DeletedBy, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *noteRepoPG) Create(ctx context.Context, n *Note) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO clinical_note (id, patient_id, author_id, content,
			is_active, deleted_at, deleted_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.PatientID, n.AuthorID, n.Content,
		n.IsActive, n.DeletedAt, n.DeletedBy, n.CreatedAt)
	return err
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	n, err := scanNote(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("note")
	}
	return n, err
}

func (r *noteRepoPG) List(ctx context.Context, f NoteFilter, limit, offset int) ([]*Note, int, error) {
	base := sq.Select().From("clinical_note").
		Where(sq.Eq{"is_active": true}).
		PlaceholderFormat(sq.Dollar)
	if f.PatientID != nil {
		base = base.Where(sq.Eq{"patient_id": *f.PatientID})
	}
	if f.AuthorID != nil {
		base = base.Where(sq.Eq{"author_id": *f.AuthorID})
	}
	if f.From != nil {
		base = base.Where(sq.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		base = base.Where(sq.Lt{"created_at": *f.To})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := base.Columns(noteCols).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, n)
	}
	return notes, total, rows.Err()
}

func (r *noteRepoPG) Update(ctx context.Context, n *Note) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE clinical_note
		SET is_active = $2, deleted_at = $3, deleted_by = $4
		WHERE id = $1`,
		n.ID, n.IsActive, n.DeletedAt, n.DeletedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("note")
	}
	return nil
}

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository { return &reportRepoPG{pool: pool} }

const reportCols = `id, patient_id, author_id, title, content,
	is_active, deleted_at, deleted_by, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rp Report
	err := row.Scan(&rp.ID, &rp.PatientID, &rp.AuthorID, &rp.Title, &rp.Content,
		&rp.IsActive, &rp.DeletedAt, &rp.DeletedBy, &rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

func (r *reportRepoPG) Create(ctx context.Context, rp *Report) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO report (id, patient_id, author_id, title, content,
			is_active, deleted_at, deleted_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rp.ID, rp.PatientID, rp.AuthorID, rp.Title, rp.Content,
		rp.IsActive, rp.DeletedAt, rp.DeletedBy, rp.CreatedAt, rp.UpdatedAt)
	return err
}

func (r *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	rp, err := scanReport(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM report WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("report")
	}
	return rp, err
}

func (r *reportRepoPG) List(ctx context.Context, f ReportFilter, limit, offset int) ([]*Report, int, error) {
	base := sq.Select().From("report").
		Where(sq.Eq{"is_active": true}).
		PlaceholderFormat(sq.Dollar)
	if f.PatientID != nil {
		base = base.Where(sq.Eq{"patient_id": *f.PatientID})
	}
	if f.AuthorID != nil {
		base = base.Where(sq.Eq{"author_id": *f.AuthorID})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := base.Columns(reportCols).
		OrderBy("updated_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rp, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rp)
	}
	return reports, total, rows.Err()
}

func (r *reportRepoPG) Update(ctx context.Context, rp *Report) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE report
		SET title = $2, content = $3, is_active = $4, deleted_at = $5, deleted_by = $6, updated_at = $7
		WHERE id = $1`,
		rp.ID, rp.Title, rp.Content, rp.IsActive, rp.DeletedAt, rp.DeletedBy, rp.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("report")
	}
	return nil
}
