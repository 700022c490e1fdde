package document

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

const cols = `id, patient_id, uploaded_by, file_name, content_type, size, storage_path,
	is_active, deleted_at, deleted_by, created_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.PatientID, &d.UploadedBy, &d.FileName, &d.ContentType, &d.Size, &d.StoragePath,
		&d.IsActive, &d.DeletedAt, &d.DeletedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document (id, patient_id, uploaded_by, file_name, content_type, size, storage_path,
			is_active, deleted_at, deleted_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		d.ID, d.PatientID, d.UploadedBy, d.FileName, d.ContentType, d.Size, d.StoragePath,
		d.IsActive, d.DeletedAt, d.DeletedBy, d.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM document WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("document")
	}
	return d, err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Document, int, error) {
	base := sq.Select().From("document").
		Where(sq.Eq{"is_active": true}).
		PlaceholderFormat(sq.Dollar)
	if f.PatientID != nil {
		base = base.Where(sq.Eq{"patient_id": *f.PatientID})
	}
	if f.Name != "" {
		base = base.Where(sq.ILike{"file_name": "%" + f.Name + "%"})
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
		OrderBy("created_at DESC").
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

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, d *Document) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document
		SET file_name = $2, is_active = $3, deleted_at = $4, deleted_by = $5
		WHERE id = $1`,
		d.ID, d.FileName, d.IsActive, d.DeletedAt, d.DeletedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("document")
	}
	return nil
}
