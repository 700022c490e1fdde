package audit

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

const cols = `id, actor_id, actor_email, action, target_type, target_id, metadata, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var meta []byte
	err := row.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.TargetType, &e.TargetID, &meta, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, actor_email, action, target_type, target_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.ActorID, e.ActorEmail, e.Action, e.TargetType, e.TargetID, meta, e.CreatedAt)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	base := sq.Select().From("audit_log").PlaceholderFormat(sq.Dollar)
	if f.ActorID != nil {
		base = base.Where(sq.Eq{"actor_id": *f.ActorID})
	}
	if f.Action != "" {
		base = base.Where(sq.Eq{"action": f.Action})
	}
	if f.TargetType != "" {
		base = base.Where(sq.Eq{"target_type": f.TargetType})
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

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
