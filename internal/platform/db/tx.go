package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// TxFromContext retrieves the transaction injected by WithTx, if any.
// Repositories fall back to the pool when no transaction is in flight.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// TxRunner executes fn inside a database transaction carried on the
// context. Every mutating service operation runs its writes and its
// audit append through one runner call, so either all of them commit
// or none do.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// NewTxRunner returns a TxRunner backed by the pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
}

// PassthroughTx is a TxRunner for tests and in-memory repositories: it
// invokes fn directly without a database.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
