package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/events"
)

// TxRunner implements [store.TxRunner] on the shared connection pool.
//
// WithinTx attaches a fresh event staging buffer to the context before the
// transaction begins, so events published by fn are parked until commit. A
// nested WithinTx joins the surrounding transaction and buffer, leaving the
// outermost call to commit and flush.
type TxRunner struct {
	pool        *pgxpool.Pool
	afterCommit func(ctx context.Context)
}

// WithinTx implements [store.TxRunner].
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	ctx = events.WithStaging(ctx)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit tx: %w", err)
	}

	if r.afterCommit != nil {
		r.afterCommit(ctx)
	}
	return nil
}
