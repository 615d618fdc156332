package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/store"
)

// Compile-time interface checks.
var (
	_ store.Interviews  = (*InterviewStore)(nil)
	_ store.Questions   = (*QuestionStore)(nil)
	_ store.Responses   = (*ResponseStore)(nil)
	_ store.Feedbacks   = (*FeedbackStore)(nil)
	_ store.TTSCache    = (*TTSCacheStore)(nil)
	_ store.AvatarCache = (*AvatarCacheStore)(nil)
	_ store.Resumes     = (*ResumeStore)(nil)
	_ store.JobRoles    = (*JobRoleStore)(nil)
	_ store.TxRunner    = (*TxRunner)(nil)
)

// Store owns the PostgreSQL connection pool shared by every entity store.
// Obtain the individual stores via [Store.Bundle].
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn,
// verifies connectivity, and runs [Migrate] to ensure all required tables
// exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Bundle returns a [store.Store] with every interface backed by this
// database. afterCommit, when non-nil, runs after each successful
// [TxRunner.WithinTx] commit; the composition root wires the event bus
// flush here.
func (s *Store) Bundle(afterCommit func(ctx context.Context)) store.Store {
	return store.Store{
		Interviews:  &InterviewStore{pool: s.pool},
		Questions:   &QuestionStore{pool: s.pool},
		Responses:   &ResponseStore{pool: s.pool},
		Feedbacks:   &FeedbackStore{pool: s.pool},
		TTSCache:    &TTSCacheStore{pool: s.pool},
		AvatarCache: &AvatarCacheStore{pool: s.pool},
		Resumes:     &ResumeStore{pool: s.pool},
		JobRoles:    &JobRoleStore{pool: s.pool},
		Tx:          &TxRunner{pool: s.pool, afterCommit: afterCommit},
	}
}

// Pool exposes the underlying pool for health checks.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases all connections held by the underlying connection pool.
// It should be called when the Store is no longer needed, typically via defer.
func (s *Store) Close() {
	s.pool.Close()
}

// querier is the subset of pgx operations shared by [pgxpool.Pool] and
// [pgx.Tx], so entity stores can run against either.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey carries the active transaction on the context.
type txKey struct{}

// db resolves the querier for ctx: the transaction carried by ctx inside
// [TxRunner.WithinTx], the shared pool otherwise.
func db(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation,
// i.e. an INSERT that lost a uniqueness race or repeated a one-shot write.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
