package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waddythomson/buwa-crm/internal/config"
	"github.com/waddythomson/buwa-crm/internal/db/sqlc"
)

// Open connects a pgx pool and verifies the connection.
func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, DSN(cfg))
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Store is the persistence boundary used by every service: the generated
// queries plus a transaction scope. The store is the only source of truth;
// callers hold no authoritative state between calls.
type Store interface {
	sqlc.Querier
	// WithTx runs fn inside a single transaction. fn's error rolls it back.
	WithTx(ctx context.Context, fn func(q sqlc.Querier) error) error
}

// PgStore implements Store on a pgx pool.
type PgStore struct {
	*sqlc.Queries
	pool *pgxpool.Pool
}

// NewStore wraps pool with the generated queries.
func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		Queries: sqlc.New(pool),
		pool:    pool,
	}
}

func (s *PgStore) WithTx(ctx context.Context, fn func(q sqlc.Querier) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ Store = (*PgStore)(nil)
