package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/metrics"
)

//go:embed schema.sql
var schema string

const defaultMaxAttempts = 5

// PostgresStore runs document transactions on PostgreSQL with serializable
// isolation, retrying on serialization failures
type PostgresStore struct {
	db          *pgxpool.Pool
	maxAttempts int
}

// NewPostgresStore creates a new store backed by the pool
func NewPostgresStore(db *pgxpool.Pool, maxAttempts int) *PostgresStore {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &PostgresStore{db: db, maxAttempts: maxAttempts}
}

// Migrate creates the schema if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RunInTx runs fn in a serializable transaction
func (s *PostgresStore) RunInTx(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

// View runs fn in a read-only repeatable-read transaction
func (s *PostgresStore) View(ctx context.Context, fn TxFunc) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (s *PostgresStore) run(ctx context.Context, opts pgx.TxOptions, fn TxFunc) error {
	for attempt := 1; ; attempt++ {
		err := pgx.BeginTxFunc(ctx, s.db, opts, func(tx pgx.Tx) error {
			return fn(ctx, &pgTx{tx: tx})
		})
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		metrics.TxRetries.Inc()
		if attempt >= s.maxAttempts {
			log.Warn().Err(err).Int("attempts", attempt).Msg("Transaction retries exhausted")
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*attempt) * 10 * time.Millisecond):
		}
	}
}

// isRetryable reports whether err is a write conflict worth re-running
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"23505": // unique_violation, e.g. two inserts racing for the same id
		return true
	}
	return false
}

// pgTx implements Tx on top of a pgx transaction
type pgTx struct {
	tx pgx.Tx
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
