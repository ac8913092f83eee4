package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// schemaStatements bootstrap the persisted schema. The uniqueness constraint
// on tenant_config.api_key keeps key resolution well-defined; cache_record
// is deliberately unconstrained because a partition holds many rows per type.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenant_config (
		api_key       TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		access_token  TEXT NOT NULL,
		environment   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shared_link (
		api_key   TEXT NOT NULL,
		id        TEXT NOT NULL,
		link_name TEXT NOT NULL,
		url       TEXT NOT NULL,
		PRIMARY KEY (api_key, id)
	)`,
	`CREATE TABLE IF NOT EXISTS cache_record (
		user_id      TEXT NOT NULL,
		sharelink_id TEXT NOT NULL,
		schedule_id  TEXT NOT NULL,
		type         TEXT NOT NULL,
		data         JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS cache_record_partition_idx
		ON cache_record (user_id, sharelink_id, schedule_id, type)`,
}

// NewPool creates a pgx connection pool, verifies connectivity, and ensures
// the schema exists. The pool is owned by the composition root and injected
// into each store.
func NewPool(ctx context.Context, connString string, logger *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	logger.Info("database pool initialized")
	return pool, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
