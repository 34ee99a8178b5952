package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id          BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		total       NUMERIC(12,2) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id           BIGSERIAL PRIMARY KEY,
		occurred_on  TIMESTAMPTZ NOT NULL,
		event_type   TEXT NOT NULL,
		payload      JSONB NOT NULL,
		processed_on TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_unprocessed_idx
		ON outbox (id) WHERE processed_on IS NULL`,
	`CREATE TABLE IF NOT EXISTS orders_read (
		order_id      BIGINT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		total         NUMERIC(12,2) NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
}

// EnsureSchema creates missing tables. Every binary runs it at startup so the
// services can come up in any order against an empty database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
