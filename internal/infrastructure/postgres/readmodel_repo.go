package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/readmodel"
)

type ReadModelRepository struct {
	pool *pgxpool.Pool
}

func NewReadModelRepository(pool *pgxpool.Pool) *ReadModelRepository {
	return &ReadModelRepository{pool: pool}
}

func (r *ReadModelRepository) Exists(ctx context.Context, orderID int64) (bool, error) {
	const sql = `SELECT EXISTS(SELECT 1 FROM orders_read WHERE order_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, sql, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check read row: %w", err)
	}
	return exists, nil
}

// Insert reports false when a row for the order already exists. The primary
// key makes replayed events a no-op even when two deliveries race past the
// Exists check.
func (r *ReadModelRepository) Insert(ctx context.Context, row *readmodel.OrderRead) (bool, error) {
	const sql = `
		INSERT INTO orders_read (order_id, customer_name, total, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, sql, row.OrderID, row.CustomerName, row.Total, row.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert read row: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *ReadModelRepository) List(ctx context.Context) ([]*readmodel.OrderRead, error) {
	const sql = `
		SELECT order_id, customer_name, total, created_at
		FROM orders_read
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query orders_read: %w", err)
	}
	defer rows.Close()

	var result []*readmodel.OrderRead
	for rows.Next() {
		row := &readmodel.OrderRead{}
		if err := rows.Scan(&row.OrderID, &row.CustomerName, &row.Total, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan read row: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
