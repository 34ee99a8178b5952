package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/order"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	const sql = `
		INSERT INTO orders (customer_id, total, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := db(ctx, r.pool).QueryRow(ctx, sql, o.CustomerID, o.Total, o.CreatedAt).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	const sql = `
		SELECT id, customer_id, total, created_at
		FROM orders
		ORDER BY created_at DESC
	`

	rows, err := db(ctx, r.pool).Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o := &order.Order{}
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}
