package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/customer"
)

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (customer.Customer, error) {
	const sql = `SELECT id, name FROM customers WHERE id = $1`

	var c customer.Customer
	err := r.pool.QueryRow(ctx, sql, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return customer.Customer{}, customer.ErrNotFound
	}
	if err != nil {
		return customer.Customer{}, fmt.Errorf("get customer by id: %w", err)
	}

	return c, nil
}

func (r *CustomerRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]customer.Customer, error) {
	const sql = `SELECT id, name FROM customers WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, sql, ids)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]customer.Customer, len(ids))
	for rows.Next() {
		var c customer.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result[c.ID] = c
	}

	return result, rows.Err()
}

// Seed inserts the demo customers when the table is empty.
func (r *CustomerRepository) Seed(ctx context.Context) error {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, name := range []string{"Alice", "Bob", "Charlie"} {
		if _, err := r.pool.Exec(ctx, `INSERT INTO customers (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed customer %q: %w", name, err)
		}
	}
	return nil
}
