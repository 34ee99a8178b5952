package readmodel

import (
	"context"
	"time"
)

// OrderRead is the denormalized row served by the read query path.
// CustomerName is a point-in-time snapshot resolved at projection time; later
// customer renames do not propagate. A missing row means "not yet projected".
type OrderRead struct {
	OrderID      int64     `json:"orderId"`
	CustomerName string    `json:"customerName"`
	Total        float64   `json:"total"`
	CreatedAt    time.Time `json:"createdAtUtc"`
}

type Repository interface {
	Exists(ctx context.Context, orderID int64) (bool, error)
	// Insert is an idempotent upsert keyed by OrderID: it reports false
	// without error when a row for the order already exists.
	Insert(ctx context.Context, row *OrderRead) (bool, error)
	// List returns all rows ordered by CreatedAt descending.
	List(ctx context.Context) ([]*OrderRead, error)
}
