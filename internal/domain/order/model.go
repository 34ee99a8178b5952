package order

import (
	"context"
	"time"
)

// Order is the write-side record. Immutable after creation: nothing in this
// system updates an order once the insert commits.
type Order struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	Total      float64   `json:"total"`
	CreatedAt  time.Time `json:"createdAtUtc"`
}

type Repository interface {
	// Create inserts the order and fills o.ID from the database sequence.
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]*Order, error)
}
