package event

import "time"

const TypeOrderCreated = "OrderCreated"

// OrderCreated is the wire contract published on the orders exchange. EventID
// is the nominal idempotency key; consumers in practice dedup by OrderID,
// which yields the same result since the mapping is one-to-one.
type OrderCreated struct {
	EventID    string    `json:"eventId"`
	OrderID    int64     `json:"orderId"`
	CustomerID int64     `json:"customerId"`
	Total      float64   `json:"total"`
	CreatedAt  time.Time `json:"createdAtUtc"`
}
