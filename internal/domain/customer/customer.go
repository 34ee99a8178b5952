package customer

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("customer not found")

type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Lookup is the contract of the customer collaborator. GetByIDs returns a
// mapping rather than a list so callers resolve each id in O(1); ids with no
// customer are simply absent from the map, not an error.
type Lookup interface {
	GetByID(ctx context.Context, id int64) (Customer, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]Customer, error)
}
