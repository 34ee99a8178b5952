package outbox

import (
	"context"
	"time"
)

// Message is one row of the transactional outbox. A row exists if and only if
// the order it describes committed in the same transaction. ProcessedOn stays
// nil until the relay confirms a publish; rows are never deleted.
type Message struct {
	ID          int64
	OccurredOn  time.Time
	EventType   string
	Payload     []byte
	ProcessedOn *time.Time
}

type Repository interface {
	Create(ctx context.Context, m *Message) error
	// FetchUnprocessed returns up to limit rows with ProcessedOn unset,
	// ordered by id ascending. Id order approximates commit order.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Message, error)
	MarkProcessed(ctx context.Context, ids []int64) error
}
