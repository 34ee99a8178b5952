package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/outbox"
)

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) Create(ctx context.Context, m *outbox.Message) error {
	const sql = `
		INSERT INTO outbox (occurred_on, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := db(ctx, r.pool).QueryRow(ctx, sql, m.OccurredOn, m.EventType, m.Payload).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	return nil
}

func (r *OutboxRepository) FetchUnprocessed(ctx context.Context, limit int) ([]*outbox.Message, error) {
	const sql = `
		SELECT id, occurred_on, event_type, payload, processed_on
		FROM outbox
		WHERE processed_on IS NULL
		ORDER BY id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		m := &outbox.Message{}
		if err := rows.Scan(&m.ID, &m.OccurredOn, &m.EventType, &m.Payload, &m.ProcessedOn); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, ids []int64) error {
	const sql = `
		UPDATE outbox
		SET processed_on = NOW()
		WHERE id = ANY($1)
	`

	if _, err := r.pool.Exec(ctx, sql, ids); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}
