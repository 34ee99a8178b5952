package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/event"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/order"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/outbox"
	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/infrastructure/postgres"
)

// ValidationError rejects bad input synchronously; nothing invalid ever
// reaches the outbox.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type CreateOrder struct {
	txManager  postgres.Transactor
	orderRepo  order.Repository
	outboxRepo outbox.Repository
}

func NewCreateOrder(
	txManager postgres.Transactor,
	orderRepo order.Repository,
	outboxRepo outbox.Repository,
) *CreateOrder {
	return &CreateOrder{
		txManager:  txManager,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
	}
}

type CreateOrderParams struct {
	CustomerID int64   `json:"customerId"`
	Total      float64 `json:"total"`
}

// Execute inserts the order and its OrderCreated outbox row in one
// transaction, so a committed order is never observable without its event.
// The customer id is not checked against the customer service: write
// availability must not depend on it.
func (uc *CreateOrder) Execute(ctx context.Context, params CreateOrderParams) (int64, error) {
	if params.CustomerID <= 0 {
		return 0, &ValidationError{Field: "customerId", Reason: "must be a positive id"}
	}
	if params.Total < 0 {
		return 0, &ValidationError{Field: "total", Reason: "must not be negative"}
	}

	newOrder := &order.Order{
		CustomerID: params.CustomerID,
		Total:      params.Total,
		CreatedAt:  time.Now().UTC(),
	}

	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.Create(txCtx, newOrder); err != nil {
			return err
		}

		ev := event.OrderCreated{
			EventID:    uuid.New().String(),
			OrderID:    newOrder.ID,
			CustomerID: newOrder.CustomerID,
			Total:      newOrder.Total,
			CreatedAt:  newOrder.CreatedAt,
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		return uc.outboxRepo.Create(txCtx, &outbox.Message{
			OccurredOn: time.Now().UTC(),
			EventType:  event.TypeOrderCreated,
			Payload:    payload,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("transaction failed: %w", err)
	}

	return newOrder.ID, nil
}
