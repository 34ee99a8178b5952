package usecase

import (
	"context"
	"fmt"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/order"
)

type ListOrders struct {
	orderRepo order.Repository
}

func NewListOrders(orderRepo order.Repository) *ListOrders {
	return &ListOrders{orderRepo: orderRepo}
}

func (uc *ListOrders) Execute(ctx context.Context) ([]*order.Order, error) {
	orders, err := uc.orderRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
