package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mixoni/distributed-1-N-issue-with-cqrs-outbox/internal/domain/readmodel"
)

const readListCacheKey = "orders:read"

// ListReadOrders serves the precomputed read model. An empty result is a
// normal state (nothing projected yet), never an error.
type ListReadOrders struct {
	redisClient *redis.Client
	readRepo    readmodel.Repository
}

func NewListReadOrders(redisClient *redis.Client, readRepo readmodel.Repository) *ListReadOrders {
	return &ListReadOrders{
		redisClient: redisClient,
		readRepo:    readRepo,
	}
}

func (uc *ListReadOrders) Execute(ctx context.Context) ([]*readmodel.OrderRead, error) {
	if uc.redisClient != nil {
		val, err := uc.redisClient.Get(ctx, readListCacheKey).Result()
		if err == nil {
			var rows []*readmodel.OrderRead
			if err := json.Unmarshal([]byte(val), &rows); err == nil {
				return rows, nil
			}
		}
	}

	rows, err := uc.readRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list read orders: %w", err)
	}

	if uc.redisClient != nil {
		data, _ := json.Marshal(rows)
		// Short TTL: the projector lags writes by up to one relay poll anyway.
		uc.redisClient.Set(ctx, readListCacheKey, data, 1*time.Second)
	}

	return rows, nil
}
