package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/dairydirect/api/internal/kafka"
	"github.com/dairydirect/api/internal/orders"
	"github.com/dairydirect/api/internal/redisx"
)

// Service keeps the Redis order-status cache in step with the
// order.status.changed stream so status reads stay off Postgres.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// cachedStatus carries the consumer id alongside the status so the API
// can answer the order's own consumer straight from the cache.
type cachedStatus struct {
	Status     string    `json:"status"`
	ConsumerID string    `json:"consumer_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HandleStatusChanged is the consumer handler. Dedup runs on the event
// id so replays after a rebalance do not rewrite the cache out of order.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, err := redisx.Dedup(ctx, s.Redis, dkey); err != nil {
		return err
	} else if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
	value := kafkax.MustMarshal(cachedStatus{
		Status:     p.NewStatus,
		ConsumerID: p.ConsumerID,
		UpdatedAt:  env.OccurredAt,
	})
	return s.Redis.Set(ctx, key, value, redisx.TTLStatusCache).Err()
}
