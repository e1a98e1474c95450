package offer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"partner/internal/logger"
	"partner/internal/modules/order"
	"partner/internal/types"
)

const defaultPoolKey = "partner:offers:pool"

// RedisPool keeps shared candidates in one hash. HDEL is the claim, so exactly one worker wins.
type RedisPool struct {
	rdb *redis.Client
	key string
	log *logger.Logger
}

func NewRedisPool(rdb *redis.Client, key string, log *logger.Logger) *RedisPool {
	if key == "" {
		key = defaultPoolKey
	}
	return &RedisPool{rdb: rdb, key: key, log: log}
}

// Publish adds a candidate, assigning an id when it has none.
func (p *RedisPool) Publish(ctx context.Context, o order.Order) (order.Order, error) {
	if o.ID == "" {
		o.ID = types.ID(uuid.NewString())
	}
	o.Status = order.StatusNone
	b, err := json.Marshal(o)
	if err != nil {
		return order.Order{}, fmt.Errorf("encode candidate: %w", err)
	}
	if err := p.rdb.HSet(ctx, p.key, string(o.ID), b).Err(); err != nil {
		return order.Order{}, fmt.Errorf("publish candidate: %w", err)
	}
	return o, nil
}

func (p *RedisPool) Candidates(ctx context.Context) ([]order.Order, error) {
	raw, err := p.rdb.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	out := make([]order.Order, 0, len(raw))
	for id, v := range raw {
		var o order.Order
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			p.log.Error("candidate_corrupt", err, map[string]any{"order_id": id})
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (p *RedisPool) Claim(ctx context.Context, id types.ID) (bool, error) {
	n, err := p.rdb.HDel(ctx, p.key, string(id)).Result()
	if err != nil {
		return false, fmt.Errorf("claim candidate: %w", err)
	}
	return n == 1, nil
}
