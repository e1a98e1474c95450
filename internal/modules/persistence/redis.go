// README: Persistence backend on Redis; one hash per worker, one field per key.
package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"partner/internal/types"
)

const stateKeyPrefix = "partner:worker:%s:state"

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redis *redis.Client) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Load(ctx context.Context, workerID types.ID) (map[Key][]byte, error) {
	fields, err := s.redis.HGetAll(ctx, stateKey(workerID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[Key][]byte, len(fields))
	for k, v := range fields {
		out[Key(k)] = []byte(v)
	}
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, workerID types.ID, slices map[Key][]byte) error {
	values := make(map[string]any, len(slices))
	for k, v := range slices {
		values[string(k)] = string(v)
	}
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, stateKey(workerID), values)
		return nil
	})
	return err
}

func stateKey(workerID types.ID) string {
	return fmt.Sprintf(stateKeyPrefix, string(workerID))
}
