package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the ledger in a Redis hash of memberId -> "true".
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Load(ctx context.Context) (map[string]bool, error) {
	vals, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.key, err)
	}

	members := make(map[string]bool, len(vals))
	for id, v := range vals {
		members[id] = v == "true" || v == "1"
	}
	return members, nil
}

func (s *RedisStore) Save(ctx context.Context, members map[string]bool) error {
	fields := make([]interface{}, 0, len(members)*2)
	for id, welcomed := range members {
		if welcomed {
			fields = append(fields, id, "true")
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", s.key, err)
	}
	return nil
}
