package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMarkerStore keeps markers in Redis for distributed deployments.
type RedisMarkerStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMarkerStore creates a Redis-backed marker store.
func NewRedisMarkerStore(client *redis.Client, prefix string, ttl time.Duration) *RedisMarkerStore {
	if prefix == "" {
		prefix = "authproc:marker:"
	}
	return &RedisMarkerStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisMarkerStore) key(sid, filter string) string {
	return s.prefix + sid + ":" + filter
}

func (s *RedisMarkerStore) Set(ctx context.Context, sid, filter string) error {
	return s.client.Set(ctx, s.key(sid, filter), "1", s.ttl).Err()
}

func (s *RedisMarkerStore) Consume(ctx context.Context, sid, filter string) (bool, error) {
	// GETDEL is the atomic read-and-clear.
	_, err := s.client.GetDel(ctx, s.key(sid, filter)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
