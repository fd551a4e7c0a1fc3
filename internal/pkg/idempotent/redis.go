package idempotent

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisService keeps processed keys for ttl. Zero ttl keeps them forever.
func NewRedisService(client redis.Cmdable, prefix string, ttl time.Duration) *RedisService {
	return &RedisService{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisService) Processed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "check processed key %s", key)
	}
	return n > 0, nil
}

func (s *RedisService) MarkProcessed(ctx context.Context, key string) error {
	err := s.client.Set(ctx, s.key(key), 1, s.ttl).Err()
	return errors.Wrapf(err, "mark processed key %s", key)
}

func (s *RedisService) key(k string) string {
	return s.prefix + ":" + k
}
