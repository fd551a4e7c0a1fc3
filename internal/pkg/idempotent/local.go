package idempotent

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// LocalService is an in-process Service, for a single consumer instance or tests.
type LocalService struct {
	cache *cache.Cache
}

func NewLocalService(ttl time.Duration) *LocalService {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &LocalService{cache: cache.New(ttl, 10*time.Minute)}
}

func (s *LocalService) Processed(_ context.Context, key string) (bool, error) {
	_, ok := s.cache.Get(key)
	return ok, nil
}

func (s *LocalService) MarkProcessed(_ context.Context, key string) error {
	s.cache.SetDefault(key, struct{}{})
	return nil
}
