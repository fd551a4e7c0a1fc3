//go:build e2e

package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSlidingWindowLimiter(t *testing.T) {
	t.Parallel()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	t.Cleanup(func() {
		_ = client.Close()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("redis is not available")
	}

	limiter := NewRedisSlidingWindowLimiter(client, 200*time.Millisecond, 3)
	key := fmt.Sprintf("test:%d", time.Now().UnixNano())
	for i := 0; i < 3; i++ {
		limited, err := limiter.Limit(ctx, key)
		require.NoError(t, err)
		assert.False(t, limited, "call %d", i)
	}
	limited, err := limiter.Limit(ctx, key)
	require.NoError(t, err)
	assert.True(t, limited)

	time.Sleep(250 * time.Millisecond)
	limited, err = limiter.Limit(ctx, key)
	require.NoError(t, err)
	assert.False(t, limited)

	ttl, err := client.PTTL(ctx, "ratelimit:"+key).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
